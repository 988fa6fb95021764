package types

import "errors"

// Validation errors for metadata value types.
var (
	// ErrInvalidTransform is returned when a transform token cannot be parsed
	ErrInvalidTransform = errors.New("invalid transform")

	// ErrInvalidSchema is returned when a schema fails validation
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrInvalidDataFile is returned when a data file descriptor fails validation
	ErrInvalidDataFile = errors.New("invalid data file")

	// ErrUnknownSchemaID is returned when a schema id references no known schema
	ErrUnknownSchemaID = errors.New("unknown schema id")

	// ErrUnknownSpecID is returned when a spec id references no known partition spec
	ErrUnknownSpecID = errors.New("unknown partition spec id")

	// ErrUnknownSortOrderID is returned when a sort order id references no known order
	ErrUnknownSortOrderID = errors.New("unknown sort order id")

	// ErrUnknownSnapshotID is returned when a snapshot id references no known snapshot
	ErrUnknownSnapshotID = errors.New("unknown snapshot id")

	// ErrDuplicateID is returned when adding an entry whose id is already taken
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNoSnapshot is returned when an operation needs a snapshot and none exists
	ErrNoSnapshot = errors.New("no snapshot")

	// ErrMissingOperation is returned when a snapshot summary has no operation entry
	ErrMissingOperation = errors.New("summary missing operation")

	// ErrInvalidMetadata is returned when table metadata fails validation
	ErrInvalidMetadata = errors.New("invalid table metadata")
)
