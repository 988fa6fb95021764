package catalog

import (
	"context"

	"github.com/firndb/firn/pkg/types"
)

// Tabular is the union of entities a catalog resolves an identifier to.
// Concrete implementations are table and materialized-view handles;
// callers type-switch to tell them apart. An unexpected entity kind is a
// validation error at the use site.
type Tabular interface {
	// Identifier returns the entity's catalog identifier.
	Identifier() Identifier

	// MetadataLocation returns the location of the entity's current
	// metadata document.
	MetadataLocation() string
}

// CreateTableRequest carries everything needed to provision a table.
type CreateTableRequest struct {
	// Schema is the table's initial schema
	Schema types.Schema

	// PartitionSpec is the table's initial partition spec
	PartitionSpec types.PartitionSpec

	// SortOrder is the table's initial sort order
	SortOrder types.SortOrder

	// Location is the table's root path in the object store
	Location string

	// Properties holds free-form table configuration
	Properties map[string]string
}

// CreateViewRequest carries everything needed to provision a
// materialized view together with its backing storage table.
type CreateViewRequest struct {
	// Definition is the view's defining query text
	Definition string

	// Schema is the storage table's schema
	Schema types.Schema

	// PartitionSpec is the storage table's partition spec
	PartitionSpec types.PartitionSpec

	// Location is the view's root path in the object store
	Location string

	// StorageIdentifier names the backing table. Zero derives
	// "<namespace>.__<name>_storage" next to the view.
	StorageIdentifier Identifier

	// StorageLocation is the backing table's root path. Empty derives
	// "<Location>/storage" under the view's root.
	StorageLocation string

	// Properties holds free-form view configuration
	Properties map[string]string
}

// Catalog maps identifiers to their current metadata locations and
// performs the atomic pointer swap that is the sole concurrency control
// of the commit protocol.
type Catalog interface {
	// CreateNamespace registers a namespace with optional properties.
	CreateNamespace(ctx context.Context, ns Namespace, props map[string]string) error

	// ListNamespaces returns all registered namespaces.
	ListNamespaces(ctx context.Context) ([]Namespace, error)

	// LoadNamespaceProperties returns a namespace's properties.
	LoadNamespaceProperties(ctx context.Context, ns Namespace) (map[string]string, error)

	// CreateTable provisions a new table and returns its handle.
	CreateTable(ctx context.Context, ident Identifier, req CreateTableRequest) (Tabular, error)

	// CreateMaterializedView provisions a new materialized view plus its
	// backing storage table and returns the view handle.
	CreateMaterializedView(ctx context.Context, ident Identifier, req CreateViewRequest) (Tabular, error)

	// LoadTabular resolves an identifier to its current table or view.
	LoadTabular(ctx context.Context, ident Identifier) (Tabular, error)

	// UpdateTable atomically swaps the metadata pointer for ident from
	// prevLocation to newLocation and returns the resulting handle.
	// The swap fails with a conflict error if the stored pointer no
	// longer equals prevLocation.
	UpdateTable(ctx context.Context, ident Identifier, newLocation, prevLocation string) (Tabular, error)

	// DropTable removes an entity from the catalog.
	DropTable(ctx context.Context, ident Identifier) error

	// ListTables returns the identifiers registered under a namespace.
	ListTables(ctx context.Context, ns Namespace) ([]Identifier, error)
}
