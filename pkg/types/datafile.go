package types

import "fmt"

// FileFormat enumerates the data file encodings a table can track.
type FileFormat string

const (
	FormatParquet FileFormat = "parquet"
	FormatAvro    FileFormat = "avro"
	FormatOrc     FileFormat = "orc"
)

// DataFile describes one immutable data file registered in a snapshot.
// The library tracks files; it never reads or writes their contents.
type DataFile struct {
	// FilePath is the file's full object-store location
	FilePath string `json:"file-path"`

	// FileFormat is the file's encoding
	FileFormat FileFormat `json:"file-format"`

	// RecordCount is the number of rows in the file
	RecordCount int64 `json:"record-count"`

	// FileSizeInBytes is the file's size
	FileSizeInBytes int64 `json:"file-size-in-bytes"`

	// Partition maps partition field names to this file's values
	Partition map[string]string `json:"partition,omitempty"`
}

// Validate checks structural invariants: a non-empty path, a known
// format, and non-negative counts.
func (d DataFile) Validate() error {
	if d.FilePath == "" {
		return fmt.Errorf("%w: empty file path", ErrInvalidDataFile)
	}
	switch d.FileFormat {
	case FormatParquet, FormatAvro, FormatOrc:
	default:
		return fmt.Errorf("%w: unknown format %q for %s", ErrInvalidDataFile, d.FileFormat, d.FilePath)
	}
	if d.RecordCount < 0 {
		return fmt.Errorf("%w: negative record count for %s", ErrInvalidDataFile, d.FilePath)
	}
	if d.FileSizeInBytes < 0 {
		return fmt.Errorf("%w: negative file size for %s", ErrInvalidDataFile, d.FilePath)
	}
	return nil
}

// Clone returns a deep copy of the data file descriptor.
func (d DataFile) Clone() DataFile {
	cp := d
	if d.Partition != nil {
		cp.Partition = make(map[string]string, len(d.Partition))
		for k, v := range d.Partition {
			cp.Partition[k] = v
		}
	}
	return cp
}
