package types

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// Column is a media-store column a predicate or ordering can reference.
type Column int

const (
	ColumnName Column = iota
	ColumnMimeType
	ColumnSize
	ColumnDateAdded
	ColumnDateModified
	ColumnCollectionID
	ColumnContentID
	ColumnCollectionName
)

var columnNames = [...]string{
	ColumnName:           "_display_name",
	ColumnMimeType:       "mime_type",
	ColumnSize:           "_size",
	ColumnDateAdded:      "date_added",
	ColumnDateModified:   "date_modified",
	ColumnCollectionID:   "bucket_id",
	ColumnContentID:      "_id",
	ColumnCollectionName: "bucket_display_name",
}

// Enum names, used by the transport encoding and declarative picker files.
var columnLabels = [...]string{
	ColumnName:           "Name",
	ColumnMimeType:       "ContentMimeType",
	ColumnSize:           "ByteSize",
	ColumnDateAdded:      "DateAdded",
	ColumnDateModified:   "DateModified",
	ColumnCollectionID:   "CollectionId",
	ColumnContentID:      "ContentId",
	ColumnCollectionName: "CollectionName",
}

// Columns returns every known column in declaration order.
func Columns() []Column {
	out := make([]Column, len(columnNames))
	for i := range columnNames {
		out[i] = Column(i)
	}
	return out
}

// Name returns the SQL column name.
func (c Column) Name() string {
	if c < 0 || int(c) >= len(columnNames) {
		return ""
	}
	return columnNames[c]
}

func (c Column) String() string {
	if c < 0 || int(c) >= len(columnLabels) {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnLabels[c]
}

// Valid reports whether c is a known column.
func (c Column) Valid() bool {
	return c >= 0 && int(c) < len(columnNames)
}

// ParseColumn resolves a column by SQL name ("bucket_id") or by enum name in
// any case style ("CollectionId", "collection_id", "collection-id").
func ParseColumn(s string) (Column, error) {
	s = strings.TrimSpace(s)
	for i, name := range columnNames {
		if s == name {
			return Column(i), nil
		}
	}
	snake := strcase.ToSnake(s)
	for i, label := range columnLabels {
		if snake == strcase.ToSnake(label) {
			return Column(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Column) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColumn, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Column) UnmarshalText(b []byte) error {
	parsed, err := ParseColumn(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
