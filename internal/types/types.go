// Package types provides domain models shared across pickerkt components.
//
// Wire-agnostic design: nothing here knows about SQL drivers, gRPC or the
// transport encoding. Conversion to and from those forms happens at the
// boundary packages (internal/picker, internal/mediastore, internal/core/api).
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Collection identifiers with special meaning.
const (
	// AllFoldersCollectionID identifies the synthetic collection that spans
	// every bucket. Narrowing a configuration to it is a no-op.
	AllFoldersCollectionID = "WILDCARD"

	// AllFoldersCollectionName is the display name of the synthetic collection.
	AllFoldersCollectionName = "All Folders"

	// PublicDownloadBucketID is the bucket id of the shared download folder
	// (BucketID("/storage/emulated/0/download")).
	PublicDownloadBucketID int64 = 540528482
)

// Resource limits enforced on predicates before they reach a row source.
const (
	// MaxExpressionDepth bounds operand nesting so recursive rendering and
	// decoding stay shallow.
	MaxExpressionDepth = 32

	// MaxBoundArguments matches SQLite's default SQLITE_MAX_VARIABLE_NUMBER.
	MaxBoundArguments = 999
)

// Order is the direction of an ordering clause.
type Order int

const (
	Descending Order = iota
	Ascending
)

// Keyword returns the SQL keyword for the direction.
func (o Order) Keyword() string {
	if o == Ascending {
		return "ASC"
	}
	return "DESC"
}

func (o Order) String() string {
	if o == Ascending {
		return "Ascending"
	}
	return "Descending"
}

// ParseOrder accepts "asc", "ascending", "desc" and "descending" in any case.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending", "":
		return Descending, nil
	}
	return Descending, fmt.Errorf("unknown order %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Order) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Order) UnmarshalText(b []byte) error {
	parsed, err := ParseOrder(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Content is a single media item as exposed by a row source.
type Content struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	MimeType       MimeType  `json:"mime_type"`
	Size           ByteSize  `json:"size"`
	DateAdded      time.Time `json:"date_added"`
	DateModified   time.Time `json:"date_modified"`
	CollectionID   string    `json:"collection_id"`
	CollectionName string    `json:"collection_name"`
}

// URI returns the content URI of the item within its media volume.
func (c Content) URI() string {
	return "content://media/external/" + c.MimeType.Group().Volume() + "/media/" + strconv.FormatInt(c.ID, 10)
}

// Row returns the item keyed by column name, with the value types a
// predicate evaluator sees: integers for ids, sizes and epoch seconds.
func (c Content) Row() map[string]any {
	row := map[string]any{
		ColumnContentID.Name():      c.ID,
		ColumnName.Name():           c.Name,
		ColumnMimeType.Name():       c.MimeType.ID(),
		ColumnSize.Name():           int64(c.Size),
		ColumnDateAdded.Name():      c.DateAdded.Unix(),
		ColumnDateModified.Name():   c.DateModified.Unix(),
		ColumnCollectionName.Name(): c.CollectionName,
	}
	if id, err := strconv.ParseInt(c.CollectionID, 10, 64); err == nil {
		row[ColumnCollectionID.Name()] = id
	} else {
		row[ColumnCollectionID.Name()] = c.CollectionID
	}
	return row
}

// Collection is a bucket of content, usually one directory.
type Collection struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	ItemCount       int               `json:"item_count"`
	TotalSize       ByteSize          `json:"total_size"`
	MimeGroupCounts map[MimeGroup]int `json:"mime_group_counts"`
	Latest          *Content          `json:"latest,omitempty"`
}

// IsAllFolders reports whether c is the synthetic all-folders aggregate.
func (c Collection) IsAllFolders() bool {
	return c.ID == AllFoldersCollectionID
}

// BucketID derives the bucket id of a directory the way MediaStore does:
// the Java String.hashCode of the lower-cased absolute path.
func BucketID(dir string) int64 {
	var h int32
	for _, r := range strings.ToLower(dir) {
		if r > 0xFFFF {
			// Supplementary characters hash as a UTF-16 surrogate pair.
			r -= 0x10000
			h = 31*h + int32(0xD800+(r>>10))
			h = 31*h + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = 31*h + int32(r)
	}
	return int64(h)
}
