// Package picker assembles a picker configuration: allowed MIME types,
// selection bounds, paging, ordering and a predicate over media-store
// columns.
//
// Construction is two-stage. A Draft is a plain value the caller (or a
// Builder) fills in; Finalize validates it and derives the effective
// predicate. The derivation is the only place implicit filters are added:
//
//	if !draft.Rebuilt && len(mimeTypes) > 0:  mime_type IN (ids...)
//	if !draft.Rebuilt && DownloadFolderOnly:  bucket_id = <download bucket>
//	if user predicate has conditions:         the user predicate
//
// A Configuration is immutable. Deriving a new one (AsBuilder, InCollection,
// ForContent) starts from the already-derived predicate and sets Rebuilt, so
// implicit filters are never stacked twice.
package picker

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

// Draft is the mutable input to Finalize.
type Draft struct {
	MimeTypes          []types.MimeType
	Selection          Selection
	Pagination         Pagination
	Orderings          []Ordering
	Predicate          *query.Expression
	DownloadFolderOnly bool

	// Rebuilt marks a draft derived from an existing configuration. Its
	// predicate already carries the implicit filters.
	Rebuilt bool
}

// NewDraft returns a draft with default selection and pagination.
func NewDraft() Draft {
	return Draft{
		Selection:  DefaultSelection(),
		Pagination: DefaultPagination(),
	}
}

// Configuration is a validated, immutable picker configuration.
type Configuration struct {
	mimeTypes          []types.MimeType
	selection          Selection
	pagination         Pagination
	orderings          []Ordering
	predicate          *query.Expression
	downloadFolderOnly bool
	rebuilt            bool

	clause query.Clause
}

// Finalize validates d and derives the effective predicate. It does not
// retain or modify anything d references.
func Finalize(d Draft) (*Configuration, error) {
	if err := d.Selection.Validate(); err != nil {
		return nil, err
	}
	if err := d.Pagination.Validate(); err != nil {
		return nil, err
	}
	if err := validateOrderings(d.Orderings); err != nil {
		return nil, err
	}

	mimes := distinctMimeTypes(d.MimeTypes)
	predicate := derivePredicate(mimes, d.DownloadFolderOnly, d.Rebuilt, d.Predicate)
	if err := query.Validate(predicate); err != nil {
		return nil, fmt.Errorf("invalid predicate: %w", err)
	}

	return &Configuration{
		mimeTypes:          mimes,
		selection:          d.Selection,
		pagination:         d.Pagination,
		orderings:          append([]Ordering(nil), d.Orderings...),
		predicate:          predicate,
		downloadFolderOnly: d.DownloadFolderOnly,
		rebuilt:            d.Rebuilt,
		clause:             query.Render(predicate),
	}, nil
}

// MustFinalize is Finalize for drafts whose validity is a programming
// invariant. It panics on invalid input.
func MustFinalize(d Draft) *Configuration {
	cfg, err := Finalize(d)
	if err != nil {
		panic(fmt.Sprintf("picker: %v", err))
	}
	return cfg
}

// derivePredicate always returns an AND-rooted expression so conditions
// appended through AsBuilder combine with AND. An AND-rooted user predicate
// that needs no injection is used as is, which keeps repeated
// encode/decode cycles from nesting it deeper.
func derivePredicate(mimes []types.MimeType, downloadOnly, rebuilt bool, user *query.Expression) *query.Expression {
	injects := !rebuilt && (len(mimes) > 0 || downloadOnly)
	if !injects {
		if user == nil {
			return query.NewExpression(query.And)
		}
		if user.Operator() == query.And {
			return user.Clone()
		}
	}
	return query.Where(query.And, func(e *query.Expression) {
		if !rebuilt && len(mimes) > 0 {
			e.IncludedIn(query.Col(types.ColumnMimeType), query.MimeTypes(mimes...))
		}
		if !rebuilt && downloadOnly {
			e.Equal(query.Col(types.ColumnCollectionID), query.Long(types.PublicDownloadBucketID))
		}
		if !user.IsEmpty() {
			e.Add(user.Clone())
		}
	})
}

func distinctMimeTypes(in []types.MimeType) []types.MimeType {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[types.MimeType]struct{}, len(in))
	out := make([]types.MimeType, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// MimeTypes returns the allowed MIME types, deduplicated in first-seen order.
func (c *Configuration) MimeTypes() []types.MimeType {
	return append([]types.MimeType(nil), c.mimeTypes...)
}

// Selection returns the selection bounds.
func (c *Configuration) Selection() Selection { return c.selection }

// Pagination returns the paging parameters.
func (c *Configuration) Pagination() Pagination { return c.pagination }

// Orderings returns the ordering terms in priority order.
func (c *Configuration) Orderings() []Ordering {
	return append([]Ordering(nil), c.orderings...)
}

// Predicate returns a copy of the effective predicate.
func (c *Configuration) Predicate() *query.Expression { return c.predicate.Clone() }

// DownloadFolderOnly reports whether the picker is limited to the shared
// download folder.
func (c *Configuration) DownloadFolderOnly() bool { return c.downloadFolderOnly }

// RebuiltAtLeastOnce reports whether c was derived from another configuration.
func (c *Configuration) RebuiltAtLeastOnce() bool { return c.rebuilt }

// Clause returns the rendered predicate with its bound arguments.
func (c *Configuration) Clause() query.Clause {
	return query.Clause{Where: c.clause.Where, Args: append([]string(nil), c.clause.Args...)}
}

// PredicateString returns the WHERE fragment with placeholders, or "" when
// the configuration does not filter.
func (c *Configuration) PredicateString() string { return c.clause.Where }

// PredicateArguments returns the bound arguments in placeholder order, or
// nil when there is no predicate or it has no list literals.
func (c *Configuration) PredicateArguments() []string {
	if c.clause.Where == "" || len(c.clause.Args) == 0 {
		return nil
	}
	return append([]string(nil), c.clause.Args...)
}

// OrderByString returns the ORDER BY fragment, e.g.
// "date_added DESC,_display_name ASC". Empty when no ordering is set.
func (c *Configuration) OrderByString() string {
	terms := make([]string, len(c.orderings))
	for i, o := range c.orderings {
		terms[i] = o.String()
	}
	return strings.Join(terms, ",")
}

// ResultLimit returns the maximum number of rows worth loading, or 0 for no
// limit. It is the selection maximum.
func (c *Configuration) ResultLimit() int {
	if c.selection.Bounded() {
		return c.selection.Max
	}
	return 0
}

// Draft returns the state c was finalized from, with the derived predicate
// as the user predicate and Rebuilt set.
func (c *Configuration) Draft() Draft {
	return Draft{
		MimeTypes:          c.MimeTypes(),
		Selection:          c.selection,
		Pagination:         c.pagination,
		Orderings:          c.Orderings(),
		Predicate:          c.predicate.Clone(),
		DownloadFolderOnly: c.downloadFolderOnly,
		Rebuilt:            true,
	}
}

// AsBuilder returns a builder seeded with c's state in rebuilt mode, so
// further predicate conditions are appended to the derived predicate and no
// implicit filter is injected again.
func (c *Configuration) AsBuilder() *Builder {
	return &Builder{draft: c.Draft()}
}

// InCollection narrows c to one collection. The all-folders id returns an
// equivalent rebuilt configuration.
func (c *Configuration) InCollection(collectionID string) (*Configuration, error) {
	b := c.AsBuilder()
	if collectionID != "" && collectionID != types.AllFoldersCollectionID {
		b.Where(func(e *query.Expression) {
			e.Equal(query.Col(types.ColumnCollectionID), collectionValue(collectionID))
		})
	}
	return b.Build()
}

// ForContent narrows c to a single content id.
func (c *Configuration) ForContent(id int64) (*Configuration, error) {
	return c.AsBuilder().Where(func(e *query.Expression) {
		e.Equal(query.Col(types.ColumnContentID), query.Long(id))
	}).Build()
}

func collectionValue(id string) query.Operand {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return query.Long(n)
	}
	return query.Quoted(id)
}

// canonical is the text equality and hashing are defined over. The
// predicate contributes its rendered form, not its tree shape.
func (c *Configuration) canonical() string {
	var b strings.Builder
	b.WriteString(strconv.FormatBool(c.downloadFolderOnly))
	b.WriteString("|")
	for i, m := range c.mimeTypes {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(m.String())
	}
	fmt.Fprintf(&b, "|%d,%d|%d,%d|", c.selection.Min, c.selection.Max, c.pagination.PageSize, c.pagination.PrefetchDistance)
	b.WriteString(c.OrderByString())
	b.WriteString("|")
	b.WriteString(c.predicate.String())
	return b.String()
}

// Equal reports whether c and other describe the same picker. Predicates
// compare by rendered text: differently shaped trees that render
// identically are equal. RebuiltAtLeastOnce is not compared.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.canonical() == other.canonical()
}

// Hash is consistent with Equal.
func (c *Configuration) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(c.canonical()))
	return h.Sum64()
}

func (c *Configuration) String() string {
	return fmt.Sprintf("Configuration(mimeTypes=%v, %s, %s, ordering=[%s], predicate=%s)",
		c.mimeTypes, c.selection, c.pagination, c.OrderByString(), c.predicate)
}
