package picker

import (
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

// Builder is a fluent front end for a Draft.
//
//	cfg, err := picker.New().
//		AllowMimeTypes(types.Jpeg, types.Gif).
//		Selection(func(s *picker.Selection) { s.Max = 10 }).
//		OrderBy(types.ColumnMimeType, types.Descending).
//		Where(func(e *query.Expression) {
//			e.GreaterThan(query.Col(types.ColumnSize), query.Long(0))
//		}).
//		Build()
type Builder struct {
	draft Draft
}

// New returns a builder over NewDraft().
func New() *Builder {
	return &Builder{draft: NewDraft()}
}

// FromDraft returns a builder over a copy of d.
func FromDraft(d Draft) *Builder {
	d.MimeTypes = append([]types.MimeType(nil), d.MimeTypes...)
	d.Orderings = append([]Ordering(nil), d.Orderings...)
	d.Predicate = d.Predicate.Clone()
	return &Builder{draft: d}
}

// AllowMimeTypes appends allowed MIME types. Duplicates are dropped at build.
func (b *Builder) AllowMimeTypes(ms ...types.MimeType) *Builder {
	b.draft.MimeTypes = append(b.draft.MimeTypes, ms...)
	return b
}

// AllowMimeGroups appends every known MIME type of each group.
func (b *Builder) AllowMimeGroups(groups ...types.MimeGroup) *Builder {
	for _, g := range groups {
		b.draft.MimeTypes = append(b.draft.MimeTypes, types.KnownMimeTypesOf(g)...)
	}
	return b
}

// Selection lets fn adjust the selection bounds.
func (b *Builder) Selection(fn func(s *Selection)) *Builder {
	fn(&b.draft.Selection)
	return b
}

// Pagination lets fn adjust the paging parameters.
func (b *Builder) Pagination(fn func(p *Pagination)) *Builder {
	fn(&b.draft.Pagination)
	return b
}

// OrderBy appends an ordering term.
func (b *Builder) OrderBy(c types.Column, o types.Order) *Builder {
	b.draft.Orderings = append(b.draft.Orderings, Ordering{Column: c, Order: o})
	return b
}

// Where lets fn append conditions to the user predicate (default AND).
// Repeated calls keep appending to the same expression.
func (b *Builder) Where(fn func(e *query.Expression)) *Builder {
	if b.draft.Predicate == nil {
		b.draft.Predicate = query.NewExpression(query.And)
	}
	fn(b.draft.Predicate)
	return b
}

// DownloadFolderOnly limits the picker to the shared download folder.
func (b *Builder) DownloadFolderOnly(v bool) *Builder {
	b.draft.DownloadFolderOnly = v
	return b
}

// Draft returns a copy of the builder's current draft.
func (b *Builder) Draft() Draft {
	return FromDraft(b.draft).draft
}

// Build finalizes the current draft.
func (b *Builder) Build() (*Configuration, error) {
	return Finalize(b.draft)
}

// MustBuild finalizes the current draft and panics on invalid input.
func (b *Builder) MustBuild() *Configuration {
	return MustFinalize(b.draft)
}
