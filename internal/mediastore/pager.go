package mediastore

import (
	"context"

	"go.uber.org/zap"

	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/types"
)

// Page is one window of query results.
type Page struct {
	Items []types.Content `json:"items"`

	// Key is the offset the page was loaded from.
	Key int `json:"key"`

	// NextKey is the offset of the following page, or nil at the end.
	NextKey *int `json:"next_key,omitempty"`
}

// Pager loads successive pages of a configuration's results. Keys are
// result offsets starting at 0. When the configuration bounds the selection,
// no more than Selection.Max results are ever returned.
type Pager struct {
	Store  *Store
	Config *picker.Configuration
}

// NewPager returns a pager over cfg.
func NewPager(store *Store, cfg *picker.Configuration) *Pager {
	return &Pager{Store: store, Config: cfg}
}

// Load returns the page at key, or the first page when key is nil. An empty
// first page fails with types.ErrNoResults.
func (p *Pager) Load(ctx context.Context, key *int) (Page, error) {
	offset := 0
	if key != nil {
		offset = *key
	}
	page := Page{Key: offset}

	size := p.Config.Pagination().PageSize
	limit := p.Config.ResultLimit()
	if limit > 0 {
		remaining := limit - offset
		if remaining <= 0 {
			return page, nil
		}
		size = min(size, remaining)
	}

	items, err := p.Store.Query(ctx, p.Config, offset, size)
	if err != nil {
		return Page{}, err
	}
	if offset == 0 && len(items) == 0 {
		return Page{}, types.ErrNoResults
	}
	page.Items = items

	end := offset + len(items)
	if len(items) == size && (limit == 0 || end < limit) {
		page.NextKey = &end
	}

	p.Store.log.Debug("page loaded",
		zap.Int("offset", offset), zap.Int("size", size), zap.Int("items", len(items)),
		zap.Bool("last", page.NextKey == nil))
	return page, nil
}

// All loads every page in order and returns the concatenated items.
func (p *Pager) All(ctx context.Context) ([]types.Content, error) {
	var out []types.Content
	var key *int
	for {
		page, err := p.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if page.NextKey == nil {
			return out, nil
		}
		key = page.NextKey
	}
}
