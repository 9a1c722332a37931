package selection

import (
	"context"
	"errors"

	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

// Loader fetches one content item admitted by a configuration.
// mediastore.Store implements it.
type Loader interface {
	Get(ctx context.Context, cfg *picker.Configuration, id int64) (types.Content, error)
}

// Result is a saved selection checked against a configuration.
type Result struct {
	// Tracker holds the surviving items in their original order.
	Tracker *Tracker
	// Missing lists ids that are not indexed.
	Missing []int64
	// Excluded lists ids the configuration does not admit.
	Excluded []int64
	// Dropped lists admitted ids past the selection maximum.
	Dropped []int64
	// InMemory is set when the predicate was evaluated with a query.Matcher
	// instead of a store lookup per item.
	InMemory bool
}

// Reconcile restores a saved selection of ids under cfg: unknown ids are
// skipped, items the predicate rejects are removed and the rest is capped
// at the selection maximum.
func Reconcile(ctx context.Context, loader Loader, cfg *picker.Configuration, ids []int64) (*Result, error) {
	everything, err := picker.New().Build()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	found := make([]types.Content, 0, len(ids))
	for _, id := range ids {
		c, err := loader.Get(ctx, everything, id)
		if errors.Is(err, types.ErrContentNotFound) {
			res.Missing = append(res.Missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, c)
	}

	staging := NewTracker(picker.Selection{Min: 1}, found...)
	before := staging.Items()
	if res.InMemory, err = retain(ctx, loader, cfg, staging); err != nil {
		return nil, err
	}
	for _, c := range before {
		if !staging.Contains(c.ID) {
			res.Excluded = append(res.Excluded, c.ID)
		}
	}

	admitted := staging.Items()
	res.Tracker = NewTracker(cfg.Selection(), admitted...)
	for _, c := range admitted {
		if !res.Tracker.Contains(c.ID) {
			res.Dropped = append(res.Dropped, c.ID)
		}
	}
	return res, nil
}

// retain removes the items of t that cfg rejects. It evaluates the
// predicate in memory and falls back to the store when the predicate has
// no CEL form or reads a column rows do not carry.
func retain(ctx context.Context, loader Loader, cfg *picker.Configuration, t *Tracker) (bool, error) {
	if m, err := query.NewMatcher(cfg.Predicate()); err == nil {
		if _, err := t.Retain(m); err == nil {
			return true, nil
		}
	}

	admitted := make(map[int64]bool, t.Len())
	for _, c := range t.Items() {
		_, err := loader.Get(ctx, cfg, c.ID)
		switch {
		case err == nil:
			admitted[c.ID] = true
		case !errors.Is(err, types.ErrContentNotFound):
			return false, err
		}
	}
	t.RemoveIf(func(c types.Content) bool { return !admitted[c.ID] })
	return false, nil
}
