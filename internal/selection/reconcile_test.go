package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

// fakeLoader admits every known id under an empty predicate and rejects the
// ids in rejected under any other.
type fakeLoader struct {
	items    map[int64]types.Content
	rejected map[int64]bool
	filtered int
	err      error
}

func newFakeLoader(cs ...types.Content) *fakeLoader {
	f := &fakeLoader{items: make(map[int64]types.Content), rejected: make(map[int64]bool)}
	for _, c := range cs {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeLoader) Get(_ context.Context, cfg *picker.Configuration, id int64) (types.Content, error) {
	if f.err != nil {
		return types.Content{}, f.err
	}
	c, ok := f.items[id]
	if !ok {
		return types.Content{}, fmt.Errorf("content %d: %w", id, types.ErrContentNotFound)
	}
	if !cfg.Predicate().IsEmpty() {
		f.filtered++
		if f.rejected[id] {
			return types.Content{}, fmt.Errorf("content %d: %w", id, types.ErrContentNotFound)
		}
	}
	return c, nil
}

func TestReconcileInMemory(t *testing.T) {
	loader := newFakeLoader(content(1, types.Jpeg), content(2, types.Mpeg4), content(3, types.Png), content(4, types.Gif))
	cfg := picker.New().
		AllowMimeGroups(types.GroupImage).
		Selection(func(s *picker.Selection) { s.Max = 2 }).
		MustBuild()

	res, err := Reconcile(context.Background(), loader, cfg, []int64{1, 99, 2, 3, 4, 1})
	require.NoError(t, err)

	assert.True(t, res.InMemory)
	assert.Equal(t, 0, loader.filtered)
	assert.Equal(t, []int64{99}, res.Missing)
	assert.Equal(t, []int64{2}, res.Excluded)
	assert.Equal(t, []int64{4}, res.Dropped)
	assert.Equal(t, []int64{1, 3}, ids(res.Tracker.Items()))
	assert.True(t, res.Tracker.Satisfied())
	assert.Equal(t, cfg.Selection(), res.Tracker.Bounds())
}

func TestReconcileFallsBackToStore(t *testing.T) {
	loader := newFakeLoader(content(1, types.Jpeg), content(3, types.Png))
	loader.rejected[3] = true
	cfg := picker.New().Where(func(e *query.Expression) {
		e.GreaterThan(query.Column{Name: "width"}, query.Long(100))
	}).MustBuild()

	res, err := Reconcile(context.Background(), loader, cfg, []int64{3, 1})
	require.NoError(t, err)

	assert.False(t, res.InMemory)
	assert.Equal(t, 2, loader.filtered)
	assert.Equal(t, []int64{3}, res.Excluded)
	assert.Equal(t, []int64{1}, ids(res.Tracker.Items()))
	assert.Empty(t, res.Dropped)
}

func TestReconcileUnsatisfied(t *testing.T) {
	loader := newFakeLoader(content(1, types.Mpeg4))
	cfg := picker.New().AllowMimeTypes(types.Png).MustBuild()

	res, err := Reconcile(context.Background(), loader, cfg, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Tracker.Len())
	assert.False(t, res.Tracker.Satisfied())
}

func TestReconcileLoaderError(t *testing.T) {
	loader := newFakeLoader(content(1, types.Jpeg))
	loader.err = errors.New("database is locked")

	_, err := Reconcile(context.Background(), loader, picker.New().MustBuild(), []int64{1})
	assert.ErrorIs(t, err, loader.err)
}
