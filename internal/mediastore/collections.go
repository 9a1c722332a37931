package mediastore

import (
	"context"
	"fmt"

	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

// Collections groups the contents cfg admits by bucket, in the order the
// first item of each bucket appears under cfg's ordering. Unless cfg already
// filters on bucket_id, the list starts with the All Folders aggregate.
func (s *Store) Collections(ctx context.Context, cfg *picker.Configuration) ([]types.Collection, error) {
	if err := s.checkClause(cfg); err != nil {
		return nil, err
	}
	items, err := s.run(ctx, "collections", s.selectContents(cfg, 0, 0))
	if err != nil {
		return nil, err
	}

	collections := groupByBucket(items)
	if len(collections) == 0 {
		return nil, nil
	}
	if !query.References(cfg.Predicate(), types.ColumnCollectionID) {
		collections = append([]types.Collection{allFolders(collections)}, collections...)
	}
	return collections, nil
}

// Collection returns one collection under cfg. The all-folders id (or an
// empty id) returns the aggregate over every bucket.
func (s *Store) Collection(ctx context.Context, cfg *picker.Configuration, id string) (types.Collection, error) {
	narrowed, err := cfg.InCollection(id)
	if err != nil {
		return types.Collection{}, err
	}
	collections, err := s.Collections(ctx, narrowed)
	if err != nil {
		return types.Collection{}, err
	}
	wildcard := id == "" || id == types.AllFoldersCollectionID
	switch {
	case wildcard && len(collections) > 0:
		if collections[0].IsAllFolders() {
			return collections[0], nil
		}
		// The configuration itself pins a bucket.
		if len(collections) == 1 {
			return collections[0], nil
		}
	case !wildcard && len(collections) == 1:
		return collections[0], nil
	}
	return types.Collection{}, fmt.Errorf("collection %q: %w", id, types.ErrCollectionNotFound)
}

func groupByBucket(items []types.Content) []types.Collection {
	index := make(map[string]int)
	var out []types.Collection
	for i := range items {
		c := items[i]
		pos, ok := index[c.CollectionID]
		if !ok {
			pos = len(out)
			index[c.CollectionID] = pos
			out = append(out, types.Collection{
				ID:              c.CollectionID,
				Name:            c.CollectionName,
				MimeGroupCounts: make(map[types.MimeGroup]int),
			})
		}
		accumulate(&out[pos], c, 1, c.Size, map[types.MimeGroup]int{c.MimeType.Group(): 1})
	}
	return out
}

func allFolders(collections []types.Collection) types.Collection {
	all := types.Collection{
		ID:              types.AllFoldersCollectionID,
		Name:            types.AllFoldersCollectionName,
		MimeGroupCounts: make(map[types.MimeGroup]int),
	}
	for _, c := range collections {
		if c.Latest == nil {
			continue
		}
		accumulate(&all, *c.Latest, c.ItemCount, c.TotalSize, c.MimeGroupCounts)
	}
	return all
}

// accumulate adds count items of total size to dst, keeping the most
// recently added item as Latest. Ties keep the earlier item.
func accumulate(dst *types.Collection, latest types.Content, count int, size types.ByteSize, groups map[types.MimeGroup]int) {
	dst.ItemCount += count
	dst.TotalSize += size
	for g, n := range groups {
		dst.MimeGroupCounts[g] += n
	}
	if dst.Latest == nil || latest.DateAdded.After(dst.Latest.DateAdded) {
		item := latest
		dst.Latest = &item
	}
}
