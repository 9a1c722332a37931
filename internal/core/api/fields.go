package api

import (
	"strconv"
	"time"

	"github.com/solatis/pickerkt/internal/mediastore"
	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/selection"
	"github.com/solatis/pickerkt/internal/types"
)

// Response bodies are built as map[string]any for structpb.NewStruct, which
// accepts only JSON-shaped values.

func planFields(cfg *picker.Configuration, token string) map[string]any {
	args := make([]any, 0, len(cfg.PredicateArguments()))
	for _, a := range cfg.PredicateArguments() {
		args = append(args, a)
	}
	mimes := make([]any, 0, len(cfg.MimeTypes()))
	for _, m := range cfg.MimeTypes() {
		mimes = append(mimes, m.ID())
	}
	sel := map[string]any{"min": cfg.Selection().Min}
	if cfg.Selection().Bounded() {
		sel["max"] = cfg.Selection().Max
	}
	return map[string]any{
		"predicate":  cfg.PredicateString(),
		"arguments":  args,
		"order_by":   cfg.OrderByString(),
		"mime_types": mimes,
		"selection":  sel,
		"pagination": map[string]any{
			"page_size":         cfg.Pagination().PageSize,
			"prefetch_distance": cfg.Pagination().PrefetchDistance,
		},
		"hash":       strconv.FormatUint(cfg.Hash(), 16),
		"token":      token,
		"session_id": string(types.NewSessionID()),
	}
}

func selectFields(res *selection.Result) map[string]any {
	items := res.Tracker.Items()
	out := make([]any, len(items))
	for i, c := range items {
		out[i] = contentFields(c)
	}
	return map[string]any{
		"items":     out,
		"count":     len(items),
		"satisfied": res.Tracker.Satisfied(),
		"missing":   idList(res.Missing),
		"excluded":  idList(res.Excluded),
		"dropped":   idList(res.Dropped),
	}
}

func idList(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

func pageFields(page mediastore.Page) map[string]any {
	items := make([]any, len(page.Items))
	for i, c := range page.Items {
		items[i] = contentFields(c)
	}
	fields := map[string]any{
		"items":    items,
		"key":      page.Key,
		"next_key": nil,
	}
	if page.NextKey != nil {
		fields["next_key"] = *page.NextKey
	}
	return fields
}

func contentFields(c types.Content) map[string]any {
	return map[string]any{
		"id":              strconv.FormatInt(c.ID, 10),
		"name":            c.Name,
		"mime_type":       c.MimeType.ID(),
		"mime_group":      c.MimeType.Group().String(),
		"size":            int64(c.Size),
		"size_text":       c.Size.HumanReadable(),
		"date_added":      c.DateAdded.UTC().Format(time.RFC3339),
		"date_modified":   c.DateModified.UTC().Format(time.RFC3339),
		"collection_id":   c.CollectionID,
		"collection_name": c.CollectionName,
		"uri":             c.URI(),
	}
}

func collectionFields(c types.Collection) map[string]any {
	groups := make(map[string]any, len(c.MimeGroupCounts))
	for g, n := range c.MimeGroupCounts {
		groups[g.String()] = n
	}
	fields := map[string]any{
		"id":                c.ID,
		"name":              c.Name,
		"item_count":        c.ItemCount,
		"total_size":        int64(c.TotalSize),
		"total_size_text":   c.TotalSize.HumanReadable(),
		"mime_group_counts": groups,
	}
	if c.Latest != nil {
		fields["latest"] = contentFields(*c.Latest)
	}
	return fields
}
