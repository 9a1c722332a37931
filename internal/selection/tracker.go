// Package selection tracks the items a user has picked under a picker's
// selection bounds.
package selection

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

// Tracker is a set of selected contents keyed by id, ordered by the time
// each was selected. The set never grows beyond the selection maximum.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	bounds picker.Selection
	seq    uint64
	items  map[int64]entry
	now    func() time.Time
}

type entry struct {
	seq        uint64
	selectedAt time.Time
	content    types.Content
}

// NewTracker returns a tracker bounded by sel, seeded with initial in order.
// Items past the maximum are dropped.
func NewTracker(sel picker.Selection, initial ...types.Content) *Tracker {
	t := &Tracker{
		bounds: sel,
		items:  make(map[int64]entry),
		now:    time.Now,
	}
	t.SelectAll(initial)
	return t
}

// Bounds returns the selection bounds the tracker enforces.
func (t *Tracker) Bounds() picker.Selection { return t.bounds }

func (t *Tracker) full() bool {
	return t.bounds.Bounded() && len(t.items) >= t.bounds.Max
}

// add assumes t.mu is held for writing.
func (t *Tracker) add(c types.Content, at time.Time) bool {
	if _, ok := t.items[c.ID]; ok || t.full() {
		return false
	}
	t.seq++
	t.items[c.ID] = entry{seq: t.seq, selectedAt: at, content: c}
	return true
}

// Select adds c. It returns false when c is already selected or the
// selection is full.
func (t *Tracker) Select(c types.Content) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.add(c, t.now())
}

// SelectAll adds cs in order until the selection is full and returns how
// many were added.
func (t *Tracker) SelectAll(cs []types.Content) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	at := t.now()
	added := 0
	for _, c := range cs {
		if t.add(c, at) {
			added++
		}
	}
	return added
}

// Unselect removes the item with id. It reports whether it was selected.
func (t *Tracker) Unselect(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return false
	}
	delete(t.items, id)
	return true
}

// Toggle selects c if it is not selected and unselects it otherwise. It
// returns whether c is selected afterwards.
func (t *Tracker) Toggle(c types.Content) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[c.ID]; ok {
		delete(t.items, c.ID)
		return false
	}
	return t.add(c, t.now())
}

// Clear unselects everything.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.items)
}

// Invert selects every item of universe that is not currently selected and
// unselects the rest.
func (t *Tracker) Invert(universe []types.Content) {
	t.mu.Lock()
	defer t.mu.Unlock()
	previous := t.items
	t.items = make(map[int64]entry, len(universe))
	at := t.now()
	for _, c := range universe {
		if _, ok := previous[c.ID]; !ok {
			t.add(c, at)
		}
	}
}

// ReplaceAll makes items the selection. Items already selected keep their
// position; new ones are appended in order.
func (t *Tracker) ReplaceAll(items []types.Content) {
	t.mu.Lock()
	defer t.mu.Unlock()
	keep := make(map[int64]struct{}, len(items))
	for _, c := range items {
		keep[c.ID] = struct{}{}
	}
	for id := range t.items {
		if _, ok := keep[id]; !ok {
			delete(t.items, id)
		}
	}
	at := t.now()
	for _, c := range items {
		t.add(c, at)
	}
}

// Contains reports whether id is selected.
func (t *Tracker) Contains(id int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.items[id]
	return ok
}

// Len returns the number of selected items.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Satisfied reports whether the selection size is within bounds, i.e. the
// user may confirm it.
func (t *Tracker) Satisfied() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bounds.Allows(len(t.items))
}

func (t *Tracker) sorted() []entry {
	out := make([]entry, 0, len(t.items))
	for _, e := range t.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Items returns the selected contents in selection order.
func (t *Tracker) Items() []types.Content {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := t.sorted()
	out := make([]types.Content, len(entries))
	for i, e := range entries {
		out[i] = e.content
	}
	return out
}

// Order maps each selected id to its zero-based position in Items.
func (t *Tracker) Order() map[int64]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[int64]int, len(t.items))
	for i, e := range t.sorted() {
		out[e.content.ID] = i
	}
	return out
}

// RemoveIf unselects every item fn accepts and returns how many were
// removed.
func (t *Tracker) RemoveIf(fn func(types.Content) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, e := range t.items {
		if fn(e.content) {
			delete(t.items, id)
			removed++
		}
	}
	return removed
}

// Retain unselects every item m rejects, e.g. after the picker configuration
// changed. Evaluation errors abort without modifying the selection.
func (t *Tracker) Retain(m *query.Matcher) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var reject []int64
	for id, e := range t.items {
		ok, err := m.Match(e.content.Row())
		if err != nil {
			return 0, fmt.Errorf("evaluate content %d: %w", id, err)
		}
		if !ok {
			reject = append(reject, id)
		}
	}
	for _, id := range reject {
		delete(t.items, id)
	}
	return len(reject), nil
}

type savedEntry struct {
	SelectedAt time.Time     `json:"selected_at"`
	Content    types.Content `json:"content"`
}

// MarshalJSON saves the selection in order with selection times.
func (t *Tracker) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := t.sorted()
	out := make([]savedEntry, len(entries))
	for i, e := range entries {
		out[i] = savedEntry{SelectedAt: e.selectedAt, Content: e.content}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a selection saved by MarshalJSON, ordered by
// selection time. The tracker keeps its bounds; entries past the maximum
// are dropped.
func (t *Tracker) UnmarshalJSON(data []byte) error {
	var saved []savedEntry
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}
	sort.SliceStable(saved, func(i, j int) bool { return saved[i].SelectedAt.Before(saved[j].SelectedAt) })

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.items == nil {
		t.items = make(map[int64]entry, len(saved))
	} else {
		clear(t.items)
	}
	if t.now == nil {
		t.now = time.Now
	}
	for _, s := range saved {
		t.add(s.Content, s.SelectedAt)
	}
	return nil
}
