package picker

import (
	"fmt"

	"github.com/solatis/pickerkt/internal/types"
)

// Selection bounds how many items a user must and may pick.
// Max 0 means unbounded.
type Selection struct {
	Min int
	Max int
}

// DefaultSelection requires one item and allows any number.
func DefaultSelection() Selection {
	return Selection{Min: 1}
}

// Bounded reports whether a maximum is set.
func (s Selection) Bounded() bool {
	return s.Max > 0
}

// Validate enforces Min >= 1 and, when bounded, Min <= Max.
func (s Selection) Validate() error {
	if s.Min < 1 {
		return fmt.Errorf("%w: min selection %d is less than 1", types.ErrInvalidSelection, s.Min)
	}
	if s.Max < 0 {
		return fmt.Errorf("%w: max selection %d is negative", types.ErrInvalidSelection, s.Max)
	}
	if s.Bounded() && s.Min > s.Max {
		return fmt.Errorf("%w: min selection %d exceeds max selection %d", types.ErrInvalidSelection, s.Min, s.Max)
	}
	return nil
}

// Allows reports whether n picked items is within bounds.
func (s Selection) Allows(n int) bool {
	if n < s.Min {
		return false
	}
	return !s.Bounded() || n <= s.Max
}

func (s Selection) String() string {
	if !s.Bounded() {
		return fmt.Sprintf("Selection(min=%d, max=unbounded)", s.Min)
	}
	return fmt.Sprintf("Selection(min=%d, max=%d)", s.Min, s.Max)
}

// Pagination controls how a row source pages through results.
type Pagination struct {
	PageSize         int
	PrefetchDistance int
}

// DefaultPagination returns 10-item pages prefetched 30 items ahead.
func DefaultPagination() Pagination {
	return Pagination{PageSize: 10, PrefetchDistance: 30}
}

// Validate enforces PageSize > 0 and PrefetchDistance >= 0.
func (p Pagination) Validate() error {
	if p.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be greater than 0, got %d", types.ErrInvalidPagination, p.PageSize)
	}
	if p.PrefetchDistance < 0 {
		return fmt.Errorf("%w: prefetch distance must not be negative, got %d", types.ErrInvalidPagination, p.PrefetchDistance)
	}
	return nil
}

func (p Pagination) String() string {
	return fmt.Sprintf("Pagination(pageSize=%d, prefetchDistance=%d)", p.PageSize, p.PrefetchDistance)
}

// Ordering sorts results by one column.
type Ordering struct {
	Column types.Column
	Order  types.Order
}

// OrderBy returns a descending ordering on c, the default direction.
func OrderBy(c types.Column) Ordering {
	return Ordering{Column: c, Order: types.Descending}
}

// String renders the ORDER BY term, e.g. "date_added DESC".
func (o Ordering) String() string {
	return o.Column.Name() + " " + o.Order.Keyword()
}

func validateOrderings(orderings []Ordering) error {
	seen := make(map[types.Column]struct{}, len(orderings))
	for _, o := range orderings {
		if !o.Column.Valid() {
			return fmt.Errorf("%w: %d", types.ErrUnknownColumn, int(o.Column))
		}
		if _, dup := seen[o.Column]; dup {
			return fmt.Errorf("%w: there are duplicate orders for column %q", types.ErrDuplicateOrdering, o.Column.Name())
		}
		seen[o.Column] = struct{}{}
	}
	return nil
}
