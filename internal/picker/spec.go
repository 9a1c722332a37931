package picker

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

var validate = validator.New()

// Spec is the declarative form of a picker, as read from a YAML/JSON picker
// file or a request map:
//
//	mime_groups: [image]
//	selection: {min: 1, max: 10}
//	order_by:
//	  - {column: date_added, order: desc}
//	where:
//	  and:
//	    - {column: _size, op: gt, value: 0}
//	    - {column: bucket_display_name, op: like, value: "Cam%"}
type Spec struct {
	MimeTypes          []string       `mapstructure:"mime_types" validate:"dive,required"`
	MimeGroups         []string       `mapstructure:"mime_groups" validate:"dive,required"`
	Selection          SelectionSpec  `mapstructure:"selection"`
	Pagination         PaginationSpec `mapstructure:"pagination"`
	OrderBy            []OrderingSpec `mapstructure:"order_by" validate:"dive"`
	Where              *PredicateSpec `mapstructure:"where"`
	DownloadFolderOnly bool           `mapstructure:"download_folder_only"`
}

// SelectionSpec mirrors Selection. Unset fields keep the defaults; set
// fields are checked by Selection.Validate.
type SelectionSpec struct {
	Min *int `mapstructure:"min"`
	Max *int `mapstructure:"max"`
}

// PaginationSpec mirrors Pagination. Unset fields keep the defaults.
type PaginationSpec struct {
	PageSize         *int `mapstructure:"page_size"`
	PrefetchDistance *int `mapstructure:"prefetch_distance"`
}

// OrderingSpec names a column and an optional direction (default desc).
type OrderingSpec struct {
	Column string `mapstructure:"column" validate:"required"`
	Order  string `mapstructure:"order" validate:"omitempty,oneof=asc desc ASC DESC ascending descending"`
}

// PredicateSpec is either a group (exactly one of And, Or) or a comparison
// (Column, Op, Value).
type PredicateSpec struct {
	And []PredicateSpec `mapstructure:"and" validate:"dive"`
	Or  []PredicateSpec `mapstructure:"or" validate:"dive"`

	Column string `mapstructure:"column"`
	Op     string `mapstructure:"op" validate:"omitempty,oneof=eq ne gt gte lt lte like not_like in not_in"`
	Value  any    `mapstructure:"value"`
}

// ErrInvalidSpec wraps every problem found while turning a Spec into a
// Builder.
var ErrInvalidSpec = errors.New("invalid picker spec")

// DecodeSpec decodes a generic map (from viper, JSON or a structpb.Struct)
// into a Spec. Unknown keys are rejected.
func DecodeSpec(input map[string]any) (Spec, error) {
	var s Spec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "mapstructure",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Spec{}, err
	}
	if err := dec.Decode(input); err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return s, nil
}

// Builder validates s and returns a Builder seeded from it.
func (s Spec) Builder() (*Builder, error) {
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	b := New()
	for _, name := range s.MimeTypes {
		m, err := types.ParseMimeType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		b.AllowMimeTypes(m)
	}
	for _, name := range s.MimeGroups {
		g, err := types.ParseMimeGroup(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		b.AllowMimeGroups(g)
	}

	b.Selection(func(sel *Selection) {
		setInt(&sel.Min, s.Selection.Min)
		setInt(&sel.Max, s.Selection.Max)
	})
	b.Pagination(func(p *Pagination) {
		setInt(&p.PageSize, s.Pagination.PageSize)
		setInt(&p.PrefetchDistance, s.Pagination.PrefetchDistance)
	})

	for _, o := range s.OrderBy {
		col, err := types.ParseColumn(o.Column)
		if err != nil {
			return nil, fmt.Errorf("%w: order_by: %v", ErrInvalidSpec, err)
		}
		order, err := types.ParseOrder(o.Order)
		if err != nil {
			return nil, fmt.Errorf("%w: order_by: %v", ErrInvalidSpec, err)
		}
		b.OrderBy(col, order)
	}

	if s.Where != nil {
		operand, err := s.Where.operand("where")
		if err != nil {
			return nil, err
		}
		if err := query.ValidateUntrusted(operand); err != nil {
			return nil, fmt.Errorf("%w: where: %w", ErrInvalidSpec, err)
		}
		b.Where(func(e *query.Expression) { e.Add(operand) })
	}
	b.DownloadFolderOnly(s.DownloadFolderOnly)
	return b, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Build is Builder followed by Build.
func (s Spec) Build() (*Configuration, error) {
	b, err := s.Builder()
	if err != nil {
		return nil, err
	}
	return b.Build()
}

func (p PredicateSpec) operand(path string) (query.Operand, error) {
	groups := 0
	if len(p.And) > 0 {
		groups++
	}
	if len(p.Or) > 0 {
		groups++
	}
	comparison := p.Column != "" || p.Op != ""
	switch {
	case groups > 1 || (groups == 1 && comparison):
		return nil, fmt.Errorf("%w: %s: node mixes and, or and comparison", ErrInvalidSpec, path)
	case groups == 0 && !comparison:
		return nil, fmt.Errorf("%w: %s: empty predicate node", ErrInvalidSpec, path)
	}

	if groups == 1 {
		op, children, key := query.And, p.And, "and"
		if len(p.Or) > 0 {
			op, children, key = query.Or, p.Or, "or"
		}
		e := query.NewExpression(op)
		for i, child := range children {
			c, err := child.operand(fmt.Sprintf("%s.%s[%d]", path, key, i))
			if err != nil {
				return nil, err
			}
			e.Add(c)
		}
		return e, nil
	}

	if p.Column == "" || p.Op == "" {
		return nil, fmt.Errorf("%w: %s: comparison needs column and op", ErrInvalidSpec, path)
	}
	col, err := types.ParseColumn(p.Column)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, path, err)
	}
	op, err := query.ParseOperator(p.Op)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, path, err)
	}

	var value query.Operand
	if op == query.In || op == query.NotIn {
		value, err = listValue(p.Value)
	} else {
		value, err = scalarValue(p.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s.value: %w", ErrInvalidSpec, path, err)
	}
	return query.Binary(query.Col(col), op, value), nil
}

func scalarValue(v any) (query.Operand, error) {
	switch x := v.(type) {
	case string:
		return query.Quoted(x), nil
	case bool:
		if x {
			return query.Long(1), nil
		}
		return query.Long(0), nil
	case int:
		return query.Int(x), nil
	case int64:
		return query.Long(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", x)
		}
		return query.Long(int64(x)), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return query.Long(int64(x)), nil
		}
		return query.Double(x), nil
	case nil:
		return nil, errors.New("missing")
	}
	return nil, fmt.Errorf("unsupported scalar %T", v)
}

func listValue(v any) (query.Operand, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	if len(items) == 0 {
		return nil, errors.New("empty list")
	}

	var (
		strs    []string
		longs   []int64
		doubles []float64
	)
	for _, item := range items {
		s, err := scalarValue(item)
		if err != nil {
			return nil, err
		}
		switch x := s.(type) {
		case query.StringValue:
			// Lists render unquoted; the placeholder pass binds each item
			// only if it stays inside the list pattern.
			str, _ := item.(string)
			if !query.SafeListItem(str) {
				return nil, fmt.Errorf("%w: list item %q", types.ErrUnsafeLiteral, str)
			}
			strs = append(strs, str)
		case query.LongValue:
			longs = append(longs, x.Value)
			doubles = append(doubles, float64(x.Value))
		case query.DoubleValue:
			doubles = append(doubles, x.Value)
		}
	}
	switch {
	case len(strs) == len(items):
		return query.Strings(strs...), nil
	case len(longs) == len(items):
		return query.Longs(longs...), nil
	case len(doubles) == len(items):
		return query.Doubles(doubles...), nil
	}
	return nil, errors.New("list mixes strings and numbers")
}
