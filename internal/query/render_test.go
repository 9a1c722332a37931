package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/pickerkt/internal/types"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name      string
		operand   Operand
		wantWhere string
		wantArgs  []string
	}{
		{
			name:      "nil operand",
			operand:   nil,
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "empty expression is the no-filter state",
			operand:   Where(And, nil),
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name: "scalar predicate has no arguments",
			operand: Where(And, func(e *Expression) {
				e.GreaterThan(Col(types.ColumnSize), Long(1024))
			}),
			wantWhere: "(_size > 1024)",
			wantArgs:  nil,
		},
		{
			name: "mime list becomes placeholders",
			operand: Where(And, func(e *Expression) {
				e.IncludedIn(Col(types.ColumnMimeType), MimeTypes(types.Jpeg, types.Png, types.Svg))
			}),
			wantWhere: "(mime_type IN (?,?,?))",
			wantArgs:  []string{"image/jpeg", "image/png", "image/svg+xml"},
		},
		{
			name: "arguments follow order of appearance",
			operand: Where(Or, func(e *Expression) {
				e.IncludedIn(Col(types.ColumnContentID), Longs(3, 1))
				e.NotIncludedIn(Col(types.ColumnCollectionID), Strings("540528482"))
			}),
			wantWhere: "(_id IN (?,?)) OR (bucket_id NOT IN (?))",
			wantArgs:  []string{"3", "1", "540528482"},
		},
		{
			name: "single-quoted list items are unquoted",
			operand: Where(And, func(e *Expression) {
				e.IncludedIn(Column{Name: "tag"}, StringValue{Value: "('a','b','c')"})
			}),
			wantWhere: "(tag IN (?,?,?))",
			wantArgs:  []string{"a", "b", "c"},
		},
		{
			name: "literals outside the pattern stay inline",
			operand: Where(And, func(e *Expression) {
				e.IncludedIn(Col(types.ColumnName), Strings("my photo.jpg", "b"))
			}),
			wantWhere: "(_display_name IN (my photo.jpg,b))",
			wantArgs:  nil,
		},
		{
			name: "repeated list is extracted each time",
			operand: Where(And, func(e *Expression) {
				e.IncludedIn(Col(types.ColumnContentID), Ints(1, 2))
				e.NotIncludedIn(Col(types.ColumnSize), Ints(1, 2))
			}),
			wantWhere: "(_id IN (?,?)) AND (_size NOT IN (?,?))",
			wantArgs:  []string{"1", "2", "1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.operand)
			if got.Where != tt.wantWhere {
				t.Errorf("Where = %q, want %q", got.Where, tt.wantWhere)
			}
			if !reflect.DeepEqual(got.Args, tt.wantArgs) {
				t.Errorf("Args = %#v, want %#v", got.Args, tt.wantArgs)
			}
		})
	}
}

func TestRenderString_QuotedList(t *testing.T) {
	got := RenderString("(x IN ('a','b','c'))")
	if got.Where != "(x IN (?,?,?))" {
		t.Errorf("Where = %q", got.Where)
	}
	if !reflect.DeepEqual(got.Args, []string{"a", "b", "c"}) {
		t.Errorf("Args = %#v", got.Args)
	}
	if got.Empty() {
		t.Error("Empty() = true for a non-empty clause")
	}
	if len(got.BindArgs()) != 3 {
		t.Errorf("BindArgs() length = %d", len(got.BindArgs()))
	}
}

func TestRender_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("placeholder count equals list cardinality", prop.ForAll(
		func(items []string) bool {
			clause := Render(Where(And, func(e *Expression) {
				e.IncludedIn(Col(types.ColumnName), Strings(items...))
			}))
			want := "(_display_name IN (" + strings.TrimSuffix(strings.Repeat("?,", len(items)), ",") + "))"
			return clause.Where == want && reflect.DeepEqual(clause.Args, items)
		},
		gen.SliceOf(gen.Identifier()).SuchThat(func(v []string) bool { return len(v) > 0 }),
	))

	properties.Property("integer lists round-trip through arguments", prop.ForAll(
		func(ids []int64) bool {
			clause := Render(Where(And, func(e *Expression) {
				e.IncludedIn(Col(types.ColumnContentID), Longs(ids...))
			}))
			if len(clause.Args) != len(ids) {
				return false
			}
			for i, id := range ids {
				if clause.Args[i] != Long(id).String() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64()).SuchThat(func(v []int64) bool { return len(v) > 0 }),
	))

	properties.TestingRun(t)
}

func TestValidate(t *testing.T) {
	t.Run("accepts ordinary predicates", func(t *testing.T) {
		e := Where(And, func(e *Expression) {
			e.IncludedIn(Col(types.ColumnMimeType), MimeTypes(types.Png))
			e.GreaterThan(Col(types.ColumnSize), Long(0))
		})
		if err := Validate(e); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
	})

	t.Run("rejects deep nesting", func(t *testing.T) {
		var o Operand = Column{Name: "a"}
		for i := 0; i < types.MaxExpressionDepth+1; i++ {
			o = Binary(o, And, Column{Name: "b"})
		}
		if err := Validate(o); !errors.Is(err, types.ErrExpressionTooDeep) {
			t.Errorf("Validate error = %v, want ErrExpressionTooDeep", err)
		}
	})

	t.Run("rejects too many bound arguments", func(t *testing.T) {
		ids := make([]int64, types.MaxBoundArguments+1)
		for i := range ids {
			ids[i] = int64(i)
		}
		e := Where(And, func(e *Expression) {
			e.IncludedIn(Col(types.ColumnContentID), Longs(ids...))
		})
		if err := Validate(e); !errors.Is(err, types.ErrTooManyArguments) {
			t.Errorf("Validate error = %v, want ErrTooManyArguments", err)
		}
	})

	t.Run("rejects nil operands", func(t *testing.T) {
		e := Where(And, func(e *Expression) {
			e.Equal(Col(types.ColumnName), nil)
		})
		if err := Validate(e); !errors.Is(err, ErrNilOperand) {
			t.Errorf("Validate error = %v, want ErrNilOperand", err)
		}
	})

	t.Run("rejects unknown columns", func(t *testing.T) {
		e := Where(And, func(e *Expression) {
			e.Equal(Col(types.Column(99)), Long(1))
		})
		if err := Validate(e); !errors.Is(err, types.ErrUnknownColumn) {
			t.Errorf("Validate error = %v, want ErrUnknownColumn", err)
		}
	})
}

func TestReferences(t *testing.T) {
	e := Where(And, func(e *Expression) {
		e.Add(Where(Or, func(inner *Expression) {
			inner.Equal(Col(types.ColumnCollectionID), Long(1))
		}))
	})
	if !References(e, types.ColumnCollectionID) {
		t.Error("References(bucket_id) = false, want true")
	}
	if References(e, types.ColumnMimeType) {
		t.Error("References(mime_type) = true, want false")
	}
	if !References(Binary(Column{Name: "_size"}, GreaterThan, Long(0)), types.ColumnSize) {
		t.Error("raw Column reference not detected")
	}
}
