package query

import (
	"fmt"
	"strings"

	"github.com/solatis/pickerkt/internal/types"
)

// Operator is a comparison or logical operator with a fixed SQL token.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	In
	NotIn
	Like
	NotLike
	GreaterThan
	GreaterThanOrEquals
	LessThan
	LessThanOrEquals
	And
	Or
)

var operatorTable = [...]struct {
	name  string
	token string
}{
	Equal:               {"Equal", "="},
	NotEqual:            {"NotEqual", "!="},
	In:                  {"In", "IN"},
	NotIn:               {"NotIn", "NOT IN"},
	Like:                {"Like", "LIKE"},
	NotLike:             {"NotLike", "NOT LIKE"},
	GreaterThan:         {"GreaterThan", ">"},
	GreaterThanOrEquals: {"GreaterThanOrEquals", ">="},
	LessThan:            {"LessThan", "<"},
	LessThanOrEquals:    {"LessThanOrEquals", "<="},
	And:                 {"And", "AND"},
	Or:                  {"Or", "OR"},
}

// Operators returns every operator in declaration order.
func Operators() []Operator {
	out := make([]Operator, len(operatorTable))
	for i := range operatorTable {
		out[i] = Operator(i)
	}
	return out
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	return op >= 0 && int(op) < len(operatorTable)
}

// SQL returns the operator's SQL token.
func (op Operator) SQL() string {
	if !op.Valid() {
		return ""
	}
	return operatorTable[op].token
}

func (op Operator) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operatorTable[op].name
}

// Logical reports whether op combines predicates rather than comparing values.
func (op Operator) Logical() bool {
	return op == And || op == Or
}

// ParseOperator resolves an operator by name ("GreaterThan"), short name
// ("gt", "gte", "in", "nin", ...) or SQL token (">=").
func ParseOperator(s string) (Operator, error) {
	key := strings.TrimSpace(s)
	for i, entry := range operatorTable {
		if strings.EqualFold(key, entry.name) || strings.EqualFold(key, entry.token) {
			return Operator(i), nil
		}
	}
	switch strings.ToLower(key) {
	case "eq":
		return Equal, nil
	case "ne", "neq", "<>":
		return NotEqual, nil
	case "nin", "not_in":
		return NotIn, nil
	case "not_like", "nlike":
		return NotLike, nil
	case "gt":
		return GreaterThan, nil
	case "gte", "ge":
		return GreaterThanOrEquals, nil
	case "lt":
		return LessThan, nil
	case "lte", "le":
		return LessThanOrEquals, nil
	}
	return 0, fmt.Errorf("%w: %q", types.ErrUnknownOperator, s)
}

// MarshalText implements encoding.TextMarshaler.
func (op Operator) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownOperator, int(op))
	}
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Operator) UnmarshalText(b []byte) error {
	parsed, err := ParseOperator(string(b))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}
