package query

import (
	"errors"
	"fmt"
	"math"

	"github.com/solatis/pickerkt/internal/types"
)

// ErrNilOperand indicates a binary expression with a missing side.
var ErrNilOperand = errors.New("binary expression has a nil operand")

// ErrNonFinite indicates a NaN or infinite double literal.
var ErrNonFinite = errors.New("double literal is not finite")

// Validate checks resource limits and structural sanity of a predicate tree.
//
// Limits are enforced here, when a configuration is finalized, rather than
// when a row source executes the query:
//   - nesting deeper than types.MaxExpressionDepth
//   - more than types.MaxBoundArguments extracted list literals
//   - unknown operators or columns
//   - binary expressions with a nil side
//   - NaN or infinite double literals
func Validate(o Operand) error {
	if o == nil {
		return nil
	}
	if err := validateNode(o, 1); err != nil {
		return err
	}
	if n := len(Render(o).Args); n > types.MaxBoundArguments {
		return fmt.Errorf("%w: %d > %d", types.ErrTooManyArguments, n, types.MaxBoundArguments)
	}
	return nil
}

func validateNode(o Operand, depth int) error {
	if depth > types.MaxExpressionDepth {
		return fmt.Errorf("%w: limit %d", types.ErrExpressionTooDeep, types.MaxExpressionDepth)
	}

	switch v := o.(type) {
	case *Expression:
		if v == nil {
			return nil
		}
		if !v.op.Valid() {
			return fmt.Errorf("%w: %d", types.ErrUnknownOperator, int(v.op))
		}
		for _, c := range v.conditions {
			if c == nil {
				return ErrNilOperand
			}
			if err := validateNode(c, depth+1); err != nil {
				return err
			}
		}
	case BinaryExpression:
		if !v.Operator.Valid() {
			return fmt.Errorf("%w: %d", types.ErrUnknownOperator, int(v.Operator))
		}
		if v.Left == nil || v.Right == nil {
			return ErrNilOperand
		}
		if err := validateNode(v.Left, depth+1); err != nil {
			return err
		}
		return validateNode(v.Right, depth+1)
	case ContentColumn:
		if !v.Column.Valid() {
			return fmt.Errorf("%w: %d", types.ErrUnknownColumn, int(v.Column))
		}
	case DoubleValue:
		if !finite(v.Value) {
			return ErrNonFinite
		}
	case DoubleListValue:
		for _, f := range v.Values {
			if !finite(f) {
				return ErrNonFinite
			}
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Depth returns the nesting depth of o; a leaf has depth 1.
func Depth(o Operand) int {
	switch v := o.(type) {
	case nil:
		return 0
	case *Expression:
		if v == nil {
			return 0
		}
		deepest := 0
		for _, c := range v.conditions {
			if d := Depth(c); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case BinaryExpression:
		l, r := Depth(v.Left), Depth(v.Right)
		if r > l {
			l = r
		}
		return l + 1
	default:
		return 1
	}
}

// References reports whether o compares against column c anywhere in the tree.
func References(o Operand, c types.Column) bool {
	switch v := o.(type) {
	case *Expression:
		if v == nil {
			return false
		}
		for _, child := range v.conditions {
			if References(child, c) {
				return true
			}
		}
	case BinaryExpression:
		return References(v.Left, c) || References(v.Right, c)
	case ContentColumn:
		return v.Column == c
	case Column:
		return v.Name == c.Name()
	}
	return false
}
