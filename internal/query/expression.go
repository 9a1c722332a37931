package query

import (
	"fmt"
	"strings"
)

// Expression is an ordered list of conditions combined by one logical
// operator. It renders as the conditions joined by " <OP> " with no
// surrounding parentheses; an empty expression renders as "".
//
// An Expression is built by appending conditions and is not safe for
// concurrent mutation. Configurations keep a private clone.
type Expression struct {
	op         Operator
	conditions []Operand
}

// NewExpression returns an expression combining conditions with op.
func NewExpression(op Operator, conditions ...Operand) *Expression {
	return &Expression{op: op, conditions: append([]Operand(nil), conditions...)}
}

// Where builds a root expression with default operator op and lets fn add
// its conditions.
func Where(op Operator, fn func(e *Expression)) *Expression {
	e := NewExpression(op)
	if fn != nil {
		fn(e)
	}
	return e
}

func (*Expression) isOperand() {}

// Operator returns the operator joining the conditions.
func (e *Expression) Operator() Operator {
	if e == nil {
		return And
	}
	return e.op
}

// Conditions returns a copy of the condition list.
func (e *Expression) Conditions() []Operand {
	if e == nil {
		return nil
	}
	return append([]Operand(nil), e.conditions...)
}

// Len returns the number of direct conditions.
func (e *Expression) Len() int {
	if e == nil {
		return 0
	}
	return len(e.conditions)
}

// IsEmpty reports whether e has no conditions.
func (e *Expression) IsEmpty() bool {
	return e.Len() == 0
}

func (e *Expression) String() string {
	if e == nil || len(e.conditions) == 0 {
		return ""
	}
	var b strings.Builder
	sep := " " + e.op.SQL() + " "
	for i, c := range e.conditions {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// Clone returns a deep copy of e. Leaf values are immutable and shared.
func (e *Expression) Clone() *Expression {
	if e == nil {
		return nil
	}
	out := &Expression{op: e.op, conditions: make([]Operand, len(e.conditions))}
	for i, c := range e.conditions {
		out.conditions[i] = cloneOperand(c)
	}
	return out
}

func cloneOperand(o Operand) Operand {
	switch v := o.(type) {
	case *Expression:
		return v.Clone()
	case BinaryExpression:
		return BinaryExpression{Left: cloneOperand(v.Left), Operator: v.Operator, Right: cloneOperand(v.Right)}
	default:
		return o
	}
}

// Add appends o as a condition.
func (e *Expression) Add(o Operand) *Expression {
	e.conditions = append(e.conditions, o)
	return e
}

func (e *Expression) binary(l Operand, op Operator, r Operand) *Expression {
	return e.Add(Binary(l, op, r))
}

// Equal appends (l = r).
func (e *Expression) Equal(l, r Operand) *Expression { return e.binary(l, Equal, r) }

// NotEqual appends (l != r).
func (e *Expression) NotEqual(l, r Operand) *Expression { return e.binary(l, NotEqual, r) }

// And appends (l AND r).
func (e *Expression) And(l, r Operand) *Expression { return e.binary(l, And, r) }

// Or appends (l OR r).
func (e *Expression) Or(l, r Operand) *Expression { return e.binary(l, Or, r) }

// GreaterThan appends (l > r).
func (e *Expression) GreaterThan(l, r Operand) *Expression { return e.binary(l, GreaterThan, r) }

// GreaterThanOrEquals appends (l >= r).
func (e *Expression) GreaterThanOrEquals(l, r Operand) *Expression {
	return e.binary(l, GreaterThanOrEquals, r)
}

// LessThan appends (l < r).
func (e *Expression) LessThan(l, r Operand) *Expression { return e.binary(l, LessThan, r) }

// LessThanOrEquals appends (l <= r).
func (e *Expression) LessThanOrEquals(l, r Operand) *Expression {
	return e.binary(l, LessThanOrEquals, r)
}

// Like appends (l LIKE r).
func (e *Expression) Like(l, r Operand) *Expression { return e.binary(l, Like, r) }

// NotLike appends (l NOT LIKE r).
func (e *Expression) NotLike(l, r Operand) *Expression { return e.binary(l, NotLike, r) }

// IncludedIn appends (l IN r).
func (e *Expression) IncludedIn(l, r Operand) *Expression { return e.binary(l, In, r) }

// NotIncludedIn appends (l NOT IN r).
func (e *Expression) NotIncludedIn(l, r Operand) *Expression { return e.binary(l, NotIn, r) }

// Group collects the conditions fn adds to a scratch expression, folds them
// with op and appends the result. It fails with types.ErrEmptyFold when fn
// adds nothing; e is left unchanged in that case.
//
// Group(GreaterThanOrEquals, ...) folds through FoldGreaterThanOrEquals and
// therefore combines with OR.
func (e *Expression) Group(op Operator, fn func(g *Expression)) error {
	scratch := NewExpression(op)
	if fn != nil {
		fn(scratch)
	}
	var folded Operand
	var err error
	if op == GreaterThanOrEquals {
		folded, err = FoldGreaterThanOrEquals(scratch.conditions...)
	} else {
		folded, err = Fold(op, scratch.conditions...)
	}
	if err != nil {
		return fmt.Errorf("group %s: %w", op, err)
	}
	e.Add(folded)
	return nil
}

// BinaryExpression applies one operator to exactly two operands and renders
// as "(left OP right)" regardless of the enclosing expression's operator.
type BinaryExpression struct {
	Left     Operand
	Operator Operator
	Right    Operand
}

// Binary returns the expression (l op r).
func Binary(l Operand, op Operator, r Operand) BinaryExpression {
	return BinaryExpression{Left: l, Operator: op, Right: r}
}

func (BinaryExpression) isOperand() {}

func (b BinaryExpression) String() string {
	return "(" + operandString(b.Left) + " " + b.Operator.SQL() + " " + operandString(b.Right) + ")"
}

func operandString(o Operand) string {
	if o == nil {
		return ""
	}
	return o.String()
}
