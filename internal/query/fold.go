package query

import "github.com/solatis/pickerkt/internal/types"

// Fold reduces operands left-associatively with op:
// Fold(op, a, b, c) == (op (op a b) c). A single operand is returned as is.
func Fold(op Operator, operands ...Operand) (Operand, error) {
	if len(operands) == 0 {
		return nil, types.ErrEmptyFold
	}
	acc := operands[0]
	for _, o := range operands[1:] {
		acc = Binary(acc, op, o)
	}
	return acc, nil
}

// MustFold is Fold for operand lists known to be non-empty.
func MustFold(op Operator, operands ...Operand) Operand {
	folded, err := Fold(op, operands...)
	if err != nil {
		panic(err)
	}
	return folded
}

func FoldEqual(operands ...Operand) (Operand, error)       { return Fold(Equal, operands...) }
func FoldNotEqual(operands ...Operand) (Operand, error)    { return Fold(NotEqual, operands...) }
func FoldIn(operands ...Operand) (Operand, error)          { return Fold(In, operands...) }
func FoldNotIn(operands ...Operand) (Operand, error)       { return Fold(NotIn, operands...) }
func FoldLike(operands ...Operand) (Operand, error)        { return Fold(Like, operands...) }
func FoldNotLike(operands ...Operand) (Operand, error)     { return Fold(NotLike, operands...) }
func FoldGreaterThan(operands ...Operand) (Operand, error) { return Fold(GreaterThan, operands...) }
func FoldLessThan(operands ...Operand) (Operand, error)    { return Fold(LessThan, operands...) }
func FoldAnd(operands ...Operand) (Operand, error)         { return Fold(And, operands...) }
func FoldOr(operands ...Operand) (Operand, error)          { return Fold(Or, operands...) }

func FoldLessThanOrEquals(operands ...Operand) (Operand, error) {
	return Fold(LessThanOrEquals, operands...)
}

// GTEFoldMode selects how FoldGreaterThanOrEqualsMode combines operands.
type GTEFoldMode int

const (
	// GTELegacyOr combines with OR. Picker configurations produced by
	// earlier clients depend on it, so it stays the default until the
	// product owner confirms the intended semantics.
	GTELegacyOr GTEFoldMode = iota

	// GTEStrict combines with >=.
	GTEStrict
)

// FoldGreaterThanOrEquals folds with OR, not >=. See GTELegacyOr.
func FoldGreaterThanOrEquals(operands ...Operand) (Operand, error) {
	return FoldGreaterThanOrEqualsMode(GTELegacyOr, operands...)
}

// FoldGreaterThanOrEqualsMode folds with the operator mode selects.
func FoldGreaterThanOrEqualsMode(mode GTEFoldMode, operands ...Operand) (Operand, error) {
	if mode == GTEStrict {
		return Fold(GreaterThanOrEquals, operands...)
	}
	return Fold(Or, operands...)
}
