package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solatis/pickerkt/internal/types"
)

var (
	identifier = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)
	numeric    = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	listItem   = regexp.MustCompile(`^[0-9a-zA-Z/?+.-]+$`)
)

// SafeListItem reports whether s renders inside a string list as exactly one
// bound argument.
func SafeListItem(s string) bool {
	return listItem.MatchString(s)
}

// ValidateUntrusted checks a predicate that arrived from a client. Every
// leaf must render as one value: raw columns are plain identifiers, scalar
// strings are numbers or Quoted literals, and string list items are
// SafeListItem. Violations wrap types.ErrUnsafeLiteral.
func ValidateUntrusted(o Operand) error {
	switch v := o.(type) {
	case nil:
		return nil
	case *Expression:
		if v == nil {
			return nil
		}
		for _, c := range v.conditions {
			if err := ValidateUntrusted(c); err != nil {
				return err
			}
		}
	case BinaryExpression:
		if err := ValidateUntrusted(v.Left); err != nil {
			return err
		}
		return ValidateUntrusted(v.Right)
	case Column:
		if !identifier.MatchString(v.Name) {
			return fmt.Errorf("%w: column name %q", types.ErrUnsafeLiteral, v.Name)
		}
		switch v.SurroundedBy {
		case "", `"`, "`":
		default:
			return fmt.Errorf("%w: column quote %q", types.ErrUnsafeLiteral, v.SurroundedBy)
		}
	case StringValue:
		if !numeric.MatchString(v.Value) && !quotedLiteral(v.Value) {
			return fmt.Errorf("%w: string %q is neither a number nor a quoted literal", types.ErrUnsafeLiteral, v.Value)
		}
	case StringListValue:
		for _, item := range v.Values {
			if !SafeListItem(item) {
				return fmt.Errorf("%w: list item %q", types.ErrUnsafeLiteral, item)
			}
		}
	}
	return nil
}

// quotedLiteral reports whether s is the output of Quoted: single quotes at
// both ends and only doubled quotes inside.
func quotedLiteral(s string) bool {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return false
	}
	return !strings.Contains(strings.ReplaceAll(s[1:len(s)-1], "''", ""), "'")
}

// QuotedPlaceholder reports whether a ? occurs inside a single-quoted
// literal of the rendered predicate. Drivers that number placeholders
// ($1, $2) rewrite those too.
func QuotedPlaceholder(where string) bool {
	quoted := false
	for i := 0; i < len(where); i++ {
		switch where[i] {
		case '\'':
			quoted = !quoted
		case '?':
			if quoted {
				return true
			}
		}
	}
	return false
}
