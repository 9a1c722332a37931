// Package query builds boolean predicates over media-store columns and renders
// them to parameterized SQL.
//
// A predicate is a tree of Operand values. Leaves are column references and
// literal values; inner nodes are *Expression (a list of conditions joined by
// one logical operator, rendered without parentheses) and *BinaryExpression
// (exactly two operands around one operator, always parenthesized).
//
// Rendering is textual. Render then rewrites every parenthesized literal list
// in the text into a (?,?,...) placeholder group and returns the extracted
// literals as bound arguments. Literals containing characters outside
// [0-9a-zA-Z/?+.-] are not recognized as list items and stay inline, so
// predicates from clients go through ValidateUntrusted first.
//
// A ? inside a quoted literal is plain text to SQLite but is renumbered by
// $N placeholder formats; stores using those reject such predicates (see
// QuotedPlaceholder).
package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/solatis/pickerkt/internal/types"
)

// Operand is any node usable as an input to an operator. The set of
// implementations is closed: Column, ContentColumn, the *Value types,
// *Expression and *BinaryExpression.
type Operand interface {
	String() string
	isOperand()
}

// Column references a column by raw name, optionally wrapped in a quote
// string (e.g. `"` or "`") on both sides.
type Column struct {
	Name         string
	SurroundedBy string
}

func (Column) isOperand() {}

func (c Column) String() string {
	return c.SurroundedBy + c.Name + c.SurroundedBy
}

// ContentColumn references one of the known media-store columns.
type ContentColumn struct {
	Column types.Column
}

func (ContentColumn) isOperand() {}

func (c ContentColumn) String() string {
	return c.Column.Name()
}

// Col is shorthand for ContentColumn{Column: c}.
func Col(c types.Column) ContentColumn {
	return ContentColumn{Column: c}
}

// StringValue is a scalar string literal, rendered verbatim.
type StringValue struct{ Value string }

// LongValue is a scalar integer literal.
type LongValue struct{ Value int64 }

// DoubleValue is a scalar floating-point literal.
type DoubleValue struct{ Value float64 }

// StringListValue is a list literal of strings, rendered unquoted.
type StringListValue struct{ Values []string }

// LongListValue is a list literal of integers.
type LongListValue struct{ Values []int64 }

// DoubleListValue is a list literal of floating-point numbers.
type DoubleListValue struct{ Values []float64 }

func (StringValue) isOperand()     {}
func (LongValue) isOperand()       {}
func (DoubleValue) isOperand()     {}
func (StringListValue) isOperand() {}
func (LongListValue) isOperand()   {}
func (DoubleListValue) isOperand() {}

func (v StringValue) String() string { return v.Value }
func (v LongValue) String() string   { return strconv.FormatInt(v.Value, 10) }
func (v DoubleValue) String() string { return formatDouble(v.Value) }

func (v StringListValue) String() string {
	return "(" + strings.Join(v.Values, ",") + ")"
}

func (v LongListValue) String() string {
	parts := make([]string, len(v.Values))
	for i, n := range v.Values {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (v DoubleListValue) String() string {
	parts := make([]string, len(v.Values))
	for i, f := range v.Values {
		parts[i] = formatDouble(f)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// String returns a StringValue.
func String(s string) StringValue { return StringValue{Value: s} }

// Long returns a LongValue.
func Long(n int64) LongValue { return LongValue{Value: n} }

// Int returns a LongValue.
func Int(n int) LongValue { return LongValue{Value: int64(n)} }

// Double returns a DoubleValue.
func Double(f float64) DoubleValue { return DoubleValue{Value: f} }

// Strings returns a StringListValue.
func Strings(values ...string) StringListValue {
	return StringListValue{Values: append([]string(nil), values...)}
}

// Longs returns a LongListValue.
func Longs(values ...int64) LongListValue {
	return LongListValue{Values: append([]int64(nil), values...)}
}

// Ints returns a LongListValue.
func Ints(values ...int) LongListValue {
	out := make([]int64, len(values))
	for i, n := range values {
		out[i] = int64(n)
	}
	return LongListValue{Values: out}
}

// Doubles returns a DoubleListValue.
func Doubles(values ...float64) DoubleListValue {
	return DoubleListValue{Values: append([]float64(nil), values...)}
}

// Quoted returns a StringValue holding s as a single-quoted SQL literal.
// Quoted literals are never extracted as bound arguments.
func Quoted(s string) StringValue {
	return StringValue{Value: "'" + strings.ReplaceAll(s, "'", "''") + "'"}
}

// MimeTypes returns a StringListValue of the MIME ids of ms.
func MimeTypes(ms ...types.MimeType) StringListValue {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID()
	}
	return StringListValue{Values: ids}
}

// formatDouble renders f the way the JVM's Double.toString does: plain
// decimal with at least one fractional digit for 1e-3 <= |f| < 1e7,
// computerized scientific notation ("1.0E10") otherwise.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(f)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	s := strconv.FormatFloat(f, 'E', -1, 64)
	mantissa, exponent, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	sign := ""
	if strings.HasPrefix(exponent, "-") {
		sign = "-"
	}
	exponent = strings.TrimLeft(exponent, "+-0")
	if exponent == "" {
		exponent = "0"
	}
	return mantissa + "E" + sign + exponent
}
