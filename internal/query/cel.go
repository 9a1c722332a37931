package query

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
)

// ErrUntranslatable indicates a predicate the in-memory evaluator cannot
// express, e.g. LIKE against a non-literal pattern.
var ErrUntranslatable = errors.New("predicate cannot be evaluated in memory")

var celIdent = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// ToCEL translates o to a CEL expression with the same precedence structure
// as its SQL rendering, and returns the column identifiers it references.
//
// Scalar string literals that parse as numbers become CEL numbers, so
// "bucket_id = 540528482" compares against an integer column value.
func ToCEL(o Operand) (string, []string, error) {
	t := &celTranslator{idents: make(map[string]struct{})}
	expr, err := t.operand(o)
	if err != nil {
		return "", nil, err
	}
	if expr == "" {
		expr = "true"
	}
	idents := make([]string, 0, len(t.idents))
	for id := range t.idents {
		idents = append(idents, id)
	}
	sort.Strings(idents)
	return expr, idents, nil
}

type celTranslator struct {
	idents map[string]struct{}
}

func (t *celTranslator) operand(o Operand) (string, error) {
	switch v := o.(type) {
	case nil:
		return "", fmt.Errorf("%w: nil operand", ErrUntranslatable)
	case *Expression:
		if v == nil || len(v.conditions) == 0 {
			return "", nil
		}
		sep := " " + celOperator(v.op) + " "
		parts := make([]string, 0, len(v.conditions))
		for _, c := range v.conditions {
			s, err := t.operand(c)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep), nil
	case BinaryExpression:
		return t.binary(v)
	case Column:
		return t.ident(v.Name)
	case ContentColumn:
		return t.ident(v.Column.Name())
	case StringValue:
		return celScalar(v.Value), nil
	case LongValue:
		return strconv.FormatInt(v.Value, 10), nil
	case DoubleValue:
		return celDouble(v.Value)
	case StringListValue:
		parts := make([]string, len(v.Values))
		for i, s := range v.Values {
			parts[i] = celScalar(s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case LongListValue:
		parts := make([]string, len(v.Values))
		for i, n := range v.Values {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case DoubleListValue:
		parts := make([]string, len(v.Values))
		for i, f := range v.Values {
			s, err := celDouble(f)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
	return "", fmt.Errorf("%w: %T", ErrUntranslatable, o)
}

func (t *celTranslator) binary(b BinaryExpression) (string, error) {
	left, err := t.operand(b.Left)
	if err != nil {
		return "", err
	}

	switch b.Operator {
	case Like, NotLike:
		pattern, ok := literalText(b.Right)
		if !ok {
			return "", fmt.Errorf("%w: LIKE needs a literal pattern", ErrUntranslatable)
		}
		expr := "matches(string(" + left + "), " + strconv.Quote(likeToRegexp(pattern)) + ")"
		if b.Operator == NotLike {
			return "(!" + expr + ")", nil
		}
		return "(" + expr + ")", nil
	}

	right, err := t.operand(b.Right)
	if err != nil {
		return "", err
	}
	switch b.Operator {
	case In:
		return "(" + left + " in " + right + ")", nil
	case NotIn:
		return "(!(" + left + " in " + right + "))", nil
	}
	return "(" + left + " " + celOperator(b.Operator) + " " + right + ")", nil
}

func (t *celTranslator) ident(name string) (string, error) {
	if !celIdent.MatchString(name) {
		return "", fmt.Errorf("%w: column %q is not an identifier", ErrUntranslatable, name)
	}
	t.idents[name] = struct{}{}
	return name, nil
}

func celOperator(op Operator) string {
	switch op {
	case Equal:
		return "=="
	case And:
		return "&&"
	case Or:
		return "||"
	default:
		return op.SQL()
	}
}

// literalText returns the pattern text of a LIKE right-hand side.
func literalText(o Operand) (string, bool) {
	v, ok := o.(StringValue)
	if !ok {
		return "", false
	}
	s := v.Value
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s, true
}

func celScalar(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return strconv.Quote(strings.ReplaceAll(s[1:len(s)-1], "''", "'"))
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		if lit, err := celDouble(f); err == nil {
			return lit
		}
	}
	return strconv.Quote(s)
}

func celDouble(f float64) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("%w: non-finite double", ErrUntranslatable)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, nil
}

// likeToRegexp converts a SQL LIKE pattern to an anchored RE2 pattern.
// Matching is ASCII case-insensitive, as SQLite's LIKE is by default.
func likeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// Matcher evaluates a predicate against in-memory rows keyed by column name.
type Matcher struct {
	source  string
	columns []string
	program cel.Program
}

// NewMatcher compiles o for in-memory evaluation.
func NewMatcher(o Operand) (*Matcher, error) {
	source, idents, err := ToCEL(o)
	if err != nil {
		return nil, err
	}

	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for _, id := range idents {
		opts = append(opts, cel.Variable(id, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", source, iss.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program: %w", err)
	}

	return &Matcher{source: source, columns: idents, program: program}, nil
}

// Source returns the CEL text the matcher evaluates.
func (m *Matcher) Source() string { return m.source }

// Columns returns the column names the predicate reads.
func (m *Matcher) Columns() []string { return append([]string(nil), m.columns...) }

// Match evaluates the predicate against row. Every referenced column must be
// present in row.
func (m *Matcher) Match(row map[string]any) (bool, error) {
	out, _, err := m.program.Eval(row)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", m.source, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: result is %T, not bool", m.source, out.Value())
	}
	return matched, nil
}
