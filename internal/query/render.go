package query

import (
	"regexp"
	"strings"
)

// listLiteral matches a parenthesized, comma-separated run of path-safe
// literals, optionally single-quoted: (1,2,3), (image/png,image/gif),
// ('a','b').
var listLiteral = regexp.MustCompile(`\((?:'?([0-9a-zA-Z/?+.-]+)'?,?)+\)`)

// Clause is a rendered predicate ready for parameterized execution.
// The zero Clause means "no filter".
type Clause struct {
	// Where is the predicate text with every list literal replaced by a
	// (?,...) placeholder group. Empty when there is no predicate.
	Where string

	// Args holds the extracted literals in placeholder order. Nil when the
	// predicate is empty or contains no list literal.
	Args []string
}

// Empty reports whether the clause carries no predicate.
func (c Clause) Empty() bool {
	return c.Where == ""
}

// BindArgs returns Args as a slice suitable for database/sql.
func (c Clause) BindArgs() []any {
	if len(c.Args) == 0 {
		return nil
	}
	out := make([]any, len(c.Args))
	for i, a := range c.Args {
		out[i] = a
	}
	return out
}

// Render renders o and extracts its list literals into bound arguments.
func Render(o Operand) Clause {
	if o == nil {
		return Clause{}
	}
	return RenderString(o.String())
}

// RenderString applies placeholder extraction to already-rendered predicate
// text. Literals that do not fit the list pattern stay inline.
func RenderString(predicate string) Clause {
	if predicate == "" {
		return Clause{}
	}

	var args []string
	where := listLiteral.ReplaceAllStringFunc(predicate, func(match string) string {
		items := strings.Split(match[1:len(match)-1], ",")
		placeholders := make([]string, len(items))
		for i, item := range items {
			args = append(args, strings.TrimSuffix(strings.TrimPrefix(item, "'"), "'"))
			placeholders[i] = "?"
		}
		return "(" + strings.Join(placeholders, ",") + ")"
	})

	return Clause{Where: where, Args: args}
}
