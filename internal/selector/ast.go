// Package selector parses and evaluates the expressions accepted by the
// list endpoints to narrow interned filters and downsamplers, e.g.
//
//	id = starts_with("cpu") AND NOT tags.host : "db"
package selector

import "github.com/grafana/regexp"

// Expr is a node in a selector expression.
type Expr interface {
	expr()
}

// And matches when both sides match.
type And struct {
	Left, Right Expr
}

// Or matches when either side matches.
type Or struct {
	Left, Right Expr
}

// Not inverts Inner.
type Not struct {
	Inner Expr
}

// Op is a comparison operator.
type Op int

const (
	OpEq  Op = iota // =
	OpNeq           // !=
	OpHas           // :
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpHas:
		return ":"
	}
	return "?"
}

// Comparison tests a field against a literal or a call.
type Comparison struct {
	Field string
	Op    Op
	Value Value
}

func (*And) expr()        {}
func (*Or) expr()         {}
func (*Not) expr()        {}
func (*Comparison) expr() {}

// Value is the right-hand side of a comparison.
type Value interface {
	value()
}

// Literal is a quoted string.
type Literal string

// Call is a matcher function such as starts_with("cpu"). Arity and, for
// full_match, the pattern are checked when parsing.
type Call struct {
	Name string
	Args []string

	re *regexp.Regexp
}

func (Literal) value() {}
func (*Call) value()   {}
