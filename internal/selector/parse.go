package selector

import (
	"fmt"
	"strings"

	"github.com/grafana/regexp"
)

// arity is the number of arguments each call accepts; -1 means one or more.
var arity = map[string]int{
	"starts_with":   1,
	"ends_with":     1,
	"has_substring": 1,
	"full_match":    1,
	"one_of":        -1,
}

// Parse parses a selector expression. An empty or blank input yields a nil
// Expr, which matches everything.
//
//	expr       = term ("OR" term)*
//	term       = unary ("AND" unary)*
//	unary      = "NOT" unary | "(" expr ")" | comparison
//	comparison = IDENT ("=" | "!=" | ":") (STRING | IDENT "(" STRING ("," STRING)* ")")
func Parse(input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	p := &parser{sc: scanner{src: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %s at position %d", p.tok, p.tok.pos)
	}
	return e, nil
}

type parser struct {
	sc  scanner
	tok token
}

func (p *parser) advance() error {
	t, err := p.sc.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(k tokenKind) (token, error) {
	t := p.tok
	if t.kind != k {
		return t, fmt.Errorf("expected %s at position %d, got %s", tokenNames[k], t.pos, t)
	}
	return t, p.advance()
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) unary() (Expr, error) {
	switch p.tok.kind {
	case tokNot:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	}
	return p.comparison()
}

func (p *parser) comparison() (Expr, error) {
	field, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	var op Op
	switch p.tok.kind {
	case tokEq:
		op = OpEq
	case tokNeq:
		op = OpNeq
	case tokColon:
		op = OpHas
	default:
		return nil, fmt.Errorf("expected operator after %q at position %d, got %s", field.val, p.tok.pos, p.tok)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	v, err := p.value()
	if err != nil {
		return nil, err
	}
	return &Comparison{Field: field.val, Op: op, Value: v}, nil
}

func (p *parser) value() (Value, error) {
	switch p.tok.kind {
	case tokString:
		lit := Literal(p.tok.val)
		return lit, p.advance()
	case tokIdent:
		return p.call()
	}
	return nil, fmt.Errorf("expected string or function call at position %d, got %s", p.tok.pos, p.tok)
}

func (p *parser) call() (*Call, error) {
	name := p.tok
	want, ok := arity[name.val]
	if !ok {
		return nil, fmt.Errorf("unknown function %q at position %d", name.val, name.pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}

	c := &Call{Name: name.val}
	for p.tok.kind != tokRParen {
		if len(c.Args) > 0 {
			if _, err := p.expect(tokComma); err != nil {
				return nil, err
			}
		}
		arg, err := p.expect(tokString)
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, arg.val)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch {
	case want < 0 && len(c.Args) == 0:
		return nil, fmt.Errorf("%s needs at least one argument", c.Name)
	case want >= 0 && len(c.Args) != want:
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", c.Name, want, len(c.Args))
	}
	if c.Name == "full_match" {
		re, err := regexp.Compile("^(?:" + c.Args[0] + ")$")
		if err != nil {
			return nil, fmt.Errorf("full_match: %w", err)
		}
		c.re = re
	}
	return c, nil
}
