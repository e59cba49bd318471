package tagfilter

import (
	"fmt"
	"strings"
)

// ParseSpec parses the brace form used in metric query strings:
//
//	{host=web*,dc=literal_or(lga|phx)}{env=prod}
//
// Filters in the first brace group are group-by filters; those in the
// optional second group are not. A value written as type(filter) selects
// the type explicitly; a bare value containing '*' is a wildcard, any other
// bare value is literal_or. An empty input yields no filters.
func ParseSpec(input string) ([]TagVFilter, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	p := &specParser{input: input}
	var out []TagVFilter
	for group := 0; p.pos < len(p.input); group++ {
		if group > 1 {
			return nil, fmt.Errorf("unexpected %q at position %d: at most two brace groups", p.input[p.pos], p.pos)
		}
		filters, err := p.parseGroup(group == 0)
		if err != nil {
			return nil, err
		}
		out = append(out, filters...)
	}
	return out, nil
}

type specParser struct {
	input string
	pos   int
}

// group = "{" [ pair ("," pair)* ] "}"
func (p *specParser) parseGroup(groupBy bool) ([]TagVFilter, error) {
	if p.input[p.pos] != '{' {
		return nil, fmt.Errorf("expected '{' at position %d, got %q", p.pos, p.input[p.pos])
	}
	p.pos++

	var filters []TagVFilter
	for {
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated brace group")
		}
		if p.input[p.pos] == '}' {
			p.pos++
			return filters, nil
		}
		if len(filters) > 0 {
			if p.input[p.pos] != ',' {
				return nil, fmt.Errorf("expected ',' or '}' at position %d, got %q", p.pos, p.input[p.pos])
			}
			p.pos++
		}
		f, err := p.parsePair(groupBy)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
}

// pair = tagk "=" value
func (p *specParser) parsePair(groupBy bool) (TagVFilter, error) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '=' {
		if ch := p.input[p.pos]; ch == ',' || ch == '}' || ch == '{' {
			return TagVFilter{}, fmt.Errorf("expected '=' after tag key at position %d", p.pos)
		}
		p.pos++
	}
	if p.pos >= len(p.input) {
		return TagVFilter{}, fmt.Errorf("expected '=' after tag key %q", p.input[start:])
	}
	tagk := strings.TrimSpace(p.input[start:p.pos])
	if tagk == "" {
		return TagVFilter{}, fmt.Errorf("missing tag key at position %d", start)
	}
	p.pos++ // consume '='

	value, err := p.readValue()
	if err != nil {
		return TagVFilter{}, err
	}

	typ, filter := splitValue(value)
	f, err := NewBuilder().
		SetTagk(tagk).
		SetType(typ).
		SetFilter(filter).
		SetGroupBy(groupBy).
		Build()
	if err != nil {
		return TagVFilter{}, fmt.Errorf("tag %q: %w", tagk, err)
	}
	return f, nil
}

// readValue consumes up to the next ',' or '}' outside parentheses, so
// regexp(web(0|1)) stays a single value.
func (p *specParser) readValue() (string, error) {
	start := p.pos
	depth := 0
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return "", fmt.Errorf("unbalanced ')' at position %d", p.pos)
			}
			depth--
		case ',', '}':
			if depth == 0 {
				return strings.TrimSpace(p.input[start:p.pos]), nil
			}
		}
		p.pos++
	}
	if depth > 0 {
		return "", fmt.Errorf("unclosed '(' in value starting at position %d", start)
	}
	return "", fmt.Errorf("unterminated brace group")
}

func splitValue(v string) (Type, string) {
	if open := strings.IndexByte(v, '('); open > 0 && strings.HasSuffix(v, ")") {
		if t := Type(strings.ToLower(v[:open])); knownType(t) {
			return t, v[open+1 : len(v)-1]
		}
	}
	if strings.Contains(v, "*") {
		return Wildcard, v
	}
	return LiteralOr, v
}
