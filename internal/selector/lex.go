package selector

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokIdent
	tokAnd
	tokOr
	tokNot
	tokEq
	tokNeq
	tokColon
	tokLParen
	tokRParen
	tokComma
)

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of input",
	tokString: "string",
	tokIdent:  "identifier",
	tokAnd:    "AND",
	tokOr:     "OR",
	tokNot:    "NOT",
	tokEq:     "'='",
	tokNeq:    "'!='",
	tokColon:  "':'",
	tokLParen: "'('",
	tokRParen: "')'",
	tokComma:  "','",
}

var punctuation = map[byte]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	',': tokComma,
	':': tokColon,
	'=': tokEq,
}

type token struct {
	kind tokenKind
	val  string
	pos  int
}

func (t token) String() string {
	if t.kind == tokString || t.kind == tokIdent {
		return fmt.Sprintf("%s %q", tokenNames[t.kind], t.val)
	}
	return tokenNames[t.kind]
}

// scanner produces tokens on demand.
type scanner struct {
	src string
	pos int
}

func (s *scanner) next() (token, error) {
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
	if s.pos >= len(s.src) {
		return token{kind: tokEOF, pos: s.pos}, nil
	}

	start := s.pos
	ch := s.src[s.pos]
	if k, ok := punctuation[ch]; ok {
		s.pos++
		return token{kind: k, val: string(ch), pos: start}, nil
	}

	switch {
	case ch == '!':
		if s.pos+1 < len(s.src) && s.src[s.pos+1] == '=' {
			s.pos += 2
			return token{kind: tokNeq, val: "!=", pos: start}, nil
		}
		return token{}, fmt.Errorf("expected '=' after '!' at position %d", start)
	case ch == '"':
		return s.quoted()
	case isIdentStart(ch):
		for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
			s.pos++
		}
		word := s.src[start:s.pos]
		kind := tokIdent
		switch word {
		case "AND":
			kind = tokAnd
		case "OR":
			kind = tokOr
		case "NOT":
			kind = tokNot
		}
		return token{kind: kind, val: word, pos: start}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q at position %d", ch, start)
}

// quoted reads a double-quoted string; a backslash escapes the next byte.
func (s *scanner) quoted() (token, error) {
	start := s.pos
	s.pos++
	buf := make([]byte, 0, 16)
	for s.pos < len(s.src) {
		switch ch := s.src[s.pos]; {
		case ch == '\\' && s.pos+1 < len(s.src):
			buf = append(buf, s.src[s.pos+1])
			s.pos += 2
		case ch == '"':
			s.pos++
			return token{kind: tokString, val: string(buf), pos: start}, nil
		default:
			buf = append(buf, ch)
			s.pos++
		}
	}
	return token{}, fmt.Errorf("unterminated string starting at position %d", start)
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// Identifiers may contain dots and dashes so that tags.dc-name is one field.
func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9') || ch == '.' || ch == '-'
}
