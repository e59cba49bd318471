package selector

import (
	"slices"
	"strings"
)

// Fields resolves a field name to its values. A field may have no value
// (unknown or absent) or several (one per tag).
type Fields interface {
	Values(field string) []string
}

// FieldMap is a Fields backed by a map.
type FieldMap map[string][]string

func (m FieldMap) Values(field string) []string { return m[field] }

// Match reports whether fields satisfy e. A nil Expr matches everything.
func Match(e Expr, fields Fields) bool {
	switch e := e.(type) {
	case nil:
		return true
	case *And:
		return Match(e.Left, fields) && Match(e.Right, fields)
	case *Or:
		return Match(e.Left, fields) || Match(e.Right, fields)
	case *Not:
		return !Match(e.Inner, fields)
	case *Comparison:
		return compare(e, fields.Values(e.Field))
	}
	return false
}

// compare is true for = and : when any value matches, and for != when none
// does, so a field with no values only satisfies !=.
func compare(c *Comparison, values []string) bool {
	var pred func(string) bool
	switch v := c.Value.(type) {
	case Literal:
		if c.Op == OpHas {
			pred = func(s string) bool { return strings.Contains(s, string(v)) }
		} else {
			pred = func(s string) bool { return s == string(v) }
		}
	case *Call:
		pred = v.match
	default:
		return false
	}
	matched := slices.ContainsFunc(values, pred)
	if c.Op == OpNeq {
		return !matched
	}
	return matched
}

func (c *Call) match(s string) bool {
	switch c.Name {
	case "starts_with":
		return strings.HasPrefix(s, c.Args[0])
	case "ends_with":
		return strings.HasSuffix(s, c.Args[0])
	case "has_substring":
		return strings.Contains(s, c.Args[0])
	case "one_of":
		return slices.Contains(c.Args, s)
	case "full_match":
		return c.re.MatchString(s)
	}
	return false
}
