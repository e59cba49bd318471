package tagfilter

import (
	"strings"

	"github.com/grafana/regexp"
	"github.com/prometheus/prometheus/model/labels"
)

// Matcher translates the filter into an equivalent Prometheus label matcher
// on the label named after the tag key.
func (f TagVFilter) Matcher() (*labels.Matcher, error) {
	switch f.typ {
	case LiteralOr, NotLiteralOr:
		values := strings.Split(f.filter, "|")
		mt := labels.MatchEqual
		if f.typ == NotLiteralOr {
			mt = labels.MatchNotEqual
		}
		if len(values) == 1 {
			return labels.NewMatcher(mt, f.tagk, values[0])
		}
		return labels.NewMatcher(regexType(mt), f.tagk, alternation(values))

	case ILiteralOr, NotILiteralOr:
		mt := labels.MatchRegexp
		if f.typ == NotILiteralOr {
			mt = labels.MatchNotRegexp
		}
		return labels.NewMatcher(mt, f.tagk, "(?i)"+alternation(strings.Split(f.filter, "|")))

	case Wildcard:
		return labels.NewMatcher(labels.MatchRegexp, f.tagk, globToRegexp(f.filter))

	case IWildcard:
		return labels.NewMatcher(labels.MatchRegexp, f.tagk, "(?i)"+globToRegexp(f.filter))

	case Regexp:
		return labels.NewMatcher(labels.MatchRegexp, f.tagk, f.filter)

	case NotKey:
		// An empty value matches series that lack the label entirely.
		return labels.NewMatcher(labels.MatchEqual, f.tagk, "")
	}
	return nil, &unknownTypeError{typ: f.typ}
}

type unknownTypeError struct{ typ Type }

func (e *unknownTypeError) Error() string { return "unknown tag filter type " + string(e.typ) }

func regexType(mt labels.MatchType) labels.MatchType {
	if mt == labels.MatchNotEqual {
		return labels.MatchNotRegexp
	}
	return labels.MatchRegexp
}

func alternation(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return strings.Join(quoted, "|")
}

func globToRegexp(glob string) string {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, ".*")
}
