// Package promql renders canonical query components as PromQL expressions so
// that a filter and downsampler can be evaluated by a Prometheus engine.
package promql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/prometheus/model/labels"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/ata-marzban/tsdb-query-keys/internal/aggregator"
	"github.com/ata-marzban/tsdb-query-keys/internal/query"
	"github.com/ata-marzban/tsdb-query-keys/internal/tagfilter"
)

// SanitizeName converts a dotted metric or tag name into a Prometheus name.
// Characters outside [a-zA-Z0-9_:] become underscores and a leading digit
// gets an underscore prefix.
//
// Example: "sys.cpu.user" → "sys_cpu_user"
// Example: "99th-pct" → "_99th_pct"
func SanitizeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_', ch == ':':
			b.WriteByte(ch)
		case ch >= '0' && ch <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteByte(ch)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Selector returns a vector selector for metric narrowed by every tag filter
// in f. ExplicitTags has no PromQL counterpart and is not rendered.
func Selector(metric string, f *query.Filter) (*parser.VectorSelector, error) {
	name := SanitizeName(metric)
	nameMatcher, err := labels.NewMatcher(labels.MatchEqual, labels.MetricName, name)
	if err != nil {
		return nil, err
	}
	matchers := []*labels.Matcher{nameMatcher}
	if f != nil {
		for _, t := range f.Tags() {
			m, err := t.Matcher()
			if err != nil {
				return nil, fmt.Errorf("tag filter %s: %w", t, err)
			}
			m, err = labels.NewMatcher(m.Type, SanitizeName(m.Name), m.Value)
			if err != nil {
				return nil, fmt.Errorf("tag filter %s: %w", t, err)
			}
			matchers = append(matchers, m)
			// Every type but not_key requires the tag to be present, and
			// PromQL treats a missing label as "".
			if t.Type() != tagfilter.NotKey && m.Matches("") {
				matchers = append(matchers, labels.MustNewMatcher(labels.MatchNotEqual, m.Name, ""))
			}
		}
	}
	return &parser.VectorSelector{Name: name, LabelMatchers: matchers}, nil
}

// Downsample wraps vs in the *_over_time function matching d's aggregator,
// over a window of d's interval. Fill policies are not representable in
// PromQL and are not rendered.
func Downsample(vs *parser.VectorSelector, d *query.Downsampler) (parser.Expr, error) {
	return DownsampleWith(aggregator.Default, vs, d)
}

// DownsampleWith is Downsample against a specific aggregator registry.
func DownsampleWith(reg *aggregator.Registry, vs *parser.VectorSelector, d *query.Downsampler) (parser.Expr, error) {
	if err := d.ValidateWith(reg); err != nil {
		return nil, err
	}
	window, err := d.IntervalDuration()
	if err != nil {
		return nil, err
	}
	agg, err := reg.Lookup(strings.ToLower(d.Aggregator()))
	if err != nil {
		return nil, err
	}
	fn, ok := parser.Functions[agg.RangeFunc]
	if agg.RangeFunc == "" || !ok {
		return nil, fmt.Errorf("aggregator %q has no PromQL range function", d.Aggregator())
	}

	var args parser.Expressions
	if agg.Quantile > 0 {
		args = append(args, &parser.NumberLiteral{Val: agg.Quantile})
	}
	args = append(args, &parser.MatrixSelector{VectorSelector: vs, Range: window})
	return &parser.Call{Func: fn, Args: args}, nil
}

var aggregateOps = map[string]parser.ItemType{
	"sum":    parser.SUM,
	"zimsum": parser.SUM,
	"avg":    parser.AVG,
	"min":    parser.MIN,
	"mimmin": parser.MIN,
	"max":    parser.MAX,
	"mimmax": parser.MAX,
	"count":  parser.COUNT,
	"dev":    parser.STDDEV,
}

// GroupByLabels returns the sanitized, sorted, de-duplicated tag keys of the
// group-by filters in f.
func GroupByLabels(f *query.Filter) []string {
	if f == nil {
		return nil
	}
	var out []string
	for _, t := range f.Tags() {
		if t.GroupBy() {
			out = append(out, SanitizeName(t.Tagk()))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Aggregate combines series of expr with the cross-series aggregator op,
// keeping the group-by tag keys of f.
func Aggregate(op string, expr parser.Expr, f *query.Filter) (parser.Expr, error) {
	item, ok := aggregateOps[strings.ToLower(op)]
	if !ok {
		return nil, fmt.Errorf("aggregator %q has no PromQL aggregation operator", op)
	}
	return &parser.AggregateExpr{
		Op:       item,
		Expr:     expr,
		Grouping: GroupByLabels(f),
	}, nil
}

// Translate renders metric, f and d (and an optional cross-series aggregator
// op) as a single PromQL expression. d may be nil for a raw selector.
func Translate(metric string, f *query.Filter, d *query.Downsampler, op string) (parser.Expr, error) {
	vs, err := Selector(metric, f)
	if err != nil {
		return nil, err
	}
	var expr parser.Expr = vs
	if d != nil {
		if expr, err = Downsample(vs, d); err != nil {
			return nil, err
		}
	}
	if op == "" {
		return expr, nil
	}
	return Aggregate(op, expr, f)
}
