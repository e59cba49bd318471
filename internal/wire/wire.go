// Package wire maps the JSON form of query components onto the canonical
// value builders and back. Unknown fields are ignored and absent optional
// fields are omitted on output.
package wire

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/ata-marzban/tsdb-query-keys/internal/fill"
	"github.com/ata-marzban/tsdb-query-keys/internal/query"
	"github.com/ata-marzban/tsdb-query-keys/internal/tagfilter"
)

// Bool decodes JSON booleans and their quoted forms ("true", "false").
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
	case "true", `"true"`:
		*b = true
	case "false", `"false"`:
		*b = false
	default:
		return errors.Errorf("invalid boolean %s", data)
	}
	return nil
}

// TagFilter is the JSON form of a tagfilter.TagVFilter.
type TagFilter struct {
	Tagk    string `json:"tagk"`
	Filter  string `json:"filter"`
	Type    string `json:"type"`
	GroupBy Bool   `json:"groupBy"`
}

// Filter is the JSON form of a query.Filter.
type Filter struct {
	ID           *string     `json:"id,omitempty"`
	Tags         []TagFilter `json:"tags,omitempty"`
	ExplicitTags Bool        `json:"explicitTags"`
}

// FillPolicy is the JSON form of a fill.Policy. NaN values are omitted since
// JSON cannot carry them.
type FillPolicy struct {
	Policy string   `json:"policy,omitempty"`
	Value  *float64 `json:"value,omitempty"`
}

// Downsampler is the JSON form of a query.Downsampler.
type Downsampler struct {
	Interval   string      `json:"interval,omitempty"`
	Aggregator string      `json:"aggregator,omitempty"`
	FillPolicy *FillPolicy `json:"fillPolicy,omitempty"`
}

// Build constructs the tag filter; it fails if the tag filter is invalid.
func (w TagFilter) Build() (tagfilter.TagVFilter, error) {
	return tagfilter.NewBuilder().
		SetTagk(w.Tagk).
		SetFilter(w.Filter).
		SetType(tagfilter.Type(w.Type)).
		SetGroupBy(bool(w.GroupBy)).
		Build()
}

// Build populates a query.FilterBuilder. A present id is checked eagerly; an
// absent one is left for Filter.Validate.
func (w *Filter) Build() (*query.Filter, error) {
	b := query.NewFilterBuilder().SetExplicitTags(bool(w.ExplicitTags))
	if w.ID != nil {
		b.SetID(*w.ID)
	}
	if w.Tags != nil {
		tags := make([]tagfilter.TagVFilter, len(w.Tags))
		for i, t := range w.Tags {
			tf, err := t.Build()
			if err != nil {
				return nil, errors.Wrapf(err, "tags[%d]", i)
			}
			tags[i] = tf
		}
		b.SetTags(tags)
	}
	return b.Build()
}

// Build constructs the fill policy. Validation is left to the owner.
func (w *FillPolicy) Build() *fill.Policy {
	b := fill.NewBuilder().SetKind(fill.Kind(w.Policy))
	if w.Value != nil {
		b.SetValue(*w.Value)
	}
	return b.Build()
}

// Build populates a query.DownsamplerBuilder verbatim.
func (w *Downsampler) Build() *query.Downsampler {
	b := query.NewDownsamplerBuilder().
		SetInterval(w.Interval).
		SetAggregator(w.Aggregator)
	if w.FillPolicy != nil {
		b.SetFillPolicy(w.FillPolicy.Build())
	}
	return b.Build()
}

// FromTagFilter returns the JSON form of f.
func FromTagFilter(f tagfilter.TagVFilter) TagFilter {
	return TagFilter{
		Tagk:    f.Tagk(),
		Filter:  f.Filter(),
		Type:    string(f.Type()),
		GroupBy: Bool(f.GroupBy()),
	}
}

// FromFilter returns the JSON form of f.
func FromFilter(f *query.Filter) *Filter {
	w := &Filter{ExplicitTags: Bool(f.ExplicitTags())}
	if id := f.ID(); id != "" {
		w.ID = &id
	}
	if tags := f.Tags(); tags != nil {
		w.Tags = make([]TagFilter, len(tags))
		for i, t := range tags {
			w.Tags[i] = FromTagFilter(t)
		}
	}
	return w
}

// FromFillPolicy returns the JSON form of p, or nil.
func FromFillPolicy(p *fill.Policy) *FillPolicy {
	if p == nil {
		return nil
	}
	w := &FillPolicy{Policy: string(p.Kind())}
	if v := p.Value(); !math.IsNaN(v) {
		w.Value = &v
	}
	return w
}

// FromDownsampler returns the JSON form of d.
func FromDownsampler(d *query.Downsampler) *Downsampler {
	return &Downsampler{
		Interval:   d.Interval(),
		Aggregator: d.Aggregator(),
		FillPolicy: FromFillPolicy(d.FillPolicy()),
	}
}

// DecodeFilter parses a JSON filter.
func DecodeFilter(data []byte) (*query.Filter, error) {
	var w Filter
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "decode filter")
	}
	f, err := w.Build()
	if err != nil {
		return nil, errors.Wrap(err, "decode filter")
	}
	return f, nil
}

// EncodeFilter renders f as JSON.
func EncodeFilter(f *query.Filter) ([]byte, error) {
	return json.Marshal(FromFilter(f))
}

// DecodeDownsampler parses a JSON downsampler.
func DecodeDownsampler(data []byte) (*query.Downsampler, error) {
	var w Downsampler
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "decode downsampler")
	}
	return w.Build(), nil
}

// EncodeDownsampler renders d as JSON.
func EncodeDownsampler(d *query.Downsampler) ([]byte, error) {
	return json.Marshal(FromDownsampler(d))
}
