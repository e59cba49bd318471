package selector

import (
	"strconv"

	"github.com/ata-marzban/tsdb-query-keys/internal/query"
)

// FilterFields exposes f to selector expressions:
//
//	id             the filter id
//	explicit_tags  "true" or "false"
//	tagk           every tag key
//	tag_type       every tag filter type
//	tags.<key>     the filter strings of tags with that key
func FilterFields(f *query.Filter) Fields {
	m := FieldMap{
		"id":            {f.ID()},
		"explicit_tags": {strconv.FormatBool(f.ExplicitTags())},
	}
	for _, t := range f.Tags() {
		m["tagk"] = append(m["tagk"], t.Tagk())
		m["tag_type"] = append(m["tag_type"], string(t.Type()))
		m["tags."+t.Tagk()] = append(m["tags."+t.Tagk()], t.Filter())
	}
	return m
}

// DownsamplerFields exposes d to selector expressions as interval,
// aggregator and fill_policy. fill_policy has no value when d has none.
func DownsamplerFields(d *query.Downsampler) Fields {
	m := FieldMap{
		"interval":   {d.Interval()},
		"aggregator": {d.Aggregator()},
	}
	if p := d.FillPolicy(); p != nil {
		m["fill_policy"] = []string{string(p.Kind())}
	}
	return m
}
