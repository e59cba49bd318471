// Package tagfilter defines the tag-value sub-filter: a matcher over the
// values of a single tag key, such as wildcard(web*) on host.
package tagfilter

import (
	"fmt"

	"github.com/prometheus/common/model"

	"github.com/ata-marzban/tsdb-query-keys/internal/canon"
	"github.com/ata-marzban/tsdb-query-keys/internal/validation"
)

// Type names a matching strategy.
type Type string

const (
	LiteralOr     Type = "literal_or"
	ILiteralOr    Type = "iliteral_or"
	NotLiteralOr  Type = "not_literal_or"
	NotILiteralOr Type = "not_iliteral_or"
	Wildcard      Type = "wildcard"
	IWildcard     Type = "iwildcard"
	Regexp        Type = "regexp"
	NotKey        Type = "not_key"
)

// Types lists every supported Type.
var Types = []Type{LiteralOr, ILiteralOr, NotLiteralOr, NotILiteralOr, Wildcard, IWildcard, Regexp, NotKey}

func knownType(t Type) bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// TagVFilter is an immutable tag-value filter. The zero value is not valid;
// use a Builder.
type TagVFilter struct {
	tagk    string
	filter  string
	typ     Type
	groupBy bool
}

func (f TagVFilter) Tagk() string   { return f.tagk }
func (f TagVFilter) Filter() string { return f.filter }
func (f TagVFilter) Type() Type     { return f.typ }
func (f TagVFilter) GroupBy() bool  { return f.groupBy }

// String renders the textual form, e.g. host=wildcard(web*).
func (f TagVFilter) String() string {
	return fmt.Sprintf("%s=%s(%s)", f.tagk, f.typ, f.filter)
}

// Compare is the natural order: tagk, filter, type, then group-by filters
// before the rest.
func (f TagVFilter) Compare(o TagVFilter) int {
	return canon.Chain{}.
		Strings(f.tagk, o.tagk).
		Strings(f.filter, o.filter).
		Strings(string(f.typ), string(o.typ)).
		TrueFirst(f.groupBy, o.groupBy).
		Result()
}

// Compare is TagVFilter.Compare as a function value, for slices.SortFunc.
func Compare(a, b TagVFilter) int { return a.Compare(b) }

// Equal reports field-wise equality.
func (f TagVFilter) Equal(o TagVFilter) bool { return f == o }

// Fingerprint digests type, tagk, filter and groupBy.
func (f TagVFilter) Fingerprint() model.Fingerprint {
	return canon.NewHasher().
		PutString(string(f.typ)).
		PutString(f.tagk).
		PutString(f.filter).
		PutBool(f.groupBy).
		Sum()
}

// Builder stages the fields of a TagVFilter.
type Builder struct {
	f TagVFilter
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetTagk(tagk string) *Builder {
	b.f.tagk = tagk
	return b
}

func (b *Builder) SetFilter(filter string) *Builder {
	b.f.filter = filter
	return b
}

func (b *Builder) SetType(t Type) *Builder {
	b.f.typ = t
	return b
}

func (b *Builder) SetGroupBy(groupBy bool) *Builder {
	b.f.groupBy = groupBy
	return b
}

// Build validates the staged fields and returns the filter. The tag key must
// be non-empty, the type known, and the filter expression must compile.
func (b *Builder) Build() (TagVFilter, error) {
	f := b.f
	if f.tagk == "" {
		return TagVFilter{}, validation.MissingField("tagk")
	}
	if f.typ == "" {
		return TagVFilter{}, validation.MissingField("type")
	}
	if !knownType(f.typ) {
		return TagVFilter{}, validation.InvalidValue("type", "unknown tag filter type %q", f.typ)
	}
	if f.filter == "" && f.typ != NotKey {
		return TagVFilter{}, validation.MissingField("filter")
	}
	if _, err := f.Matcher(); err != nil {
		return TagVFilter{}, validation.InvalidSyntax("filter", err, "cannot compile %s", f)
	}
	return f, nil
}
