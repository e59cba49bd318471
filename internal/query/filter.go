// Package query holds the canonical value objects that describe pieces of a
// time-series query. Each value is built once through a builder, sorts its
// nested collections at construction, and exposes a fingerprint and a total
// order that agree with Equal, so structurally identical fragments can share
// cache entries and plan nodes regardless of how a client ordered them.
package query

import (
	"slices"

	"github.com/prometheus/common/model"

	"github.com/ata-marzban/tsdb-query-keys/internal/canon"
	"github.com/ata-marzban/tsdb-query-keys/internal/tagfilter"
	"github.com/ata-marzban/tsdb-query-keys/internal/validation"
)

// Filter is a named set of tag-value filters. Tags are held in canonical
// order, so two filters built from permutations of the same tags are equal.
type Filter struct {
	id           string
	tags         []tagfilter.TagVFilter
	explicitTags bool
}

// ID returns the filter set id, or "" when none was set.
func (f *Filter) ID() string { return f.id }

// Tags returns a copy of the tag filters in canonical order. It is nil when
// no tags were set.
func (f *Filter) Tags() []tagfilter.TagVFilter { return slices.Clone(f.tags) }

// ExplicitTags reports whether only series with exactly the filtered tag keys
// should match.
func (f *Filter) ExplicitTags() bool { return f.explicitTags }

// Validate checks the id. Tag filters validate themselves when built, and an
// empty tag list is a legal filter that matches everything.
func (f *Filter) Validate() error {
	if f.id == "" {
		return validation.MissingField("id")
	}
	return validation.ValidateID(f.id)
}

// Fingerprint digests id and explicitTags, then combines that digest with
// each tag filter's digest in canonical order.
func (f *Filter) Fingerprint() model.Fingerprint {
	hashes := make([]model.Fingerprint, 0, len(f.tags)+1)
	hashes = append(hashes, canon.NewHasher().
		PutString(f.id).
		PutBool(f.explicitTags).
		Sum())
	for _, t := range f.tags {
		hashes = append(hashes, t.Fingerprint())
	}
	return canon.CombineOrdered(hashes...)
}

// Compare orders by id, then explicitTags (true first), then tags
// lexicographically. A nil Filter sorts first. It returns 0 exactly when
// Equal is true.
func (f *Filter) Compare(o *Filter) int {
	return canon.NullsFirst(f, o, compareFilters)
}

func compareFilters(f, o *Filter) int {
	return canon.Chain{}.
		Strings(f.id, o.id).
		TrueFirst(f.explicitTags, o.explicitTags).
		Then(func() int { return canon.Lexicographic(f.tags, o.tags, tagfilter.Compare) }).
		Result()
}

// Equal reports component-wise equality of id, canonical tags and
// explicitTags.
func (f *Filter) Equal(o *Filter) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.id == o.id &&
		f.explicitTags == o.explicitTags &&
		slices.EqualFunc(f.tags, o.tags, tagfilter.TagVFilter.Equal)
}

// FilterBuilder stages the fields of a Filter. It is not safe for concurrent
// use.
type FilterBuilder struct {
	id           string
	tags         []tagfilter.TagVFilter
	explicitTags bool
	err          error
}

// NewFilterBuilder returns an empty FilterBuilder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// SetID checks id against the identifier grammar immediately. An invalid id
// is not stored; the error is kept and returned by Err and Build.
func (b *FilterBuilder) SetID(id string) *FilterBuilder {
	if err := validation.ValidateID(id); err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	b.id = id
	return b
}

// SetTags stores a sorted copy of tags. A nil slice means no tags.
func (b *FilterBuilder) SetTags(tags []tagfilter.TagVFilter) *FilterBuilder {
	if tags == nil {
		b.tags = nil
		return b
	}
	b.tags = slices.Clone(tags)
	slices.SortStableFunc(b.tags, tagfilter.Compare)
	return b
}

func (b *FilterBuilder) SetExplicitTags(explicitTags bool) *FilterBuilder {
	b.explicitTags = explicitTags
	return b
}

// Err returns the first error recorded by a setter.
func (b *FilterBuilder) Err() error {
	return b.err
}

// Build returns an immutable Filter from the staged fields, or the first
// setter error.
func (b *FilterBuilder) Build() (*Filter, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Filter{
		id:           b.id,
		tags:         slices.Clone(b.tags),
		explicitTags: b.explicitTags,
	}, nil
}
