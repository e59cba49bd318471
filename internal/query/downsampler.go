package query

import (
	"strings"
	"time"

	"github.com/prometheus/common/model"

	"github.com/ata-marzban/tsdb-query-keys/internal/aggregator"
	"github.com/ata-marzban/tsdb-query-keys/internal/canon"
	"github.com/ata-marzban/tsdb-query-keys/internal/duration"
	"github.com/ata-marzban/tsdb-query-keys/internal/fill"
	"github.com/ata-marzban/tsdb-query-keys/internal/validation"
)

// Downsampler reduces each series to one value per interval using an
// aggregator, optionally filling empty intervals.
//
// Interval and aggregator are compared and hashed exactly as given: "60s"
// and "1m" are different downsamplers, as are "sum" and "SUM", even though
// Validate accepts both spellings of each.
type Downsampler struct {
	interval   string
	aggregator string
	fillPolicy *fill.Policy
}

// Interval returns the interval string, e.g. "60s".
func (d *Downsampler) Interval() string { return d.interval }

// Aggregator returns the aggregator name as provided.
func (d *Downsampler) Aggregator() string { return d.aggregator }

// FillPolicy returns the fill policy, or nil when none was set.
func (d *Downsampler) FillPolicy() *fill.Policy { return d.fillPolicy }

// IntervalDuration parses the interval.
func (d *Downsampler) IntervalDuration() (time.Duration, error) {
	return duration.Parse(d.interval)
}

// Validate checks every field. A fill policy error is returned unchanged.
func (d *Downsampler) Validate() error {
	return d.ValidateWith(aggregator.Default)
}

// ValidateWith is Validate against a specific aggregator registry.
func (d *Downsampler) ValidateWith(reg *aggregator.Registry) error {
	if d.interval == "" {
		return validation.MissingField("interval")
	}
	if _, err := duration.Parse(d.interval); err != nil {
		return validation.InvalidSyntax("interval", err, "invalid interval %q", d.interval)
	}
	if d.aggregator == "" {
		return validation.MissingField("aggregator")
	}
	if _, err := reg.Lookup(strings.ToLower(d.aggregator)); err != nil {
		return validation.UnknownAggregator("aggregator", d.aggregator, err)
	}
	if d.fillPolicy != nil {
		if err := d.fillPolicy.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint digests interval and aggregator, then combines that digest
// with the fill policy's when one is present.
func (d *Downsampler) Fingerprint() model.Fingerprint {
	base := canon.NewHasher().
		PutString(d.interval).
		PutString(d.aggregator).
		Sum()
	if d.fillPolicy == nil {
		return canon.CombineOrdered(base)
	}
	return canon.CombineOrdered(base, d.fillPolicy.Fingerprint())
}

// Compare orders by interval, aggregator, then fill policy with an absent
// policy first. A nil Downsampler sorts first. It returns 0 exactly when
// Equal is true.
func (d *Downsampler) Compare(o *Downsampler) int {
	return canon.NullsFirst(d, o, compareDownsamplers)
}

func compareDownsamplers(d, o *Downsampler) int {
	return canon.Chain{}.
		Strings(d.interval, o.interval).
		Strings(d.aggregator, o.aggregator).
		Then(func() int { return canon.NullsFirst(d.fillPolicy, o.fillPolicy, (*fill.Policy).Compare) }).
		Result()
}

// Equal reports component-wise equality of all three fields as stored.
func (d *Downsampler) Equal(o *Downsampler) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.interval == o.interval &&
		d.aggregator == o.aggregator &&
		d.fillPolicy.Equal(o.fillPolicy)
}

// DownsamplerBuilder stages the fields of a Downsampler. Setters store values
// verbatim; all checks happen in Validate.
type DownsamplerBuilder struct {
	interval   string
	aggregator string
	fillPolicy *fill.Policy
}

// NewDownsamplerBuilder returns an empty DownsamplerBuilder.
func NewDownsamplerBuilder() *DownsamplerBuilder {
	return &DownsamplerBuilder{}
}

func (b *DownsamplerBuilder) SetInterval(interval string) *DownsamplerBuilder {
	b.interval = interval
	return b
}

func (b *DownsamplerBuilder) SetAggregator(aggregator string) *DownsamplerBuilder {
	b.aggregator = aggregator
	return b
}

func (b *DownsamplerBuilder) SetFillPolicy(p *fill.Policy) *DownsamplerBuilder {
	b.fillPolicy = p
	return b
}

// Build returns an immutable Downsampler from the staged fields.
func (b *DownsamplerBuilder) Build() *Downsampler {
	return &Downsampler{
		interval:   b.interval,
		aggregator: b.aggregator,
		fillPolicy: b.fillPolicy,
	}
}
