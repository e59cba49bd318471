// Package fill defines the numeric fill policy a downsampler applies to
// intervals that have no data.
package fill

import (
	"math"

	"github.com/prometheus/common/model"

	"github.com/ata-marzban/tsdb-query-keys/internal/canon"
	"github.com/ata-marzban/tsdb-query-keys/internal/validation"
)

// Kind names a fill strategy.
type Kind string

const (
	None   Kind = "none"   // emit nothing for missing intervals
	NaN    Kind = "nan"    // emit NaN
	Null   Kind = "null"   // emit null on the wire, NaN internally
	Zero   Kind = "zero"   // emit 0
	Scalar Kind = "scalar" // emit a caller-supplied constant
)

// ParseKind returns the Kind for s, which must be lower-case.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case None, NaN, Null, Zero, Scalar:
		return k, true
	}
	return "", false
}

// Policy is an immutable fill policy. Build one with a Builder.
type Policy struct {
	kind  Kind
	value float64
}

// Kind returns the fill strategy.
func (p *Policy) Kind() Kind { return p.kind }

// Value returns the fill value; NaN for the none, nan and null kinds.
func (p *Policy) Value() float64 { return p.value }

// Validate checks that the value agrees with the kind.
func (p *Policy) Validate() error {
	switch p.kind {
	case "":
		return validation.MissingField("fillPolicy.policy")
	case None, NaN, Null:
		if !math.IsNaN(p.value) {
			return validation.InvalidValue("fillPolicy.value", "value for fill policy %q must be NaN, got %v", p.kind, p.value)
		}
	case Zero:
		if p.value != 0 {
			return validation.InvalidValue("fillPolicy.value", "value for fill policy %q must be 0, got %v", p.kind, p.value)
		}
	case Scalar:
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return validation.InvalidValue("fillPolicy.value", "value for fill policy %q must be finite, got %v", p.kind, p.value)
		}
	default:
		return validation.InvalidValue("fillPolicy.policy", "unknown fill policy %q", p.kind)
	}
	return nil
}

// Fingerprint digests the kind name and the value.
func (p *Policy) Fingerprint() model.Fingerprint {
	return canon.NewHasher().
		PutString(string(p.kind)).
		PutFloat64(p.value).
		Sum()
}

// Compare orders by kind name, then value with NaN first.
func (p *Policy) Compare(o *Policy) int {
	return canon.Chain{}.
		Strings(string(p.kind), string(o.kind)).
		Float64s(p.value, o.value).
		Result()
}

// Equal reports whether p and o have the same kind and value. NaN equals NaN.
func (p *Policy) Equal(o *Policy) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Compare(o) == 0
}

// Builder stages the fields of a Policy.
type Builder struct {
	kind     Kind
	value    float64
	valueSet bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetKind stores the fill strategy verbatim; it is checked by Validate.
func (b *Builder) SetKind(k Kind) *Builder {
	b.kind = k
	return b
}

// SetValue stores the fill value.
func (b *Builder) SetValue(v float64) *Builder {
	b.value = v
	b.valueSet = true
	return b
}

// Build returns the Policy. An unset value defaults per kind (0 for zero,
// NaN otherwise); an unset kind is inferred from the value.
func (b *Builder) Build() *Policy {
	p := &Policy{kind: b.kind, value: b.value}
	if !b.valueSet {
		p.value = math.NaN()
		if b.kind == Zero {
			p.value = 0
		}
	}
	if p.kind == "" && b.valueSet {
		switch {
		case b.value == 0:
			p.kind = Zero
		case math.IsNaN(b.value):
			p.kind = NaN
		default:
			p.kind = Scalar
		}
	}
	return p
}
