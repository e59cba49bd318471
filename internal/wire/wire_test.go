package wire

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ata-marzban/tsdb-query-keys/internal/fill"
	"github.com/ata-marzban/tsdb-query-keys/internal/query"
	"github.com/ata-marzban/tsdb-query-keys/internal/tagfilter"
	"github.com/ata-marzban/tsdb-query-keys/internal/validation"
)

func hostWildcard(t *testing.T) tagfilter.TagVFilter {
	t.Helper()
	tag, err := tagfilter.NewBuilder().
		SetFilter("*").
		SetGroupBy(false).
		SetTagk("host").
		SetType(tagfilter.IWildcard).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return tag
}

func TestDecodeFilter(t *testing.T) {
	data := `{"id":"f1","tags":[{"tagk":"host","filter":"*","type":"iwildcard","groupBy":false}],"explicitTags":"true"}`

	want, err := query.NewFilterBuilder().
		SetID("f1").
		SetTags([]tagfilter.TagVFilter{hostWildcard(t)}).
		SetExplicitTags(true).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecodeFilter([]byte(data))
	if err != nil {
		t.Fatalf("DecodeFilter: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("decoded %+v, want %+v", FromFilter(got), FromFilter(want))
	}
}

func TestDecodeFilterNullID(t *testing.T) {
	f, err := DecodeFilter([]byte(`{"id":null}`))
	if err != nil {
		t.Fatalf("DecodeFilter: %v", err)
	}
	if err := f.Validate(); !errors.Is(err, validation.ErrMissingField) {
		t.Errorf("Validate() = %v, want ErrMissingField", err)
	}
}

func TestDecodeFilterErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"bad id", `{"id":"bad.Id","tags":[]}`, validation.ErrInvalidSyntax},
		{"empty id", `{"id":""}`, validation.ErrMissingField},
		{"empty tagk", `{"id":"1","tags":[{"tagk":"","filter":"*","type":"iwildcard"}]}`, validation.ErrMissingField},
		{"unknown tag type", `{"id":"1","tags":[{"tagk":"host","filter":"*","type":"glob"}]}`, validation.ErrInvalidValue},
	}
	for _, tt := range tests {
		_, err := DecodeFilter([]byte(tt.data))
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	if _, err := DecodeFilter([]byte(`{"id":"f1","explicitTags":"maybe"}`)); err == nil {
		t.Error("expected error for non-boolean explicitTags")
	}
	if _, err := DecodeFilter([]byte(`{"id":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestBoolUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Bool
		wantErr bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`"true"`, true, false},
		{`"false"`, false, false},
		{`null`, false, false},
		{`1`, false, true},
		{`0`, false, true},
		{`"1"`, false, true},
		{`"t"`, false, true},
		{`"T"`, false, true},
		{`"F"`, false, true},
		{`"TRUE"`, false, true},
	}
	for _, tt := range tests {
		var b Bool
		err := b.UnmarshalJSON([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalJSON(%s): err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && b != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %v, want %v", tt.in, b, tt.want)
		}
	}
}

func TestDecodeFilterIgnoresUnknownFields(t *testing.T) {
	f, err := DecodeFilter([]byte(`{"id":"1","unknown":"yo"}`))
	if err != nil {
		t.Fatalf("DecodeFilter: %v", err)
	}
	if f.ID() != "1" {
		t.Errorf("ID() = %q", f.ID())
	}
}

func TestEncodeFilter(t *testing.T) {
	f, err := query.NewFilterBuilder().
		SetID("f1").
		SetTags([]tagfilter.TagVFilter{hostWildcard(t)}).
		SetExplicitTags(true).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeFilter(f)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{`"id":"f1"`, `"tags":[`, `"tagk":"host"`, `"explicitTags":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("EncodeFilter output %s missing %s", out, want)
		}
	}

	empty, _ := query.NewFilterBuilder().Build()
	data, err = EncodeFilter(empty)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"explicitTags":false}` {
		t.Errorf("absent fields not omitted: %s", got)
	}

	back, err := DecodeFilter([]byte(out))
	if err != nil || !back.Equal(f) {
		t.Errorf("round trip failed: %v", err)
	}
}

func TestDownsamplerJSON(t *testing.T) {
	d, err := DecodeDownsampler([]byte(`{"interval":"60s","aggregator":"SUM","fillPolicy":{"policy":"scalar","value":1.5},"extra":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.Interval() != "60s" || d.Aggregator() != "SUM" {
		t.Errorf("fields not verbatim: %q %q", d.Interval(), d.Aggregator())
	}
	if p := d.FillPolicy(); p == nil || p.Kind() != fill.Scalar || p.Value() != 1.5 {
		t.Errorf("fill policy = %+v", FromFillPolicy(p))
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	data, err := EncodeDownsampler(d)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeDownsampler(data)
	if err != nil || !back.Equal(d) {
		t.Errorf("round trip of %s failed: %v", data, err)
	}
}

func TestDownsamplerJSONOmitsAbsent(t *testing.T) {
	nan := query.NewDownsamplerBuilder().
		SetInterval("1m").
		SetAggregator("avg").
		SetFillPolicy(fill.NewBuilder().SetKind(fill.NaN).Build()).
		Build()
	data, err := EncodeDownsampler(nan)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"interval":"1m","aggregator":"avg","fillPolicy":{"policy":"nan"}}` {
		t.Errorf("EncodeDownsampler = %s", got)
	}
	back, err := DecodeDownsampler(data)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(back.FillPolicy().Value()) || !back.Equal(nan) {
		t.Errorf("NaN fill value lost in round trip")
	}

	bare := query.NewDownsamplerBuilder().SetInterval("1m").SetAggregator("avg").Build()
	data, _ = EncodeDownsampler(bare)
	if got := string(data); got != `{"interval":"1m","aggregator":"avg"}` {
		t.Errorf("EncodeDownsampler = %s", got)
	}
}

func TestDownsamplerJSONUnknownAggregator(t *testing.T) {
	d, err := DecodeDownsampler([]byte(`{"interval":"60s","aggregator":"what"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Validate(); !errors.Is(err, validation.ErrUnknownAggregator) {
		t.Errorf("Validate() = %v, want ErrUnknownAggregator", err)
	}
}
