package aggregator

import (
	"errors"
	"slices"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name      string
		wantFunc  string
		wantQ     float64
		wantFound bool
	}{
		{"sum", "sum_over_time", 0, true},
		{"avg", "avg_over_time", 0, true},
		{"dev", "stddev_over_time", 0, true},
		{"p99", "quantile_over_time", 0.99, true},
		{"ep95r7", "quantile_over_time", 0.95, true},
		{"none", "", 0, true},
		{"what", "", 0, false},
		{"SUM", "", 0, false}, // registry is case-sensitive; callers lower-case
	}
	for _, tt := range tests {
		a, err := Lookup(tt.name)
		if !tt.wantFound {
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Lookup(%q): got %v, want ErrNotFound", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Lookup(%q): %v", tt.name, err)
			continue
		}
		if a.RangeFunc != tt.wantFunc || a.Quantile != tt.wantQ {
			t.Errorf("Lookup(%q) = %+v, want func %q q %v", tt.name, a, tt.wantFunc, tt.wantQ)
		}
	}
}

func TestAlias(t *testing.T) {
	r := NewRegistry(Aggregator{Name: "avg", RangeFunc: "avg_over_time"})
	if err := r.Alias("mean", "avg"); err != nil {
		t.Fatal(err)
	}
	a, err := r.Lookup("mean")
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "avg" {
		t.Errorf("alias resolved to %q, want avg", a.Name)
	}
	if err := r.Alias("x", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("alias to missing target: got %v", err)
	}
	if got := r.Names(); !slices.Equal(got, []string{"avg", "mean"}) {
		t.Errorf("Names() = %v", got)
	}
}
