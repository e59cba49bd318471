// Package aggregator is the registry of aggregation functions a downsampler
// may name. Lookups are by lower-case name.
package aggregator

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned by Lookup for unregistered names.
var ErrNotFound = errors.New("aggregator not found")

// Aggregator describes one registered aggregation function.
type Aggregator struct {
	Name string

	// RangeFunc is the PromQL *_over_time function that computes the same
	// reduction over a window, or "" when PromQL has no equivalent.
	RangeFunc string

	// Quantile is the φ argument for quantile_over_time, 0 otherwise.
	Quantile float64
}

// Registry maps names to aggregators. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Aggregator
}

// NewRegistry returns a registry holding aggs.
func NewRegistry(aggs ...Aggregator) *Registry {
	r := &Registry{byKey: make(map[string]Aggregator, len(aggs))}
	for _, a := range aggs {
		r.byKey[a.Name] = a
	}
	return r
}

// Lookup returns the aggregator registered under name. Callers lower-case
// the name first; the registry itself is case-sensitive.
func (r *Registry) Lookup(name string) (Aggregator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byKey[name]
	if !ok {
		return Aggregator{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a, nil
}

// Alias registers alias as another name for the existing aggregator target.
func (r *Registry) Alias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byKey[target]
	if !ok {
		return fmt.Errorf("alias %q: %w: %q", alias, ErrNotFound, target)
	}
	r.byKey[alias] = a
	return nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byKey))
	for n := range r.byKey {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default holds the built-in aggregators.
var Default = NewRegistry(builtins()...)

// Lookup queries the Default registry.
func Lookup(name string) (Aggregator, error) {
	return Default.Lookup(name)
}

func builtins() []Aggregator {
	aggs := []Aggregator{
		{Name: "sum", RangeFunc: "sum_over_time"},
		{Name: "zimsum", RangeFunc: "sum_over_time"},
		{Name: "min", RangeFunc: "min_over_time"},
		{Name: "mimmin", RangeFunc: "min_over_time"},
		{Name: "max", RangeFunc: "max_over_time"},
		{Name: "mimmax", RangeFunc: "max_over_time"},
		{Name: "avg", RangeFunc: "avg_over_time"},
		{Name: "dev", RangeFunc: "stddev_over_time"},
		{Name: "count", RangeFunc: "count_over_time"},
		{Name: "last", RangeFunc: "last_over_time"},
		{Name: "median", RangeFunc: "quantile_over_time", Quantile: 0.5},
		{Name: "first"},
		{Name: "mult"},
		{Name: "diff"},
		{Name: "none"},
	}
	percentiles := []struct {
		suffix string
		q      float64
	}{
		{"50", 0.5}, {"75", 0.75}, {"90", 0.9}, {"95", 0.95}, {"99", 0.99}, {"999", 0.999},
	}
	for _, p := range percentiles {
		aggs = append(aggs, Aggregator{Name: "p" + p.suffix, RangeFunc: "quantile_over_time", Quantile: p.q})
		// Estimated percentiles differ only in interpolation.
		for _, r := range []string{"r3", "r7"} {
			aggs = append(aggs, Aggregator{Name: "ep" + p.suffix + r, RangeFunc: "quantile_over_time", Quantile: p.q})
		}
	}
	return aggs
}
