package store

import (
	"context"
	"slices"
	"sync"

	"github.com/prometheus/common/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ata-marzban/tsdb-query-keys/internal/query"
	"github.com/ata-marzban/tsdb-query-keys/internal/selector"
)

// MemoryStore implements Store with in-memory maps. Stored values are
// immutable, so they are shared rather than cloned.
type MemoryStore struct {
	mu sync.RWMutex

	filters      map[model.Fingerprint]*query.Filter
	downsamplers map[model.Fingerprint]*query.Downsampler

	// hits counts Put calls that found an equal value already interned.
	hits int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		filters:      make(map[model.Fingerprint]*query.Filter),
		downsamplers: make(map[model.Fingerprint]*query.Downsampler),
	}
}

// PutFilter validates and interns f. It reports whether an equal filter was
// already present. A different filter with the same fingerprint is rejected
// with AlreadyExists.
func (s *MemoryStore) PutFilter(_ context.Context, f *query.Filter) (model.Fingerprint, bool, error) {
	if f == nil {
		return 0, false, status.Error(codes.InvalidArgument, "filter is required")
	}
	if err := f.Validate(); err != nil {
		return 0, false, err
	}
	fp := f.Fingerprint()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.filters[fp]; ok {
		if !existing.Equal(f) {
			return 0, false, status.Errorf(codes.AlreadyExists, "filter fingerprint %s collides with filter %q", fp, existing.ID())
		}
		s.hits++
		return fp, true, nil
	}
	s.filters[fp] = f
	return fp, false, nil
}

func (s *MemoryStore) GetFilter(_ context.Context, fp model.Fingerprint) (*query.Filter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.filters[fp]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "filter %s not found", fp)
	}
	return f, nil
}

// ListFilters returns the interned filters matching the selector
// expression filterStr, in canonical order. An empty filterStr matches all.
func (s *MemoryStore) ListFilters(_ context.Context, filterStr string) ([]*query.Filter, error) {
	expr, err := selector.Parse(filterStr)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid filter: %v", err)
	}

	s.mu.RLock()
	var result []*query.Filter
	for _, f := range s.filters {
		if selector.Match(expr, selector.FilterFields(f)) {
			result = append(result, f)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(result, (*query.Filter).Compare)
	return result, nil
}

func (s *MemoryStore) DeleteFilter(_ context.Context, fp model.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.filters[fp]; !ok {
		return status.Errorf(codes.NotFound, "filter %s not found", fp)
	}
	delete(s.filters, fp)
	return nil
}

// PutDownsampler validates and interns d, with the same collision rules as
// PutFilter.
func (s *MemoryStore) PutDownsampler(_ context.Context, d *query.Downsampler) (model.Fingerprint, bool, error) {
	if d == nil {
		return 0, false, status.Error(codes.InvalidArgument, "downsampler is required")
	}
	if err := d.Validate(); err != nil {
		return 0, false, err
	}
	fp := d.Fingerprint()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.downsamplers[fp]; ok {
		if !existing.Equal(d) {
			return 0, false, status.Errorf(codes.AlreadyExists, "downsampler fingerprint %s collides with %s-%s", fp, existing.Interval(), existing.Aggregator())
		}
		s.hits++
		return fp, true, nil
	}
	s.downsamplers[fp] = d
	return fp, false, nil
}

func (s *MemoryStore) GetDownsampler(_ context.Context, fp model.Fingerprint) (*query.Downsampler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.downsamplers[fp]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "downsampler %s not found", fp)
	}
	return d, nil
}

// ListDownsamplers is ListFilters for downsamplers.
func (s *MemoryStore) ListDownsamplers(_ context.Context, filterStr string) ([]*query.Downsampler, error) {
	expr, err := selector.Parse(filterStr)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid filter: %v", err)
	}

	s.mu.RLock()
	var result []*query.Downsampler
	for _, d := range s.downsamplers {
		if selector.Match(expr, selector.DownsamplerFields(d)) {
			result = append(result, d)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(result, (*query.Downsampler).Compare)
	return result, nil
}

func (s *MemoryStore) DeleteDownsampler(_ context.Context, fp model.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.downsamplers[fp]; !ok {
		return status.Errorf(codes.NotFound, "downsampler %s not found", fp)
	}
	delete(s.downsamplers, fp)
	return nil
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters = make(map[model.Fingerprint]*query.Filter)
	s.downsamplers = make(map[model.Fingerprint]*query.Downsampler)
	s.hits = 0
}

func (s *MemoryStore) State() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"filters":      len(s.filters),
		"downsamplers": len(s.downsamplers),
		"hits":         s.hits,
	}
}
