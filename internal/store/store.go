// Package store interns canonical query components by fingerprint so that
// equal filters and downsamplers share one cache key.
package store

import (
	"context"

	"github.com/prometheus/common/model"

	"github.com/ata-marzban/tsdb-query-keys/internal/query"
)

// Store defines the storage interface for interned query components.
type Store interface {
	// Filters
	PutFilter(ctx context.Context, f *query.Filter) (model.Fingerprint, bool, error)
	GetFilter(ctx context.Context, fp model.Fingerprint) (*query.Filter, error)
	ListFilters(ctx context.Context, filter string) ([]*query.Filter, error)
	DeleteFilter(ctx context.Context, fp model.Fingerprint) error

	// Downsamplers
	PutDownsampler(ctx context.Context, d *query.Downsampler) (model.Fingerprint, bool, error)
	GetDownsampler(ctx context.Context, fp model.Fingerprint) (*query.Downsampler, error)
	ListDownsamplers(ctx context.Context, filter string) ([]*query.Downsampler, error)
	DeleteDownsampler(ctx context.Context, fp model.Fingerprint) error

	// Admin
	Reset()

	// State returns summary statistics for the admin API.
	State() map[string]interface{}
}
