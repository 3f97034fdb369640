package storage

import (
	"context"
	"time"

	"github.com/platinummonkey/itemsapi/pkg/observability"
)

// InstrumentedStore records operation counts, durations and errors for
// an underlying ItemStore.
type InstrumentedStore struct {
	next    ItemStore
	metrics *observability.Metrics
	backend string
}

// NewInstrumentedStore wraps next. With nil metrics it returns next unchanged.
func NewInstrumentedStore(next ItemStore, metrics *observability.Metrics, backend string) ItemStore {
	if metrics == nil {
		return next
	}
	return &InstrumentedStore{next: next, metrics: metrics, backend: backend}
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		s.metrics.StorageErrorsTotal.WithLabelValues(operation, s.backend).Inc()
	}
	s.metrics.StorageOperationsTotal.WithLabelValues(operation, s.backend, status).Inc()
	s.metrics.StorageOperationDuration.WithLabelValues(operation, s.backend).Observe(time.Since(start).Seconds())
}

// ListItems implements ItemReader
func (s *InstrumentedStore) ListItems(ctx context.Context, limit int) ([]*Item, error) {
	start := time.Now()
	items, err := s.next.ListItems(ctx, limit)
	s.observe("list_items", start, err)
	return items, err
}

// CreateItem implements ItemWriter
func (s *InstrumentedStore) CreateItem(ctx context.Context, item *Item) (string, error) {
	start := time.Now()
	id, err := s.next.CreateItem(ctx, item)
	s.observe("create_item", start, err)
	return id, err
}

// Ping implements HealthChecker
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.observe("ping", start, err)
	return err
}

// Close implements Closer
func (s *InstrumentedStore) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
