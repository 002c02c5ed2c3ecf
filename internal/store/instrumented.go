package store

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Operation outcomes used as metric label values.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Prometheus metrics.
var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_store_operations_total",
			Help: "Total number of item store operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	storeItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "items_store_items",
			Help: "Number of items currently held by the store",
		},
	)
)

// InstrumentedStore records Prometheus metrics for every call to the
// wrapped Store.
type InstrumentedStore struct {
	next Store
}

// Instrumented wraps s with metrics.
func Instrumented(s Store) *InstrumentedStore {
	return &InstrumentedStore{next: s}
}

// List returns all items from the wrapped store.
func (s *InstrumentedStore) List(ctx context.Context) ([]model.Item, error) {
	items, err := s.next.List(ctx)
	observe("list", err)
	if err == nil {
		storeItems.Set(float64(len(items)))
	}
	return items, err
}

// Get retrieves an item from the wrapped store.
func (s *InstrumentedStore) Get(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.next.Get(ctx, id)
	observe("get", err)
	return item, err
}

// Create adds an item to the wrapped store.
func (s *InstrumentedStore) Create(ctx context.Context, name, description string) (*model.Item, error) {
	item, err := s.next.Create(ctx, name, description)
	observe("create", err)
	if err == nil {
		storeItems.Inc()
	}
	return item, err
}

// Update modifies an item in the wrapped store.
func (s *InstrumentedStore) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	item, err := s.next.Update(ctx, id, patch)
	observe("update", err)
	return item, err
}

// Delete removes an item from the wrapped store.
func (s *InstrumentedStore) Delete(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.next.Delete(ctx, id)
	observe("delete", err)
	if err == nil {
		storeItems.Dec()
	}
	return item, err
}

func observe(operation string, err error) {
	storeOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeError
	}
}
