package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// timestampPrecision matches the millisecond resolution of ISO-8601
// timestamps produced by browsers.
const timestampPrecision = time.Millisecond

// MemoryStore implements Store interface with in-memory storage.
// Items are kept in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	items    []model.Item
	now      func() time.Time
	newID    func() string
	notifier Notifier
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the item ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *MemoryStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithNotifier registers a Notifier that is called after each successful
// create, update and delete.
func WithNotifier(n Notifier) Option {
	return func(s *MemoryStore) {
		s.notifier = n
	}
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		items: make([]model.Item, 0),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all items from the store in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, len(s.items))
	copy(items, s.items)

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	item := s.items[idx]
	return &item, nil
}

// Create appends a new item to the store and returns it with a generated ID.
func (s *MemoryStore) Create(ctx context.Context, name, description string) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	now := s.timestamp()
	newItem := model.Item{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.items = append(s.items, newItem)
	s.mu.Unlock()

	s.notify(model.EventItemCreated, newItem)

	return &newItem, nil
}

// Update applies the supplied fields to an existing item and refreshes UpdatedAt.
func (s *MemoryStore) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	existing := s.items[idx]
	updatedItem := patch.Apply(existing)
	updatedItem.UpdatedAt = s.timestamp()
	if updatedItem.UpdatedAt.Before(existing.UpdatedAt) {
		updatedItem.UpdatedAt = existing.UpdatedAt
	}
	s.items[idx] = updatedItem
	s.mu.Unlock()

	s.notify(model.EventItemUpdated, updatedItem)

	return &updatedItem, nil
}

// Delete removes an item from the store and returns its last value.
func (s *MemoryStore) Delete(ctx context.Context, id string) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	deleted := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.mu.Unlock()

	s.notify(model.EventItemDeleted, deleted)

	return &deleted, nil
}

// Len returns the number of stored items.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// indexOf returns the position of the item with the given ID or -1.
// Callers must hold s.mu.
func (s *MemoryStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) timestamp() time.Time {
	return s.now().UTC().Truncate(timestampPrecision)
}

func (s *MemoryStore) notify(eventType model.EventType, item model.Item) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(model.NewItemEvent(eventType, item))
}
