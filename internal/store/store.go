// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Store errors.
var (
	ErrNotFound = errors.New("item not found")
)

// Store defines the interface for item storage operations.
// Implementations must make every operation atomic relative to the others.
type Store interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id string) (*model.Item, error)

	// Create appends a new item and returns it with its generated ID and timestamps.
	// The name is not validated here.
	Create(ctx context.Context, name, description string) (*model.Item, error)

	// Update applies a partial update to an existing item.
	Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error)

	// Delete removes an item and returns the value it had before removal.
	Delete(ctx context.Context, id string) (*model.Item, error)
}

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Notify(event model.ItemEvent)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(event model.ItemEvent)

// Notify calls f(event).
func (f NotifierFunc) Notify(event model.ItemEvent) {
	f(event)
}
