package model

import "time"

// EventType names a change made to the item collection.
type EventType string

// Item event types.
const (
	EventItemCreated EventType = "item.created"
	EventItemUpdated EventType = "item.updated"
	EventItemDeleted EventType = "item.deleted"
)

// ItemEvent describes one successful store mutation. For deletions Item holds
// the value the item had before it was removed.
type ItemEvent struct {
	Type      EventType `json:"type"`
	Item      Item      `json:"item"`
	Timestamp time.Time `json:"timestamp"`
}

// NewItemEvent creates an ItemEvent stamped with the current UTC time.
func NewItemEvent(eventType EventType, item Item) ItemEvent {
	return ItemEvent{
		Type:      eventType,
		Item:      item,
		Timestamp: time.Now().UTC(),
	}
}
