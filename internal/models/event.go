package models

import (
	"encoding/json"
	"time"
)

// EventType categorizes analytics events.
type EventType string

const (
	// Message lifecycle events
	EventTypeMessageDelivered EventType = "inapp.delivered"
	EventTypeMessageShown     EventType = "inapp.shown"
	EventTypeMessageSkipped   EventType = "inapp.skipped"
	EventTypeMessageOpened    EventType = "inapp.opened"
	EventTypeMessageClicked   EventType = "inapp.clicked"
	EventTypeMessageClosed    EventType = "inapp.closed"
	EventTypeMessageConsumed  EventType = "inapp.consumed"
	EventTypeMessageRead      EventType = "inapp.read"

	// Inbox events
	EventTypeInboxChanged EventType = "inbox.changed"
	EventTypeInboxSession EventType = "inbox.session"

	// System events
	EventTypeSyncFailed EventType = "sync.failed"
	EventTypeError      EventType = "error"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeMessage EntityType = "message"
	EntityTypeInbox   EntityType = "inbox"
	EntityTypeSession EntityType = "session"
	EntityTypeSystem  EntityType = "system"
)

// Event represents an append-only analytics log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// InteractionPayload is the payload for opened/clicked/closed events.
type InteractionPayload struct {
	Context     MessageContext `json:"context"`
	ClickedURL  string         `json:"clicked_url,omitempty"`
	CloseSource CloseSource    `json:"close_source,omitempty"`
	CampaignID  int64          `json:"campaign_id,omitempty"`
}

// InboxChangedPayload is the payload for inbox.changed events.
type InboxChangedPayload struct {
	Added       int `json:"added_inbox"`
	Removed     int `json:"removed_inbox"`
	Overwritten int `json:"overwritten"`
	Total       int `json:"total"`
}

// ErrorPayload is the payload for error events.
type ErrorPayload struct {
	Error   string `json:"error"`
	Context string `json:"context,omitempty"`
}
