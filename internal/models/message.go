package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TriggerKind classifies when a message should be considered for display.
type TriggerKind string

const (
	TriggerImmediate TriggerKind = "immediate"
	TriggerEvent     TriggerKind = "event"
	TriggerNever     TriggerKind = "never"
)

// DefaultTriggerKind is used when a payload carries no trigger at all.
const DefaultTriggerKind = TriggerImmediate

// ParseTriggerKind maps a payload trigger type to a TriggerKind.
// Unknown kinds map to TriggerNever so that newer server trigger types are
// never shown by an older client.
func ParseTriggerKind(s string) TriggerKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultTriggerKind
	case string(TriggerImmediate):
		return TriggerImmediate
	case string(TriggerEvent):
		return TriggerEvent
	default:
		return TriggerNever
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TriggerKind) UnmarshalText(text []byte) error {
	*k = ParseTriggerKind(string(text))
	return nil
}

// UnmarshalJSON accepts either a bare kind ("immediate") or the object
// form {"type": "immediate"}.
func (k *TriggerKind) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		*k = ParseTriggerKind(kind)
		return nil
	}

	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("trigger: %w", err)
	}
	*k = ParseTriggerKind(obj.Type)
	return nil
}

// Message is a single in-app message as held by the inbox store.
type Message struct {
	// ID uniquely identifies the message. It never changes once created.
	ID string `json:"messageId"`

	// Priority orders candidates for display (lower = more important).
	Priority float64 `json:"priorityLevel"`

	// Trigger decides when the message is eligible for display.
	Trigger TriggerKind `json:"trigger"`

	// CampaignID is the numeric campaign identifier.
	CampaignID int64 `json:"campaignId,omitempty"`

	// CreatedAt is when the server created the message.
	CreatedAt *time.Time `json:"createdAt,omitempty"`

	// ExpiresAt is when the message stops being eligible. Nil means never.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	// SaveToInbox keeps the message in the inbox after it is shown.
	SaveToInbox bool `json:"saveToInbox"`

	// SilentInbox messages go to the inbox without being shown first.
	SilentInbox bool `json:"silentInbox,omitempty"`

	Read              bool `json:"read"`
	Consumed          bool `json:"consumed,omitempty"`
	DidProcessTrigger bool `json:"didProcessTrigger,omitempty"`

	// Pinned messages are floated to the head of the inbox.
	Pinned bool `json:"pinned,omitempty"`

	// Content is the raw display payload. It is opaque to the engine.
	Content json.RawMessage `json:"content,omitempty"`
}

// Expired reports whether the message expiry is at or before now.
func (m *Message) Expired(now time.Time) bool {
	if m.ExpiresAt == nil {
		return false
	}
	return !m.ExpiresAt.After(now)
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.CreatedAt != nil {
		t := *m.CreatedAt
		c.CreatedAt = &t
	}
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		c.ExpiresAt = &t
	}
	if m.Content != nil {
		c.Content = append(json.RawMessage(nil), m.Content...)
	}
	return &c
}

// ContentFields decodes Content as a JSON object. It returns nil when the
// content is empty or not an object.
func (m *Message) ContentFields() map[string]any {
	if len(m.Content) == 0 {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(m.Content, &fields); err != nil {
		return nil
	}
	return fields
}

// Title returns the first non-empty title, subject or name field of Content.
func (m *Message) Title() string {
	fields := m.ContentFields()
	for _, key := range []string{"title", "subject", "name"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Normalize fills payload defaults that JSON decoding leaves empty.
func (m *Message) Normalize() {
	m.ID = strings.TrimSpace(m.ID)
	if m.Trigger == "" {
		m.Trigger = DefaultTriggerKind
	}
}

// Location identifies where a message was presented.
type Location string

const (
	LocationInApp Location = "in-app"
	LocationInbox Location = "inbox"
)

// CloseSource describes how a presented message was dismissed.
type CloseSource string

const (
	CloseSourceBack    CloseSource = "back"
	CloseSourceLink    CloseSource = "link"
	CloseSourceUnknown CloseSource = "unknown"
)

// MessageContext is the tracking context attached to open/click/close events.
type MessageContext struct {
	MessageID      string   `json:"message_id"`
	SaveToInbox    bool     `json:"save_to_inbox"`
	SilentInbox    bool     `json:"silent_inbox"`
	Location       Location `json:"location,omitempty"`
	InboxSessionID string   `json:"inbox_session_id,omitempty"`
}

// ContextFor builds the tracking context for a message.
func ContextFor(m *Message, location Location, inboxSessionID string) MessageContext {
	return MessageContext{
		MessageID:      m.ID,
		SaveToInbox:    m.SaveToInbox,
		SilentInbox:    m.SilentInbox,
		Location:       location,
		InboxSessionID: inboxSessionID,
	}
}
