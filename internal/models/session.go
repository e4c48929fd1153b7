package models

import "time"

// RowInfo describes one inbox row reported visible by the presentation layer.
type RowInfo struct {
	MessageID   string `json:"message_id"`
	SilentInbox bool   `json:"silent_inbox"`
}

// SessionStartInfo is captured when an inbox viewing session starts.
type SessionStartInfo struct {
	ID                 string    `json:"id"`
	StartTime          time.Time `json:"start_time"`
	TotalMessageCount  int       `json:"total_message_count"`
	UnreadMessageCount int       `json:"unread_message_count"`
}

// Impression is the accumulated visibility of one message during a session.
type Impression struct {
	MessageID    string        `json:"message_id"`
	SilentInbox  bool          `json:"silent_inbox"`
	FirstShownAt time.Time     `json:"first_shown_at"`
	DisplayCount int           `json:"display_count"`
	Duration     time.Duration `json:"duration"`
}

// SessionInfo is the summary returned when a session ends.
type SessionInfo struct {
	Start       SessionStartInfo `json:"start"`
	EndTime     time.Time        `json:"end_time"`
	Impressions []Impression     `json:"impressions"`
}
