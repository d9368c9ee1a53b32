package models

import (
	"encoding/json"
	"time"
)

// Event is one analytics datapoint, keyed by a browser session cookie.
// UserID is set only when the caller presented a valid token.
type Event struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SessionID  string          `gorm:"not null;index" json:"session_id"`
	UserID     *uint           `gorm:"index" json:"user_id"`
	EventType  string          `gorm:"not null;index" json:"event_type"`
	Screen     string          `json:"screen,omitempty"`
	Properties json.RawMessage `gorm:"type:text" json:"properties,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EventTypeCount is an aggregation row for the admin analytics breakdown.
type EventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}
