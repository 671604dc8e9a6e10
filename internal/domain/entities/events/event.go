// Package events defines the event ledger entities.
package events

import "encoding/json"

// Event is one typed event posted by a user into a room. The ledger keeps at
// most one current Event per (username, type) pair; a newer post with the
// same pair replaces the older record.
type Event struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Type      string          `json:"type"`
	RoomID    int             `json:"room_id"`
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Notification is a server-originated message pushed over the live feed. It
// never enters the ledger.
type Notification struct {
	Text       string `json:"text"`
	Persistent bool   `json:"persistent"`
}
