package events

import "time"

// EventType labels audit-relevant authentication events.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventUserLogin      EventType = "user.login"
	EventSessionRevoked EventType = "session.revoked"
)

// Event carries the audit payload for an authentication event.
type Event struct {
	Type       EventType
	UserID     string
	OccurredAt time.Time
	Metadata   map[string]string
}
