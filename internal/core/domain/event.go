package domain

import (
	"encoding/json"
	"time"
)

const CurrentEventSchemaVersion = 1

// MutationMetadata travels with every office mutation: who did it, through
// which surface, and under which request.
type MutationMetadata struct {
	Actor      string
	Source     string
	RequestID  string
	OccurredAt time.Time
}

func (m MutationMetadata) Normalize() MutationMetadata {
	if m.Actor == "" {
		m.Actor = "api"
	}
	if m.Source == "" {
		m.Source = "api"
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}
	return m
}

// EventEnvelope is the outbox wire format for office lifecycle events
// (office.created, office.updated).
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SchemaVersion int             `json:"schema_version"`
	TenantID      string          `json:"tenant_id"`
	OfficeID      int64           `json:"office_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Actor         string          `json:"actor"`
	Source        string          `json:"source"`
	Payload       json.RawMessage `json:"payload"`
}

// OutboxEvent is a pending or settled outbox row.
type OutboxEvent struct {
	ID            int64
	EventID       string
	TenantID      string
	Topic         string
	PayloadJSON   json.RawMessage
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}

// AuditEvent records one office mutation for the audit trail.
type AuditEvent struct {
	ID         int64           `json:"id"`
	EventID    string          `json:"event_id"`
	TenantID   string          `json:"tenant_id"`
	OfficeID   int64           `json:"office_id"`
	Action     string          `json:"action"`
	Actor      string          `json:"actor"`
	Source     string          `json:"source"`
	RequestID  string          `json:"request_id"`
	BeforeJSON json.RawMessage `json:"before_json,omitempty"`
	AfterJSON  json.RawMessage `json:"after_json,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// AuditFilter narrows an audit trail listing.
type AuditFilter struct {
	TenantID string
	OfficeID int64
	Action   string
	AfterID  int64
	Limit    int
}
