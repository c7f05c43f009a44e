package audit

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a single append-only audit entry describing an operator action.
type Event struct {
	ID         int64           `json:"id"`
	EventID    uuid.UUID       `json:"event_id"` // idempotency key
	Actor      string          `json:"actor,omitempty"`
	Action     string          `json:"action"`
	TargetType string          `json:"target_type,omitempty"`
	TargetID   string          `json:"target_id,omitempty"`
	Result     string          `json:"result"` // success/failure
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SpooledEvent wraps an event for JSONL failover spooling.
type SpooledEvent struct {
	EventID   string    `json:"event_id"`
	Payload   Event     `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter narrows QueryEvents.
type Filter struct {
	Action string
	Result string
	Limit  int
}

// Service writes events to Postgres, spooling to disk when the database is
// unavailable. Append-only: no update or delete methods exist.
type Service struct {
	DB *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}
