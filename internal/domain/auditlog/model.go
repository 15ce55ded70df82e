package auditlog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LogEntry maps to the appointment_logs table: one row per appointment
// mutation, with the full before and after snapshots.
type LogEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	AppointmentID uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	Action        string          `db:"action" json:"action"`
	Before        json.RawMessage `db:"before_state" json:"before,omitempty"`
	After         json.RawMessage `db:"after_state" json:"after,omitempty"`
	ActorID       string          `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
