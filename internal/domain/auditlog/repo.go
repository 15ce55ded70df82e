package auditlog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, e *LogEntry) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID, limit, offset int) ([]*LogEntry, int, error)
}
