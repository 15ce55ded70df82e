package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentRepository is the persistence collaborator for appointments.
// The engine never mutates its local appointment cache directly; every
// committed change round-trips through this interface and is followed by a
// fresh ListByDate.
type AppointmentRepository interface {
	ListByDate(ctx context.Context, clinicID uuid.UUID, date string) ([]*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
}

// SettingsSource provides the clinic configuration the grid is built from.
type SettingsSource interface {
	BusinessHours(ctx context.Context, clinicID uuid.UUID) (BusinessHours, error)
	BreakTimes(ctx context.Context, clinicID uuid.UUID) (BreakTimes, error)
	Holidays(ctx context.Context, clinicID uuid.UUID) (Holidays, error)
	SlotMinutes(ctx context.Context, clinicID uuid.UUID) (int, error)
	Scope(ctx context.Context, clinicID uuid.UUID) (ConflictScope, error)
}

// RosterSource resolves the staff on shift for a date; they form the grid's
// columns.
type RosterSource interface {
	WorkingOn(ctx context.Context, clinicID uuid.UUID, date string) ([]WorkingStaff, error)
}

// ChangeEntry is one appointment mutation for the audit trail.
type ChangeEntry struct {
	AppointmentID uuid.UUID
	Action        string // "create", "update", "cancel"
	Before        *Appointment
	After         *Appointment
	ActorID       string
	At            time.Time
}

// ChangeRecorder persists appointment change history.
type ChangeRecorder interface {
	Record(ctx context.Context, entry ChangeEntry) error
}
