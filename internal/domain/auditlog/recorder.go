package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentalink/clinic/internal/domain/schedule"
)

// Recorder persists appointment changes and implements the engine's
// change-recording collaborator.
type Recorder struct {
	repo Repository
	log  zerolog.Logger
}

func NewRecorder(repo Repository, log zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, log: log.With().Str("component", "auditlog").Logger()}
}

// Record implements schedule.ChangeRecorder.
func (r *Recorder) Record(ctx context.Context, entry schedule.ChangeEntry) error {
	e := &LogEntry{
		AppointmentID: entry.AppointmentID,
		Action:        entry.Action,
		ActorID:       entry.ActorID,
	}
	var err error
	if entry.Before != nil {
		if e.Before, err = json.Marshal(entry.Before); err != nil {
			return fmt.Errorf("encode before state: %w", err)
		}
	}
	if entry.After != nil {
		if e.After, err = json.Marshal(entry.After); err != nil {
			return fmt.Errorf("encode after state: %w", err)
		}
	}
	if err := r.repo.Insert(ctx, e); err != nil {
		return err
	}
	r.log.Debug().
		Str("appointment_id", entry.AppointmentID.String()).
		Str("action", entry.Action).
		Msg("appointment change recorded")
	return nil
}

func (r *Recorder) History(ctx context.Context, appointmentID uuid.UUID, limit, offset int) ([]*LogEntry, int, error) {
	return r.repo.ListByAppointment(ctx, appointmentID, limit, offset)
}
