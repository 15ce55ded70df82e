package auditlog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Insert(ctx context.Context, e *LogEntry) error {
	e.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_logs (id, appointment_id, action, before_state, after_state, actor_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.AppointmentID, e.Action, e.Before, e.After, e.ActorID)
	return err
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID, limit, offset int) ([]*LogEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment_logs WHERE appointment_id = $1`, appointmentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, action, before_state, after_state, actor_id, created_at
		FROM appointment_logs
		WHERE appointment_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, appointmentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.AppointmentID, &e.Action, &e.Before, &e.After, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
