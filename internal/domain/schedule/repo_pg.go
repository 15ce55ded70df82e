package schedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

// NewAppointmentRepoPG returns the Postgres-backed appointment collaborator.
func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, clinic_id, patient_id, appointment_date, start_time, end_time,
	unit_id, staff1_id, staff2_id, staff3_id, menu1_id, menu2_id, menu3_id,
	status, memo, created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.Date, &a.Start, &a.End,
		&a.UnitID, &a.Staff[0], &a.Staff[1], &a.Staff[2], &a.Menus[0], &a.Menus[1], &a.Menus[2],
		&a.Status, &a.Memo, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) ListByDate(ctx context.Context, clinicID uuid.UUID, date string) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+`
		FROM appointments
		WHERE clinic_id = $1 AND appointment_date = $2
		ORDER BY start_time, created_at`, clinicID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, clinic_id, patient_id, appointment_date, start_time, end_time,
			unit_id, staff1_id, staff2_id, staff3_id, menu1_id, menu2_id, menu3_id,
			status, memo, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		a.ID, a.ClinicID, a.PatientID, a.Date, a.Start, a.End,
		a.UnitID, a.Staff[0], a.Staff[1], a.Staff[2], a.Menus[0], a.Menus[1], a.Menus[2],
		a.Status, a.Memo, a.CreatedBy)
	return err
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments SET appointment_date=$2, start_time=$3, end_time=$4,
			unit_id=$5, staff1_id=$6, staff2_id=$7, staff3_id=$8,
			menu1_id=$9, menu2_id=$10, menu3_id=$11, status=$12, memo=$13, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Date, a.Start, a.End,
		a.UnitID, a.Staff[0], a.Staff[1], a.Staff[2],
		a.Menus[0], a.Menus[1], a.Menus[2], a.Status, a.Memo)
	return err
}
