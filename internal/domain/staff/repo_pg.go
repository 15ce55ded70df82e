package staff

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalink/clinic/internal/domain/schedule"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const staffCols = `id, clinic_id, name, position, active, created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.ClinicID, &s.Name, &s.Position, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return scanStaff(r.pool.QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id))
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID, limit, offset int) ([]*Staff, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE clinic_id = $1`, clinicID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+staffCols+` FROM staff
		WHERE clinic_id = $1 ORDER BY name LIMIT $2 OFFSET $3`, clinicID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, s *Staff) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff (id, clinic_id, name, position, active)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.ClinicID, s.Name, s.Position, s.Active)
	return err
}

func (r *repoPG) Update(ctx context.Context, s *Staff) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE staff SET name=$2, position=$3, active=$4, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Position, s.Active)
	return err
}

func (r *repoPG) AddShift(ctx context.Context, sh *Shift) error {
	sh.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_shifts (id, staff_id, work_date)
		VALUES ($1,$2,$3)
		ON CONFLICT (staff_id, work_date) DO NOTHING`,
		sh.ID, sh.StaffID, sh.WorkDate)
	return err
}

func (r *repoPG) RemoveShift(ctx context.Context, staffID uuid.UUID, date string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM staff_shifts WHERE staff_id = $1 AND work_date = $2`, staffID, date)
	return err
}

func (r *repoPG) WorkingOn(ctx context.Context, clinicID uuid.UUID, date string) ([]schedule.WorkingStaff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.name, s.position
		FROM staff s
		JOIN staff_shifts sh ON sh.staff_id = s.id
		WHERE s.clinic_id = $1 AND sh.work_date = $2 AND s.active
		ORDER BY s.name`, clinicID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var working []schedule.WorkingStaff
	for rows.Next() {
		var ws schedule.WorkingStaff
		if err := rows.Scan(&ws.StaffID, &ws.Name, &ws.Position); err != nil {
			return nil, err
		}
		working = append(working, ws)
	}
	return working, rows.Err()
}
