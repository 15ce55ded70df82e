package clinicsettings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const clinicCols = `id, name, slot_minutes, conflict_scope, business_hours, break_times, holidays, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	var hours, breaks, holidays []byte
	err := row.Scan(&c.ID, &c.Name, &c.SlotMinutes, &c.ConflictScope,
		&hours, &breaks, &holidays, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &c.BusinessHours); err != nil {
			return nil, fmt.Errorf("decode business_hours: %w", err)
		}
	}
	if len(breaks) > 0 {
		if err := json.Unmarshal(breaks, &c.BreakTimes); err != nil {
			return nil, fmt.Errorf("decode break_times: %w", err)
		}
	}
	if len(holidays) > 0 {
		if err := json.Unmarshal(holidays, &c.Holidays); err != nil {
			return nil, fmt.Errorf("decode holidays: %w", err)
		}
	}
	return &c, nil
}

func encodeConfig(c *Clinic) (hours, breaks, holidays []byte, err error) {
	if hours, err = json.Marshal(c.BusinessHours); err != nil {
		return nil, nil, nil, fmt.Errorf("encode business_hours: %w", err)
	}
	if breaks, err = json.Marshal(c.BreakTimes); err != nil {
		return nil, nil, nil, fmt.Errorf("encode break_times: %w", err)
	}
	if holidays, err = json.Marshal(c.Holidays); err != nil {
		return nil, nil, nil, fmt.Errorf("encode holidays: %w", err)
	}
	return hours, breaks, holidays, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return scanClinic(r.pool.QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clinics`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+clinicCols+` FROM clinics ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, c *Clinic) error {
	hours, breaks, holidays, err := encodeConfig(c)
	if err != nil {
		return err
	}
	c.ID = uuid.New()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO clinics (id, name, slot_minutes, conflict_scope, business_hours, break_times, holidays)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Name, c.SlotMinutes, c.ConflictScope, hours, breaks, holidays)
	return err
}

func (r *repoPG) Update(ctx context.Context, c *Clinic) error {
	hours, breaks, holidays, err := encodeConfig(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE clinics SET name=$2, slot_minutes=$3, conflict_scope=$4,
			business_hours=$5, break_times=$6, holidays=$7, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.SlotMinutes, c.ConflictScope, hours, breaks, holidays)
	return err
}
