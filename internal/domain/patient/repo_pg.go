package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, clinic_id, chart_no, name, kana, phone, birth_date, memo, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.ClinicID, &p.ChartNo, &p.Name, &p.Kana, &p.Phone,
		&p.BirthDate, &p.Memo, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

// Search matches name, kana, or chart number. An empty query lists all
// patients for the clinic.
func (r *repoPG) Search(ctx context.Context, clinicID uuid.UUID, query string, limit, offset int) ([]*Patient, int, error) {
	countSQL := `SELECT COUNT(*) FROM patients WHERE clinic_id = $1`
	listSQL := `SELECT ` + patientCols + ` FROM patients WHERE clinic_id = $1
		ORDER BY kana, name LIMIT $2 OFFSET $3`
	countArgs := []interface{}{clinicID}
	listArgs := []interface{}{clinicID, limit, offset}
	if query != "" {
		countSQL = `SELECT COUNT(*) FROM patients
			WHERE clinic_id = $1 AND (name ILIKE $2 OR kana ILIKE $2 OR chart_no = $3)`
		listSQL = `SELECT ` + patientCols + ` FROM patients
			WHERE clinic_id = $1 AND (name ILIKE $2 OR kana ILIKE $2 OR chart_no = $3)
			ORDER BY kana, name LIMIT $4 OFFSET $5`
		pattern := "%" + query + "%"
		countArgs = []interface{}{clinicID, pattern, query}
		listArgs = []interface{}{clinicID, pattern, query, limit, offset}
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, clinic_id, chart_no, name, kana, phone, birth_date, memo)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.ClinicID, p.ChartNo, p.Name, p.Kana, p.Phone, p.BirthDate, p.Memo)
	return err
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE patients SET chart_no=$2, name=$3, kana=$4, phone=$5, birth_date=$6, memo=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.ChartNo, p.Name, p.Kana, p.Phone, p.BirthDate, p.Memo)
	return err
}
