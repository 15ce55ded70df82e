package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. Kana holds the phonetic reading used
// for name search.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	ChartNo   string    `db:"chart_no" json:"chart_no"`
	Name      string    `db:"name" json:"name"`
	Kana      string    `db:"kana" json:"kana,omitempty"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	BirthDate *string   `db:"birth_date" json:"birth_date,omitempty"` // "2006-01-02"
	Memo      string    `db:"memo" json:"memo,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) Validate() error {
	if p.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.BirthDate != nil {
		if _, err := time.Parse("2006-01-02", *p.BirthDate); err != nil {
			return fmt.Errorf("invalid birth_date: %w", err)
		}
	}
	return nil
}
