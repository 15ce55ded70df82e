package staff

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Staff maps to the staff table.
type Staff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name      string    `db:"name" json:"name"`
	Position  string    `db:"position" json:"position"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

var validPositions = map[string]bool{
	"physician": true, "hygienist": true, "assistant": true,
	"receptionist": true, "other": true,
}

func (s *Staff) Validate() error {
	if s.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Position == "" {
		s.Position = "other"
	}
	if !validPositions[s.Position] {
		return fmt.Errorf("invalid position: %s", s.Position)
	}
	return nil
}

// Shift maps to the staff_shifts table: one row per staff member per working
// date. Staff without a shift row do not appear as grid columns that day.
type Shift struct {
	ID        uuid.UUID `db:"id" json:"id"`
	StaffID   uuid.UUID `db:"staff_id" json:"staff_id"`
	WorkDate  string    `db:"work_date" json:"work_date"` // "2006-01-02"
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (s *Shift) Validate() error {
	if s.StaffID == uuid.Nil {
		return fmt.Errorf("staff_id is required")
	}
	if _, err := time.Parse("2006-01-02", s.WorkDate); err != nil {
		return fmt.Errorf("invalid work_date: %w", err)
	}
	return nil
}
