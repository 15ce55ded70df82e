package clinicsettings

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dentalink/clinic/internal/domain/schedule"
)

// Clinic maps to the clinics table. The grid configuration (hours, breaks,
// holidays) is stored as JSONB keyed by weekday number.
type Clinic struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	Name          string                 `db:"name" json:"name"`
	SlotMinutes   int                    `db:"slot_minutes" json:"slot_minutes"`
	ConflictScope schedule.ConflictScope `db:"conflict_scope" json:"conflict_scope"`
	BusinessHours schedule.BusinessHours `db:"business_hours" json:"business_hours"`
	BreakTimes    schedule.BreakTimes    `db:"break_times" json:"break_times"`
	Holidays      schedule.Holidays      `db:"holidays" json:"holidays"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time              `db:"updated_at" json:"updated_at"`
}

var validSlotMinutes = map[int]bool{5: true, 10: true, 15: true, 20: true, 30: true, 60: true}

var validScopes = map[schedule.ConflictScope]bool{
	schedule.ScopeClinic: true,
	schedule.ScopeStaff:  true,
	schedule.ScopeUnit:   true,
}

// Validate checks the grid configuration invariants.
func (c *Clinic) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.SlotMinutes == 0 {
		c.SlotMinutes = schedule.DefaultSlotMinutes
	}
	if !validSlotMinutes[c.SlotMinutes] {
		return fmt.Errorf("invalid slot_minutes: %d", c.SlotMinutes)
	}
	if c.ConflictScope == "" {
		c.ConflictScope = schedule.ScopeClinic
	}
	if !validScopes[c.ConflictScope] {
		return fmt.Errorf("invalid conflict_scope: %s", c.ConflictScope)
	}
	for day, hours := range c.BusinessHours {
		if !hours.IsOpen {
			continue
		}
		for _, iv := range hours.Intervals {
			s, err := schedule.ParseClock(iv.Start)
			if err != nil {
				return fmt.Errorf("%s business hours: %w", day, err)
			}
			e, err := schedule.ParseClock(iv.End)
			if err != nil {
				return fmt.Errorf("%s business hours: %w", day, err)
			}
			if s >= e {
				return fmt.Errorf("%s business hours: %s must be before %s", day, iv.Start, iv.End)
			}
		}
	}
	for day, br := range c.BreakTimes {
		s, err := schedule.ParseClock(br.Start)
		if err != nil {
			return fmt.Errorf("%s break: %w", day, err)
		}
		e, err := schedule.ParseClock(br.End)
		if err != nil {
			return fmt.Errorf("%s break: %w", day, err)
		}
		if s >= e {
			return fmt.Errorf("%s break: %s must be before %s", day, br.Start, br.End)
		}
	}
	return nil
}
