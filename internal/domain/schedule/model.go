package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TimeSlot is one cell of the day grid. Slots are value objects: they carry
// no identity beyond their time and are regenerated wholesale whenever the
// date, business hours, or slot granularity change.
type TimeSlot struct {
	Time   string `json:"time"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

// ParseClock converts an "HH:MM" string to minutes from midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes from midnight to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Interval is an "HH:MM" open interval within one day. All interval
// containment in this package is half-open: start <= t < end.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayHours is the configured opening for one weekday. A day may have several
// disjoint intervals (morning and afternoon sessions); the gap between them
// still renders as grid slots but classifies as outside business hours.
type DayHours struct {
	IsOpen    bool       `json:"is_open"`
	Intervals []Interval `json:"intervals,omitempty"`
}

// BusinessHours holds the clinic's opening configuration keyed by weekday.
type BusinessHours map[time.Weekday]DayHours

// BreakTime is a single reserved interval per weekday, distinct from gaps
// between business-hour sessions.
type BreakTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BreakTimes is keyed by weekday.
type BreakTimes map[time.Weekday]BreakTime

// Holidays is the set of weekdays the clinic is closed. Whole-day granularity
// only; there is no per-date holiday calendar in this core.
type Holidays map[time.Weekday]bool

// AppointmentStatus tracks an appointment through the clinic workflow.
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusLate        AppointmentStatus = "late"
	StatusArrived     AppointmentStatus = "arrived"
	StatusInTreatment AppointmentStatus = "in_treatment"
	StatusBilling     AppointmentStatus = "billing"
	StatusDone        AppointmentStatus = "done"
	StatusCancelled   AppointmentStatus = "cancelled"
)

var validStatuses = map[AppointmentStatus]bool{
	StatusScheduled: true, StatusLate: true, StatusArrived: true,
	StatusInTreatment: true, StatusBilling: true, StatusDone: true,
	StatusCancelled: true,
}

// MaxAssignments caps how many staff members and treatment menus can be
// attached to one appointment.
const MaxAssignments = 3

// Appointment is the entity under scheduling. Start and End are "HH:MM",
// same-day only, and must both land on generated grid slots.
type Appointment struct {
	ID        uuid.UUID                  `db:"id" json:"id"`
	ClinicID  uuid.UUID                  `db:"clinic_id" json:"clinic_id"`
	PatientID uuid.UUID                  `db:"patient_id" json:"patient_id"`
	Date      string                     `db:"appointment_date" json:"date"` // "2006-01-02"
	Start     string                     `db:"start_time" json:"start_time"`
	End       string                     `db:"end_time" json:"end_time"`
	UnitID    *uuid.UUID                 `db:"unit_id" json:"unit_id,omitempty"`
	Staff     [MaxAssignments]*uuid.UUID `json:"staff_ids"`
	Menus     [MaxAssignments]*uuid.UUID `json:"menu_ids"`
	Status    AppointmentStatus          `db:"status" json:"status"`
	Memo      string                     `db:"memo" json:"memo,omitempty"`
	CreatedBy *uuid.UUID                 `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time                  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time                  `db:"updated_at" json:"updated_at"`
}

// Duration returns the appointment length in minutes, or 0 when the times do
// not parse.
func (a *Appointment) Duration() int {
	s, err1 := ParseClock(a.Start)
	e, err2 := ParseClock(a.End)
	if err1 != nil || err2 != nil {
		return 0
	}
	return e - s
}

// Validate checks the invariants that hold for every stored appointment.
func (a *Appointment) Validate() error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	s, err := ParseClock(a.Start)
	if err != nil {
		return err
	}
	e, err := ParseClock(a.End)
	if err != nil {
		return err
	}
	if s >= e {
		return fmt.Errorf("start_time %s must be before end_time %s", a.Start, a.End)
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("invalid appointment status: %s", a.Status)
	}
	return nil
}

// WorkingStaff is one grid column: a staff member on shift for the day.
// Column index is positional, not a stored identifier.
type WorkingStaff struct {
	StaffID  uuid.UUID `json:"staff_id"`
	Name     string    `json:"name"`
	Position string    `json:"position"`
}

// positionRank orders grid columns: physicians first, then hygienists, then
// assistants, then everyone else.
var positionRank = map[string]int{
	"physician": 0,
	"hygienist": 1,
	"assistant": 2,
}

func rankOf(position string) int {
	if r, ok := positionRank[position]; ok {
		return r
	}
	return 3
}

// SortRoster orders working staff by position precedence, then by name.
func SortRoster(roster []WorkingStaff) {
	sort.SliceStable(roster, func(i, j int) bool {
		ri, rj := rankOf(roster[i].Position), rankOf(roster[j].Position)
		if ri != rj {
			return ri < rj
		}
		return roster[i].Name < roster[j].Name
	})
}
