package schedule

import "github.com/google/uuid"

// ConflictScope controls which appointments compete for the same timeline.
// A single shared clinic timeline is the default policy; per-staff and
// per-unit scopes are available for clinics that run parallel chairs.
type ConflictScope string

const (
	ScopeClinic ConflictScope = "clinic"
	ScopeStaff  ConflictScope = "staff"
	ScopeUnit   ConflictScope = "unit"
)

// Candidate is a proposed appointment interval to test for conflicts.
// Staff and Unit narrow the comparison set under the matching scopes.
type Candidate struct {
	Start  string // "HH:MM"
	End    string
	Staff  [MaxAssignments]*uuid.UUID
	UnitID *uuid.UUID
}

// overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// share at least one instant. Back-to-back intervals never overlap.
func overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

func sharesStaff(a, b [MaxAssignments]*uuid.UUID) bool {
	for _, x := range a {
		if x == nil {
			continue
		}
		for _, y := range b {
			if y != nil && *x == *y {
				return true
			}
		}
	}
	return false
}

// FindConflict returns the first appointment of the day that the candidate
// interval overlaps, or nil. The appointment identified by excludeID (the one
// being moved or resized) never conflicts with itself. Cancelled appointments
// do not occupy the timeline.
func FindConflict(cand Candidate, excludeID uuid.UUID, appts []*Appointment, scope ConflictScope) *Appointment {
	cs, err1 := ParseClock(cand.Start)
	ce, err2 := ParseClock(cand.End)
	if err1 != nil || err2 != nil {
		return nil
	}
	for _, other := range appts {
		if other.ID == excludeID || other.Status == StatusCancelled {
			continue
		}
		switch scope {
		case ScopeStaff:
			if !sharesStaff(cand.Staff, other.Staff) {
				continue
			}
		case ScopeUnit:
			if cand.UnitID == nil || other.UnitID == nil || *cand.UnitID != *other.UnitID {
				continue
			}
		}
		os, err1 := ParseClock(other.Start)
		oe, err2 := ParseClock(other.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if overlaps(cs, ce, os, oe) {
			return other
		}
	}
	return nil
}
