package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSlotAligned rejects candidate times that do not land on a
	// generated grid slot. This guards commits against rounding drift.
	ErrNotSlotAligned = errors.New("time is not aligned to a grid slot")

	// ErrNeedsConfirmation is returned when a placement overlaps a break
	// window and the caller has not confirmed it.
	ErrNeedsConfirmation = errors.New("placement overlaps a break window and requires confirmation")

	// ErrGestureActive is returned when a new gesture begins while another
	// is still in progress.
	ErrGestureActive = errors.New("another gesture is already in progress")

	// ErrStaleView is returned by Load and refresh when their fetched
	// snapshot has been superseded by a newer one and was discarded.
	ErrStaleView = errors.New("view is stale")
)

// ConflictError reports the appointment that blocks a candidate interval.
type ConflictError struct {
	Other *Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicts with existing appointment %s–%s", e.Other.Start, e.Other.End)
}

// IsConflict reports whether err is a scheduling conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
