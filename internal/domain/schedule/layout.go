package schedule

// Placement positions one appointment block on the grid in slot units; the
// host scales these to pixels. Column is the index into the day's roster.
type Placement struct {
	AppointmentID string `json:"appointment_id"`
	Top           int    `json:"top"`    // slots from the visible start
	Height        int    `json:"height"` // slots
	Column        int    `json:"column"`
}

// PlacementBlocks computes render positions for the day's appointments.
// Column assignment follows the primary staff member; appointments whose
// primary staff is not on the roster are not rendered. Cancelled
// appointments are skipped.
func PlacementBlocks(appts []*Appointment, roster []WorkingStaff, visibleStartMinutes, slotMinutes int) []Placement {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	column := make(map[string]int, len(roster))
	for i, ws := range roster {
		column[ws.StaffID.String()] = i
	}

	var blocks []Placement
	for _, a := range appts {
		if a.Status == StatusCancelled || a.Staff[0] == nil {
			continue
		}
		col, ok := column[a.Staff[0].String()]
		if !ok {
			continue
		}
		start, err1 := ParseClock(a.Start)
		end, err2 := ParseClock(a.End)
		if err1 != nil || err2 != nil || end <= start {
			continue
		}
		blocks = append(blocks, Placement{
			AppointmentID: a.ID.String(),
			Top:           (start - visibleStartMinutes) / slotMinutes,
			Height:        (end - start) / slotMinutes,
			Column:        col,
		})
	}
	return blocks
}
