package schedule

import "time"

// Classifier answers whether an instant of the day falls outside business
// hours, inside a break window, or on a holiday. All three are advisory:
// placement into such slots is allowed after explicit user confirmation.
type Classifier struct {
	Hours    BusinessHours
	Breaks   BreakTimes
	Holidays Holidays
}

// OutsideBusinessHours reports whether t ("HH:MM") falls outside every
// configured open interval for the weekday. A time exactly on an interval's
// end boundary is outside.
func (c Classifier) OutsideBusinessHours(day time.Weekday, t string) bool {
	dh, ok := c.Hours[day]
	if !ok || !dh.IsOpen || len(dh.Intervals) == 0 {
		return true
	}
	tm, err := ParseClock(t)
	if err != nil {
		return true
	}
	for _, iv := range dh.Intervals {
		start, err1 := ParseClock(iv.Start)
		end, err2 := ParseClock(iv.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if tm >= start && tm < end {
			return false
		}
	}
	return true
}

// InBreak reports whether t falls inside the weekday's break window.
func (c Classifier) InBreak(day time.Weekday, t string) bool {
	bt, ok := c.Breaks[day]
	if !ok || bt.Start == "" || bt.End == "" {
		return false
	}
	tm, err := ParseClock(t)
	if err != nil {
		return false
	}
	start, err1 := ParseClock(bt.Start)
	end, err2 := ParseClock(bt.End)
	if err1 != nil || err2 != nil {
		return false
	}
	return tm >= start && tm < end
}

// IsHoliday reports whether the weekday is in the clinic's holiday set.
func (c Classifier) IsHoliday(day time.Weekday) bool {
	return c.Holidays[day]
}

// BreakOverlaps reports whether the half-open candidate interval
// [start, end) intersects the weekday's break window.
func (c Classifier) BreakOverlaps(day time.Weekday, start, end string) bool {
	bt, ok := c.Breaks[day]
	if !ok || bt.Start == "" || bt.End == "" {
		return false
	}
	s, err1 := ParseClock(start)
	e, err2 := ParseClock(end)
	bs, err3 := ParseClock(bt.Start)
	be, err4 := ParseClock(bt.End)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return s < be && bs < e
}
