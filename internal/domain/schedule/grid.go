package schedule

import "time"

// DefaultSlotMinutes is the fallback granularity when the clinic has none
// configured or the configured value is non-positive.
const DefaultSlotMinutes = 15

// Default visible range used when a day is closed or has no configured
// intervals, so the grid still renders.
const (
	defaultOpenHour  = 9
	defaultCloseHour = 18
)

// VisibleRange returns the grid's rendered hour span for a weekday:
// the hour of the first configured interval through the hour that covers the
// end of the last one. Closed or unconfigured days fall back to 09:00-18:00.
func VisibleRange(hours BusinessHours, day time.Weekday) (startHour, endHour int) {
	dh, ok := hours[day]
	if !ok || !dh.IsOpen || len(dh.Intervals) == 0 {
		return defaultOpenHour, defaultCloseHour
	}
	first, err := ParseClock(dh.Intervals[0].Start)
	if err != nil {
		return defaultOpenHour, defaultCloseHour
	}
	last, err := ParseClock(dh.Intervals[len(dh.Intervals)-1].End)
	if err != nil {
		return defaultOpenHour, defaultCloseHour
	}
	startHour = first / 60
	endHour = (last + 59) / 60
	if endHour <= startHour {
		return defaultOpenHour, defaultCloseHour
	}
	return startHour, endHour
}

// BuildDayGrid derives the ordered slot list for one day. Slots step every
// slotMinutes from the visible start hour; the final hour emits only its :00
// slot. The grid is recomputed from scratch on any input change rather than
// patched incrementally (at most ~100 slots per day).
func BuildDayGrid(date time.Time, hours BusinessHours, slotMinutes int) []TimeSlot {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	startHour, endHour := VisibleRange(hours, date.Weekday())

	var slots []TimeSlot
	for hour := startHour; hour <= endHour; hour++ {
		for minute := 0; minute < 60; minute += slotMinutes {
			if hour == endHour && minute > 0 {
				break
			}
			slots = append(slots, TimeSlot{
				Time:   FormatClock(hour*60 + minute),
				Hour:   hour,
				Minute: minute,
			})
		}
	}
	return slots
}
