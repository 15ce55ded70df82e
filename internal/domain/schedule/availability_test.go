package schedule

import (
	"testing"
	"time"
)

func mondayClassifier() Classifier {
	return Classifier{
		Hours: weekHours(
			Interval{Start: "09:00", End: "12:00"},
			Interval{Start: "13:00", End: "18:00"},
		),
		Breaks:   BreakTimes{time.Monday: {Start: "12:00", End: "13:00"}},
		Holidays: Holidays{time.Sunday: true},
	}
}

func TestOutsideBusinessHours(t *testing.T) {
	c := mondayClassifier()
	cases := []struct {
		time    string
		outside bool
	}{
		{"08:00", true},
		{"09:00", false}, // interval start is inside
		{"11:45", false},
		{"12:00", true}, // session gap
		{"12:45", true},
		{"13:00", false},
		{"17:45", false},
		{"18:00", true}, // interval end boundary is outside
	}
	for _, tc := range cases {
		if got := c.OutsideBusinessHours(time.Monday, tc.time); got != tc.outside {
			t.Errorf("OutsideBusinessHours(%s) = %v, want %v", tc.time, got, tc.outside)
		}
	}
}

func TestOutsideBusinessHoursClosedDay(t *testing.T) {
	c := mondayClassifier()
	if !c.OutsideBusinessHours(time.Tuesday, "10:00") {
		t.Error("unconfigured day must be outside business hours")
	}
}

func TestInBreak(t *testing.T) {
	c := mondayClassifier()
	cases := []struct {
		time string
		want bool
	}{
		{"11:45", false},
		{"12:00", true}, // break start is inside
		{"12:45", true},
		{"13:00", false}, // break end is outside
	}
	for _, tc := range cases {
		if got := c.InBreak(time.Monday, tc.time); got != tc.want {
			t.Errorf("InBreak(%s) = %v, want %v", tc.time, got, tc.want)
		}
	}
	if c.InBreak(time.Tuesday, "12:30") {
		t.Error("day without a break window must not classify as break")
	}
}

func TestIsHoliday(t *testing.T) {
	c := mondayClassifier()
	if !c.IsHoliday(time.Sunday) {
		t.Error("Sunday should be a holiday")
	}
	if c.IsHoliday(time.Monday) {
		t.Error("Monday should not be a holiday")
	}
}

func TestBreakOverlaps(t *testing.T) {
	c := mondayClassifier()
	cases := []struct {
		start, end string
		want       bool
	}{
		{"11:30", "12:15", true},
		{"12:15", "12:45", true},
		{"11:00", "12:00", false}, // ends exactly at break start
		{"13:00", "14:00", false}, // starts exactly at break end
		{"11:30", "13:30", true},  // spans the whole break
	}
	for _, tc := range cases {
		if got := c.BreakOverlaps(time.Monday, tc.start, tc.end); got != tc.want {
			t.Errorf("BreakOverlaps(%s-%s) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
	}
}
