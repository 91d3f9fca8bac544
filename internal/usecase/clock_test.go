package usecase

import (
	"testing"
	"time"
)

func TestDaysBetweenUsesCalendarDays(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	late := time.Date(2024, 3, 9, 23, 30, 0, 0, loc)
	early := time.Date(2024, 3, 10, 0, 15, 0, 0, loc)
	if got := daysBetween(late, early, loc); got != 1 {
		t.Fatalf("expected 1 day across midnight, got %d", got)
	}
	// DST change on 2024-03-10 makes the day 23 hours long.
	if got := daysBetween(early, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), loc); got != 1 {
		t.Fatalf("expected 1 day across DST, got %d", got)
	}
	if got := daysBetween(early, late, loc); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}

func TestClockToday(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	loc := time.FixedZone("EST", -5*3600)
	c := NewFixedClock(loc, func() time.Time { return fixed })
	today := c.Today()
	if today.Day() != 30 || today.Month() != time.April || today.Hour() != 0 {
		t.Fatalf("unexpected today %s", today)
	}
	if c.Location() != loc {
		t.Fatalf("unexpected location")
	}
	if NewClock(nil).Location() != time.UTC {
		t.Fatalf("expected UTC for nil location")
	}
}
