package schedule

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestWeeklyHours_PolicyFor(t *testing.T) {
	wh := DefaultWeeklyHours()
	base := DefaultPolicy()
	base.IntervalMinutes = 30
	base.CapacityPerSlot = 3

	saturday := civil.Date{Year: 2026, Month: time.March, Day: 14}
	p, open := wh.PolicyFor(base, saturday)
	if !open {
		t.Fatal("expected Saturday to be open")
	}
	if p.DayStartMinutes != 540 || p.DayEndMinutes != 900 {
		t.Fatalf("expected 09:00-15:00 on Saturday, got %s-%s", FormatClock(p.DayStartMinutes), FormatClock(p.DayEndMinutes))
	}
	if p.IntervalMinutes != 30 || p.CapacityPerSlot != 3 {
		t.Fatalf("expected interval and capacity from base policy, got %+v", p)
	}

	sunday := civil.Date{Year: 2026, Month: time.March, Day: 15}
	if _, open := wh.PolicyFor(base, sunday); open {
		t.Fatal("expected Sunday to be closed")
	}
}

func TestWeeklyHours_EmptyUsesBase(t *testing.T) {
	var wh WeeklyHours
	base := DefaultPolicy()

	p, open := wh.PolicyFor(base, civil.Date{Year: 2026, Month: time.March, Day: 15})
	if !open || p != base {
		t.Fatalf("expected base policy, got %+v open=%v", p, open)
	}
	if err := wh.Validate(); err != nil {
		t.Fatalf("empty weekly hours should validate: %v", err)
	}
}

func TestWeeklyHours_Validate(t *testing.T) {
	wh := DefaultWeeklyHours()
	if err := wh.Validate(); err != nil {
		t.Fatalf("default hours should be valid: %v", err)
	}

	wh[time.Monday].EndMinutes = wh[time.Monday].StartMinutes
	if err := wh.Validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}

	if err := (WeeklyHours{{Weekday: time.Sunday}}).Validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for short week, got %v", err)
	}
}

func TestBoardFor_ClosedDayKeepsAppointments(t *testing.T) {
	sunday := civil.Date{Year: 2026, Month: time.March, Day: 15}
	a := appt(1, "10:00", StatusPending)
	a.Date = sunday

	b := BoardFor([]Appointment{a}, sunday, DefaultPolicy(), DefaultWeeklyHours())

	if !b.Closed || len(b.Slots) != 0 {
		t.Fatalf("expected closed board without slots, got %+v", b)
	}
	if len(b.NonStandard) != 1 || b.Total() != 1 {
		t.Fatalf("expected the appointment in non-standard, got %+v", b.NonStandard)
	}
	if _, ok := b.Slot(600); ok {
		t.Fatal("closed board should not expose slots")
	}
}
