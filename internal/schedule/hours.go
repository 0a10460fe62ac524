package schedule

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DayHours is the opening window of one weekday.
type DayHours struct {
	Weekday      time.Weekday
	Open         bool
	StartMinutes int
	EndMinutes   int
}

// WeeklyHours holds per-weekday opening windows indexed by time.Weekday.
// An empty WeeklyHours means every day follows the base policy bounds.
type WeeklyHours []DayHours

// DefaultWeeklyHours is Monday to Friday 09:00-18:00, Saturday 09:00-15:00, Sunday closed.
func DefaultWeeklyHours() WeeklyHours {
	wh := make(WeeklyHours, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		wh[wd] = DayHours{Weekday: wd, Open: true, StartMinutes: DefaultDayStart, EndMinutes: DefaultDayEnd}
	}
	wh[time.Saturday].EndMinutes = 15 * 60
	wh[time.Sunday].Open = false
	return wh
}

func (wh WeeklyHours) Validate() error {
	if len(wh) == 0 {
		return nil
	}
	if len(wh) != 7 {
		return fmt.Errorf("%w: weekly hours need 7 days, got %d", ErrInvalidPolicy, len(wh))
	}
	for i, d := range wh {
		if d.Weekday != time.Weekday(i) {
			return fmt.Errorf("%w: weekly hours out of order at %d", ErrInvalidPolicy, i)
		}
		if !d.Open {
			continue
		}
		if d.StartMinutes < 0 || d.EndMinutes > MinutesPerDay || d.StartMinutes >= d.EndMinutes {
			return fmt.Errorf("%w: %s hours %s-%s", ErrInvalidPolicy, d.Weekday,
				FormatClock(d.StartMinutes), FormatClock(d.EndMinutes))
		}
	}
	return nil
}

// PolicyFor applies the weekday's window to base. The second result is false
// when the shop is closed that day.
func (wh WeeklyHours) PolicyFor(base TimePolicy, d civil.Date) (TimePolicy, bool) {
	if len(wh) != 7 {
		return base, true
	}
	day := wh[weekday(d)]
	if !day.Open {
		return base, false
	}
	return base.WithBounds(day.StartMinutes, day.EndMinutes), true
}

// BoardFor builds the slot board of d under base and the weekly hours.
func BoardFor(appts []Appointment, d civil.Date, base TimePolicy, wh WeeklyHours) Board {
	p, open := wh.PolicyFor(base, d)
	if !open {
		return ClosedBoard(appts, d, p)
	}
	return AssignDay(appts, d, p)
}
