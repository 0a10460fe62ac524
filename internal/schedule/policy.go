package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinutesPerDay = 24 * 60

	MinCapacity = 1
	MaxCapacity = 10

	DefaultIntervalMinutes = 60
	DefaultCapacity        = 1
	DefaultDayStart        = 9 * 60
	DefaultDayEnd          = 18 * 60
)

// IntervalOptions are the slot widths offered by the settings screen.
var IntervalOptions = []int{15, 30, 45, 60, 90, 120, 180}

var (
	ErrInvalidPolicy = errors.New("invalid time policy")
	ErrInvalidClock  = errors.New("invalid clock time, expected HH:MM")
)

// TimePolicy is the shop's booking rhythm for a single day.
type TimePolicy struct {
	DayStartMinutes int `json:"day_start_minutes"`
	DayEndMinutes   int `json:"day_end_minutes"`
	IntervalMinutes int `json:"interval_minutes"`
	CapacityPerSlot int `json:"capacity_per_slot"`
}

func DefaultPolicy() TimePolicy {
	return TimePolicy{
		DayStartMinutes: DefaultDayStart,
		DayEndMinutes:   DefaultDayEnd,
		IntervalMinutes: DefaultIntervalMinutes,
		CapacityPerSlot: DefaultCapacity,
	}
}

// NewTimePolicy builds a policy and rejects it if it is not usable.
func NewTimePolicy(dayStart, dayEnd, interval, capacity int) (TimePolicy, error) {
	p := TimePolicy{
		DayStartMinutes: dayStart,
		DayEndMinutes:   dayEnd,
		IntervalMinutes: interval,
		CapacityPerSlot: capacity,
	}
	if err := p.Validate(); err != nil {
		return TimePolicy{}, err
	}
	return p, nil
}

func (p TimePolicy) Validate() error {
	if p.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidPolicy, p.IntervalMinutes)
	}
	if p.DayStartMinutes < 0 || p.DayEndMinutes > MinutesPerDay {
		return fmt.Errorf("%w: day bounds %d-%d outside 0-%d", ErrInvalidPolicy, p.DayStartMinutes, p.DayEndMinutes, MinutesPerDay)
	}
	if p.DayStartMinutes >= p.DayEndMinutes {
		return fmt.Errorf("%w: day start %s must be before day end %s", ErrInvalidPolicy,
			FormatClock(p.DayStartMinutes), FormatClock(p.DayEndMinutes))
	}
	if p.CapacityPerSlot < MinCapacity || p.CapacityPerSlot > MaxCapacity {
		return fmt.Errorf("%w: capacity must be within %d-%d, got %d", ErrInvalidPolicy, MinCapacity, MaxCapacity, p.CapacityPerSlot)
	}
	return nil
}

// WithBounds returns a copy of p using another day window.
func (p TimePolicy) WithBounds(dayStart, dayEnd int) TimePolicy {
	p.DayStartMinutes = dayStart
	p.DayEndMinutes = dayEnd
	return p
}

// ClampCapacity bounds a capacity to what the settings form allows.
func ClampCapacity(c int) int {
	if c < MinCapacity {
		return MinCapacity
	}
	if c > MaxCapacity {
		return MaxCapacity
	}
	return c
}

// ParseClock converts "HH:MM" to minutes since midnight. "24:00" is accepted as end of day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
