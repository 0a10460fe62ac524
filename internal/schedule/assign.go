package schedule

import (
	"sort"

	"cloud.google.com/go/civil"
)

// Slot is one bookable start time together with the appointments routed to it.
type Slot struct {
	StartMinutes int
	Capacity     int
	Occupants    []Appointment
}

// Occupancy counts every occupant, cancelled ones included. This is the
// number capacity is measured against.
func (s Slot) Occupancy() int {
	return len(s.Occupants)
}

// ActiveOccupancy counts occupants that are not cancelled.
func (s Slot) ActiveOccupancy() int {
	n := 0
	for _, a := range s.Occupants {
		if a.Status != StatusCancelled {
			n++
		}
	}
	return n
}

func (s Slot) Remaining() int {
	if r := s.Capacity - s.Occupancy(); r > 0 {
		return r
	}
	return 0
}

func (s Slot) IsFull() bool {
	return s.Occupancy() >= s.Capacity
}

// Overfull is true when more appointments hold the slot than the policy
// allows, which happens when capacity is lowered after booking.
func (s Slot) Overfull() bool {
	return s.Occupancy() > s.Capacity
}

// Board is the slot view of one day.
type Board struct {
	Date        civil.Date
	Policy      TimePolicy
	Closed      bool
	Slots       []Slot
	NonStandard []Appointment
}

// Slot returns the bucket a time of day falls in, if it is a standard slot.
func (b Board) Slot(timeOfDay int) (Slot, bool) {
	if b.Closed {
		return Slot{}, false
	}
	start, ok := MatchSlot(timeOfDay, b.Policy)
	if !ok {
		return Slot{}, false
	}
	idx := (start - b.Policy.DayStartMinutes) / b.Policy.IntervalMinutes
	if idx < 0 || idx >= len(b.Slots) {
		return Slot{}, false
	}
	return b.Slots[idx], true
}

// CanBook reports whether a new booking at timeOfDay fits: the time must be a
// standard slot with fewer occupants than its capacity.
func (b Board) CanBook(timeOfDay int) bool {
	slot, ok := b.Slot(timeOfDay)
	return ok && !slot.IsFull()
}

// CanBookIgnoringCancelled is CanBook for shops that release a cancelled
// booking's place to new customers.
func (b Board) CanBookIgnoringCancelled(timeOfDay int) bool {
	slot, ok := b.Slot(timeOfDay)
	return ok && slot.ActiveOccupancy() < slot.Capacity
}

// Total is the number of appointments on the board across all buckets.
func (b Board) Total() int {
	n := len(b.NonStandard)
	for _, s := range b.Slots {
		n += len(s.Occupants)
	}
	return n
}

func (b Board) OverfullSlots() []Slot {
	var out []Slot
	for _, s := range b.Slots {
		if s.Overfull() {
			out = append(out, s)
		}
	}
	return out
}

// Assign routes a day's appointments into the policy's slots. Appointments that
// do not line up with a slot go to NonStandard. Capacity is not enforced here:
// an overfull slot keeps every occupant.
func Assign(appts []Appointment, p TimePolicy) Board {
	starts := GenerateSlots(p)
	b := Board{
		Policy: p,
		Slots:  make([]Slot, len(starts)),
	}
	for i, start := range starts {
		b.Slots[i] = Slot{StartMinutes: start, Capacity: p.CapacityPerSlot}
	}

	for _, a := range sortedByID(appts) {
		start, ok := MatchSlot(a.TimeOfDay, p)
		if !ok {
			b.NonStandard = append(b.NonStandard, a)
			continue
		}
		idx := (start - p.DayStartMinutes) / p.IntervalMinutes
		b.Slots[idx].Occupants = append(b.Slots[idx].Occupants, a)
	}
	return b
}

// AssignDay filters appts to d and assigns them.
func AssignDay(appts []Appointment, d civil.Date, p TimePolicy) Board {
	b := Assign(OnDate(appts, d), p)
	b.Date = d
	return b
}

// ClosedBoard is the board of a day the shop does not open: no slots, every
// appointment on that date is non-standard.
func ClosedBoard(appts []Appointment, d civil.Date, p TimePolicy) Board {
	return Board{
		Date:        d,
		Policy:      p,
		Closed:      true,
		NonStandard: sortedByID(OnDate(appts, d)),
	}
}

func sortedByID(appts []Appointment) []Appointment {
	out := make([]Appointment, len(appts))
	copy(out, appts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
