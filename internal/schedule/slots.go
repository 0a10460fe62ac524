package schedule

// GenerateSlots returns the slot start times of a day, in minutes since midnight.
// Slots are emitted while the start is before the day end, so the last slot may
// run past closing time.
func GenerateSlots(p TimePolicy) []int {
	if p.IntervalMinutes <= 0 || p.DayStartMinutes >= p.DayEndMinutes {
		return nil
	}

	slots := make([]int, 0, (p.DayEndMinutes-p.DayStartMinutes+p.IntervalMinutes-1)/p.IntervalMinutes)
	for t := p.DayStartMinutes; t < p.DayEndMinutes; t += p.IntervalMinutes {
		slots = append(slots, t)
	}
	return slots
}

// MatchSlot reports the slot an appointment time belongs to. Times that are not
// on the policy's grid, or fall outside the day, are non-standard.
func MatchSlot(timeOfDay int, p TimePolicy) (int, bool) {
	if p.IntervalMinutes <= 0 {
		return 0, false
	}
	if timeOfDay < p.DayStartMinutes || timeOfDay >= p.DayEndMinutes {
		return 0, false
	}
	if (timeOfDay-p.DayStartMinutes)%p.IntervalMinutes != 0 {
		return 0, false
	}
	return timeOfDay, true
}
