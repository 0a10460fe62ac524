package schedule

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

type DayStats struct {
	Date           civil.Date
	Pending        int
	InProgress     int
	Completed      int
	Cancelled      int
	Total          int
	CompletionRate int // percent, rounded half up
}

func DailyStats(appts []Appointment, d civil.Date) DayStats {
	st := DayStats{Date: d}
	for _, a := range appts {
		if a.Date != d {
			continue
		}
		st.Total++
		switch a.Status {
		case StatusPending:
			st.Pending++
		case StatusInProgress:
			st.InProgress++
		case StatusCompleted:
			st.Completed++
		case StatusCancelled:
			st.Cancelled++
		}
	}
	st.CompletionRate = completionRate(st.Completed, st.Total)
	return st
}

func completionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*200 + total) / (2 * total)
}

// CalendarCell is one day of a month view.
type CalendarCell struct {
	Date         civil.Date
	InMonth      bool
	Appointments []Appointment
}

// MonthGrid lays out whole weeks, Sunday first, covering the given month.
// Days from the neighbouring months are included with InMonth unset.
func MonthGrid(appts []Appointment, year int, month time.Month) []CalendarCell {
	first := civil.Date{Year: year, Month: month, Day: 1}
	last := civil.DateOf(first.In(time.UTC).AddDate(0, 1, -1))

	start := first.AddDays(-int(weekday(first)))
	end := last.AddDays(int(time.Saturday - weekday(last)))

	byDate := make(map[civil.Date][]Appointment)
	for _, a := range appts {
		if a.Date.Before(start) || a.Date.After(end) {
			continue
		}
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	cells := make([]CalendarCell, 0, end.DaysSince(start)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		day := byDate[d]
		sort.SliceStable(day, func(i, j int) bool {
			if day[i].TimeOfDay != day[j].TimeOfDay {
				return day[i].TimeOfDay < day[j].TimeOfDay
			}
			return day[i].ID < day[j].ID
		})
		cells = append(cells, CalendarCell{
			Date:         d,
			InMonth:      d.Month == month && d.Year == year,
			Appointments: day,
		})
	}
	return cells
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}
