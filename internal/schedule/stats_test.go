package schedule

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestDailyStats(t *testing.T) {
	other := appt(10, "10:00", StatusCompleted)
	other.Date = testDay.AddDays(-1)

	appts := []Appointment{
		appt(1, "09:00", StatusCompleted),
		appt(2, "10:00", StatusPending),
		appt(3, "11:00", StatusInProgress),
		appt(4, "12:00", StatusCancelled),
		appt(5, "13:00", StatusCompleted),
		appt(6, "14:00", StatusPending),
		other,
	}

	st := DailyStats(appts, testDay)

	if st.Total != 6 {
		t.Fatalf("expected total 6, got %d", st.Total)
	}
	if st.Pending != 2 || st.InProgress != 1 || st.Completed != 2 || st.Cancelled != 1 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.Pending+st.InProgress+st.Completed+st.Cancelled != st.Total {
		t.Fatalf("counts do not sum to total: %+v", st)
	}
	// 2/6 = 33.3%
	if st.CompletionRate != 33 {
		t.Fatalf("expected completion rate 33, got %d", st.CompletionRate)
	}
}

func TestDailyStats_Empty(t *testing.T) {
	st := DailyStats(nil, testDay)
	if st.Total != 0 || st.CompletionRate != 0 {
		t.Fatalf("expected zero stats, got %+v", st)
	}
}

func TestCompletionRate_RoundsHalfUp(t *testing.T) {
	tests := []struct{ completed, total, want int }{
		{1, 8, 13},  // 12.5
		{1, 3, 33},  // 33.3
		{2, 3, 67},  // 66.7
		{1, 200, 1}, // 0.5
		{0, 5, 0},
		{5, 5, 100},
	}
	for _, tc := range tests {
		if got := completionRate(tc.completed, tc.total); got != tc.want {
			t.Fatalf("completionRate(%d, %d) = %d, want %d", tc.completed, tc.total, got, tc.want)
		}
	}
}

func TestMonthGrid_PadsToWholeWeeks(t *testing.T) {
	// March 2026 starts on a Sunday and ends on a Tuesday.
	cells := MonthGrid(nil, 2026, time.March)

	if len(cells)%7 != 0 {
		t.Fatalf("expected whole weeks, got %d cells", len(cells))
	}
	if len(cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(cells))
	}
	if cells[0].Date != (civil.Date{Year: 2026, Month: time.March, Day: 1}) {
		t.Fatalf("expected grid to start on March 1, got %s", cells[0].Date)
	}
	lastCell := cells[len(cells)-1]
	if lastCell.Date != (civil.Date{Year: 2026, Month: time.April, Day: 4}) || lastCell.InMonth {
		t.Fatalf("expected trailing April 4 outside month, got %+v", lastCell)
	}
}

func TestMonthGrid_Properties(t *testing.T) {
	for year := 2024; year <= 2027; year++ {
		for month := time.January; month <= time.December; month++ {
			cells := MonthGrid(nil, year, month)
			if len(cells)%7 != 0 {
				t.Fatalf("%d-%02d: %d cells", year, month, len(cells))
			}
			if weekday(cells[0].Date) != time.Sunday || weekday(cells[len(cells)-1].Date) != time.Saturday {
				t.Fatalf("%d-%02d: grid not Sunday..Saturday", year, month)
			}

			first := civil.Date{Year: year, Month: month, Day: 1}
			last := civil.DateOf(first.In(time.UTC).AddDate(0, 1, -1))
			var sawFirst, sawLast bool
			for i, c := range cells {
				if i > 0 && c.Date.DaysSince(cells[i-1].Date) != 1 {
					t.Fatalf("%d-%02d: cells not consecutive at %d", year, month, i)
				}
				if c.InMonth != (c.Date.Month == month) {
					t.Fatalf("%d-%02d: wrong InMonth flag on %s", year, month, c.Date)
				}
				sawFirst = sawFirst || c.Date == first
				sawLast = sawLast || c.Date == last
			}
			if !sawFirst || !sawLast {
				t.Fatalf("%d-%02d: month bounds missing from grid", year, month)
			}
		}
	}
}

func TestMonthGrid_GroupsAndSortsByTime(t *testing.T) {
	leading := appt(20, "09:00", StatusPending)
	leading.Date = civil.Date{Year: 2026, Month: time.February, Day: 24}

	appts := []Appointment{
		appt(3, "14:00", StatusPending),
		appt(2, "09:30", StatusPending),
		appt(1, "14:00", StatusCompleted),
		leading,
	}

	cells := MonthGrid(appts, 2026, time.March)

	var day *CalendarCell
	for i := range cells {
		if cells[i].Date == testDay {
			day = &cells[i]
		}
	}
	if day == nil {
		t.Fatal("test day missing from grid")
	}
	if len(day.Appointments) != 3 {
		t.Fatalf("expected 3 appointments on %s, got %d", testDay, len(day.Appointments))
	}
	gotIDs := []int64{day.Appointments[0].ID, day.Appointments[1].ID, day.Appointments[2].ID}
	if gotIDs[0] != 2 || gotIDs[1] != 1 || gotIDs[2] != 3 {
		t.Fatalf("expected order [2 1 3], got %v", gotIDs)
	}

	// February 24 is before the grid start (March 1 is a Sunday).
	for _, c := range cells {
		for _, a := range c.Appointments {
			if a.ID == 20 {
				t.Fatal("appointment outside the grid was included")
			}
		}
	}
}
