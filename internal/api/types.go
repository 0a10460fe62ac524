package api

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hackgods/shop-slot-scheduling/internal/appointment"
	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

type AppointmentRequest struct {
	CustomerName       string `json:"customer_name"`
	VehiclePlate       string `json:"vehicle_plate"`
	Phone              string `json:"phone"`
	ServiceDescription string `json:"service_description"`
	Date               string `json:"date"`
	Time               string `json:"time"`
	Note               string `json:"note,omitempty"`
}

func (req AppointmentRequest) toInput() (appointment.BookingInput, error) {
	date, err := civil.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return appointment.BookingInput{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	tod, err := schedule.ParseClock(req.Time)
	if err != nil {
		return appointment.BookingInput{}, err
	}

	return appointment.BookingInput{
		CustomerName:       req.CustomerName,
		VehiclePlate:       req.VehiclePlate,
		Phone:              req.Phone,
		ServiceDescription: req.ServiceDescription,
		Date:               date,
		TimeOfDay:          tod,
		Note:               req.Note,
	}, nil
}

type AppointmentResponse struct {
	ID                 int64     `json:"id"`
	CustomerName       string    `json:"customer_name"`
	VehiclePlate       string    `json:"vehicle_plate"`
	Phone              string    `json:"phone"`
	ServiceDescription string    `json:"service_description"`
	Date               string    `json:"date"`
	Time               string    `json:"time"`
	Status             string    `json:"status"`
	Note               string    `json:"note,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toAppointmentResponse(a schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		CustomerName:       a.CustomerName,
		VehiclePlate:       a.VehiclePlate,
		Phone:              a.Phone,
		ServiceDescription: a.ServiceDescription,
		Date:               a.Date.String(),
		Time:               a.Clock(),
		Status:             string(a.Status),
		Note:               a.Note,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toAppointmentResponses(appts []schedule.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

type SlotResponse struct {
	Time         string                `json:"time"`
	Capacity     int                   `json:"capacity"`
	Occupancy    int                   `json:"occupancy"`
	Active       int                   `json:"active"`
	Remaining    int                   `json:"remaining"`
	Full         bool                  `json:"full"`
	Overfull     bool                  `json:"overfull"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type BoardResponse struct {
	Date        string                `json:"date"`
	Closed      bool                  `json:"closed"`
	Policy      PolicyResponse        `json:"policy"`
	Slots       []SlotResponse        `json:"slots"`
	NonStandard []AppointmentResponse `json:"non_standard"`
	Total       int                   `json:"total"`
}

func toBoardResponse(b schedule.Board) BoardResponse {
	slots := make([]SlotResponse, 0, len(b.Slots))
	for _, s := range b.Slots {
		slots = append(slots, SlotResponse{
			Time:         schedule.FormatClock(s.StartMinutes),
			Capacity:     s.Capacity,
			Occupancy:    s.Occupancy(),
			Active:       s.ActiveOccupancy(),
			Remaining:    s.Remaining(),
			Full:         s.IsFull(),
			Overfull:     s.Overfull(),
			Appointments: toAppointmentResponses(s.Occupants),
		})
	}

	return BoardResponse{
		Date:        b.Date.String(),
		Closed:      b.Closed,
		Policy:      toPolicyResponse(b.Policy),
		Slots:       slots,
		NonStandard: toAppointmentResponses(b.NonStandard),
		Total:       b.Total(),
	}
}

type StatsResponse struct {
	Date           string `json:"date"`
	Pending        int    `json:"pending"`
	InProgress     int    `json:"in_progress"`
	Completed      int    `json:"completed"`
	Cancelled      int    `json:"cancelled"`
	Total          int    `json:"total"`
	CompletionRate int    `json:"completion_rate"`
}

func toStatsResponse(st schedule.DayStats) StatsResponse {
	return StatsResponse{
		Date:           st.Date.String(),
		Pending:        st.Pending,
		InProgress:     st.InProgress,
		Completed:      st.Completed,
		Cancelled:      st.Cancelled,
		Total:          st.Total,
		CompletionRate: st.CompletionRate,
	}
}

type CalendarCellResponse struct {
	Date         string                `json:"date"`
	InMonth      bool                  `json:"in_month"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type CalendarResponse struct {
	Year  int                    `json:"year"`
	Month int                    `json:"month"`
	Cells []CalendarCellResponse `json:"cells"`
}

// PolicyPayload is the settings form representation of a TimePolicy.
type PolicyPayload struct {
	DayStart        string `json:"day_start"`
	DayEnd          string `json:"day_end"`
	IntervalMinutes int    `json:"interval_minutes"`
	CapacityPerSlot int    `json:"capacity_per_slot"`
}

func (p PolicyPayload) toPolicy() (schedule.TimePolicy, error) {
	start, err := schedule.ParseClock(p.DayStart)
	if err != nil {
		return schedule.TimePolicy{}, fmt.Errorf("day_start: %w", err)
	}
	end, err := schedule.ParseClock(p.DayEnd)
	if err != nil {
		return schedule.TimePolicy{}, fmt.Errorf("day_end: %w", err)
	}
	return schedule.TimePolicy{
		DayStartMinutes: start,
		DayEndMinutes:   end,
		IntervalMinutes: p.IntervalMinutes,
		CapacityPerSlot: p.CapacityPerSlot,
	}, nil
}

type PolicyResponse struct {
	PolicyPayload
	Slots []string `json:"slots"`
}

func toPolicyResponse(p schedule.TimePolicy) PolicyResponse {
	starts := schedule.GenerateSlots(p)
	slots := make([]string, 0, len(starts))
	for _, s := range starts {
		slots = append(slots, schedule.FormatClock(s))
	}

	return PolicyResponse{
		PolicyPayload: PolicyPayload{
			DayStart:        schedule.FormatClock(p.DayStartMinutes),
			DayEnd:          schedule.FormatClock(p.DayEndMinutes),
			IntervalMinutes: p.IntervalMinutes,
			CapacityPerSlot: p.CapacityPerSlot,
		},
		Slots: slots,
	}
}

type DayHoursPayload struct {
	Weekday string `json:"weekday"`
	Open    bool   `json:"open"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

type HoursPayload struct {
	Days []DayHoursPayload `json:"days"`
}

// toWeeklyHours accepts the days in any order and returns them indexed by weekday.
func (p HoursPayload) toWeeklyHours() (schedule.WeeklyHours, error) {
	if len(p.Days) == 0 {
		return nil, nil
	}
	if len(p.Days) != 7 {
		return nil, fmt.Errorf("expected 7 days, got %d", len(p.Days))
	}

	wh := make(schedule.WeeklyHours, 7)
	seen := make(map[time.Weekday]bool, 7)
	for _, d := range p.Days {
		wd, ok := parseWeekday(d.Weekday)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", d.Weekday)
		}
		if seen[wd] {
			return nil, fmt.Errorf("weekday %s given twice", wd)
		}
		seen[wd] = true

		day := schedule.DayHours{Weekday: wd, Open: d.Open}
		if d.Open {
			start, err := schedule.ParseClock(d.Start)
			if err != nil {
				return nil, fmt.Errorf("%s start: %w", wd, err)
			}
			end, err := schedule.ParseClock(d.End)
			if err != nil {
				return nil, fmt.Errorf("%s end: %w", wd, err)
			}
			day.StartMinutes, day.EndMinutes = start, end
		}
		wh[wd] = day
	}
	return wh, nil
}

func toHoursPayload(wh schedule.WeeklyHours) HoursPayload {
	days := make([]DayHoursPayload, 0, len(wh))
	for _, d := range wh {
		p := DayHoursPayload{Weekday: strings.ToLower(d.Weekday.String()), Open: d.Open}
		if d.Open {
			p.Start = schedule.FormatClock(d.StartMinutes)
			p.End = schedule.FormatClock(d.EndMinutes)
		}
		days = append(days, p)
	}
	return HoursPayload{Days: days}
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || s == name[:3] {
			return wd, true
		}
	}
	return 0, false
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
