package schedule

import (
	"time"

	"cloud.google.com/go/civil"
)

type Appointment struct {
	ID                 int64
	CustomerName       string
	VehiclePlate       string
	Phone              string
	ServiceDescription string
	Date               civil.Date
	TimeOfDay          int // minutes since midnight
	Status             Status
	Note               string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Clock returns the appointment time as "HH:MM".
func (a Appointment) Clock() string {
	return FormatClock(a.TimeOfDay)
}

// OnDate filters appointments to a single calendar date, keeping input order.
func OnDate(appts []Appointment, d civil.Date) []Appointment {
	var out []Appointment
	for _, a := range appts {
		if a.Date == d {
			out = append(out, a)
		}
	}
	return out
}
