package appointment

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

// BookingInput carries the editable fields of an appointment. It is used both
// by the booking form and by the edit flow.
type BookingInput struct {
	CustomerName       string
	VehiclePlate       string
	Phone              string
	ServiceDescription string
	Date               civil.Date
	TimeOfDay          int
	Note               string
}

func (in BookingInput) normalize() BookingInput {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.VehiclePlate = strings.TrimSpace(in.VehiclePlate)
	in.Phone = strings.TrimSpace(in.Phone)
	in.ServiceDescription = strings.TrimSpace(in.ServiceDescription)
	in.Note = strings.TrimSpace(in.Note)
	return in
}

// missing lists the required fields that are empty.
func (in BookingInput) missing() []string {
	var fields []string
	if in.CustomerName == "" {
		fields = append(fields, "customer_name")
	}
	if in.VehiclePlate == "" {
		fields = append(fields, "vehicle_plate")
	}
	if in.Phone == "" {
		fields = append(fields, "phone")
	}
	if in.ServiceDescription == "" {
		fields = append(fields, "service_description")
	}
	if !in.Date.IsValid() {
		fields = append(fields, "date")
	}
	if in.TimeOfDay < 0 || in.TimeOfDay >= schedule.MinutesPerDay {
		fields = append(fields, "time")
	}
	return fields
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *int64
	Payload       []byte
	CreatedAt     time.Time
}

// DriftReport lists what on one day no longer fits the current policy.
type DriftReport struct {
	Date        civil.Date
	Closed      bool
	Overfull    []schedule.Slot
	NonStandard []schedule.Appointment
}

func (r DriftReport) Empty() bool {
	return len(r.Overfull) == 0 && len(r.NonStandard) == 0
}
