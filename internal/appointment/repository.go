package appointment

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id int64) (*schedule.Appointment, error)
	// ListAppointments returns appointments dated within [from, to], ordered by date, time and id.
	ListAppointments(ctx context.Context, from, to civil.Date) ([]schedule.Appointment, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, in BookingInput) (*schedule.Appointment, error)
	UpdateAppointment(ctx context.Context, id int64, in BookingInput) (*schedule.Appointment, error)
	// UpdateAppointmentStatus only succeeds while the stored status equals from.
	// A miss is reported as ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id int64, from, to schedule.Status) (*schedule.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error

	// Settings. GetTimePolicy falls back to schedule.DefaultPolicy when nothing is stored,
	// GetWeeklyHours returns nil when no weekly hours are stored.
	GetTimePolicy(ctx context.Context) (schedule.TimePolicy, error)
	SaveTimePolicy(ctx context.Context, p schedule.TimePolicy) error
	GetWeeklyHours(ctx context.Context) (schedule.WeeklyHours, error)
	SaveWeeklyHours(ctx context.Context, wh schedule.WeeklyHours) error

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
