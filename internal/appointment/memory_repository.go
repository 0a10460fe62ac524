package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

// MemoryRepository is an in-process Repository. Ids are assigned in creation
// order starting at 1.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	appts  map[int64]schedule.Appointment
	policy *schedule.TimePolicy
	hours  schedule.WeeklyHours
	events []EventLog
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		appts:  make(map[int64]schedule.Appointment),
		now:    time.Now,
	}
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id int64) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, from, to civil.Date) ([]schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []schedule.Appointment
	for _, a := range r.appts {
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].TimeOfDay != out[j].TimeOfDay {
			return out[i].TimeOfDay < out[j].TimeOfDay
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, in BookingInput) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	a := schedule.Appointment{
		ID:        r.nextID,
		Status:    schedule.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(&a, in)
	r.appts[a.ID] = a
	r.nextID++
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, id int64, in BookingInput) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	applyInput(&a, in)
	a.UpdatedAt = r.now()
	r.appts[id] = a
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id int64, from, to schedule.Status) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = r.now()
	r.appts[id] = a
	return &a, nil
}

func (r *MemoryRepository) DeleteAppointment(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appts[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appts, id)
	return nil
}

func (r *MemoryRepository) GetTimePolicy(_ context.Context) (schedule.TimePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == nil {
		return schedule.DefaultPolicy(), nil
	}
	return *r.policy, nil
}

func (r *MemoryRepository) SaveTimePolicy(_ context.Context, p schedule.TimePolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.policy = &p
	return nil
}

func (r *MemoryRepository) GetWeeklyHours(_ context.Context) (schedule.WeeklyHours, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.hours) != 7 {
		return nil, nil
	}
	out := make(schedule.WeeklyHours, len(r.hours))
	copy(out, r.hours)
	return out, nil
}

func (r *MemoryRepository) SaveWeeklyHours(_ context.Context, wh schedule.WeeklyHours) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hours = make(schedule.WeeklyHours, len(wh))
	copy(r.hours, wh)
	return nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func applyInput(a *schedule.Appointment, in BookingInput) {
	a.CustomerName = in.CustomerName
	a.VehiclePlate = in.VehiclePlate
	a.Phone = in.Phone
	a.ServiceDescription = in.ServiceDescription
	a.Date = in.Date
	a.TimeOfDay = in.TimeOfDay
	a.Note = in.Note
}
