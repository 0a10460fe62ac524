package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/hackgods/shop-slot-scheduling/internal/config"
	redisclient "github.com/hackgods/shop-slot-scheduling/internal/redis"
	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentUpdated       = "APPOINTMENT_UPDATED"
	EventAppointmentDeleted       = "APPOINTMENT_DELETED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventPolicyUpdated            = "TIME_POLICY_UPDATED"
	EventBusinessHoursUpdated     = "BUSINESS_HOURS_UPDATED"
)

// MaxRangeDays bounds how many days a single list request may cover.
const MaxRangeDays = 366

const maxTransitionAttempts = 3

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrSlotFull         = errors.New("slot is fully booked")
	ErrSlotBeingBooked  = errors.New("slot is currently being booked, please retry")
	ErrNonStandardTime  = errors.New("time does not match a bookable slot")
	ErrStatusConflict   = errors.New("appointment status changed concurrently")
	ErrInvalidDateRange = errors.New("invalid date range")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		logger: logger.With().Str("component", "appointment").Logger(),
		now:    time.Now,
	}
}

// CreateAppointment books a new PENDING appointment. Capacity is checked
// against the day's board while holding the slot lock, so two concurrent
// bookings cannot both take the last place.
func (s *Service) CreateAppointment(ctx context.Context, in BookingInput) (*schedule.Appointment, error) {
	in = in.normalize()
	if missing := in.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	var created *schedule.Appointment

	err := s.locker.WithSlotLock(ctx, in.Date, in.TimeOfDay, func(lockCtx context.Context) error {
		// Inside the critical section re-read the day and check the slot has room
		if err := s.checkCapacity(lockCtx, in.Date, in.TimeOfDay); err != nil {
			return err
		}

		appt, err := s.repo.CreateAppointment(lockCtx, in)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"date": appt.Date.String(),
			"time": appt.Clock(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logger.Info().
		Int64("appointment_id", created.ID).
		Str("date", created.Date.String()).
		Str("time", created.Clock()).
		Msg("appointment booked")

	return created, nil
}

// UpdateAppointment rewrites every editable field. Status, id and created_at
// are never touched. Moving the appointment to another date or time re-checks
// the target slot's capacity.
func (s *Service) UpdateAppointment(ctx context.Context, id int64, in BookingInput) (*schedule.Appointment, error) {
	in = in.normalize()
	if missing := in.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	existing, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, wrapLoad(err)
	}

	if existing.Date == in.Date && existing.TimeOfDay == in.TimeOfDay {
		updated, err := s.repo.UpdateAppointment(ctx, id, in)
		if err != nil {
			return nil, wrapUpdate(err)
		}
		s.logEvent(ctx, id, EventAppointmentUpdated, map[string]any{"moved": false})
		return updated, nil
	}

	var updated *schedule.Appointment
	err = s.locker.WithSlotLock(ctx, in.Date, in.TimeOfDay, func(lockCtx context.Context) error {
		// A cancelled appointment only skips the check when cancelled places are released
		if existing.Status != schedule.StatusCancelled || !s.cfg.ReleaseCancelledPlaces {
			if err := s.checkCapacity(lockCtx, in.Date, in.TimeOfDay); err != nil {
				return err
			}
		}

		appt, err := s.repo.UpdateAppointment(lockCtx, id, in)
		if err != nil {
			return wrapUpdate(err)
		}
		updated = appt

		s.logEvent(lockCtx, id, EventAppointmentUpdated, map[string]any{
			"moved":     true,
			"from_date": existing.Date.String(),
			"from_time": existing.Clock(),
			"to_date":   appt.Date.String(),
			"to_time":   appt.Clock(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return updated, nil
}

// checkCapacity refuses a booking at date/timeOfDay when the matching slot
// already holds as many appointments as its capacity. Cancelled bookings count
// unless the shop releases their places.
func (s *Service) checkCapacity(ctx context.Context, date civil.Date, timeOfDay int) error {
	board, err := s.DayBoard(ctx, date)
	if err != nil {
		return err
	}

	slot, ok := board.Slot(timeOfDay)
	if !ok {
		if !s.cfg.AllowNonStandardBookings {
			return fmt.Errorf("%w: %s on %s", ErrNonStandardTime, schedule.FormatClock(timeOfDay), date)
		}
		return nil
	}

	canBook, held := board.CanBook(timeOfDay), slot.Occupancy()
	if s.cfg.ReleaseCancelledPlaces {
		canBook, held = board.CanBookIgnoringCancelled(timeOfDay), slot.ActiveOccupancy()
	}
	if !canBook {
		return fmt.Errorf("%w: %s on %s has %d/%d", ErrSlotFull,
			schedule.FormatClock(slot.StartMinutes), date, held, slot.Capacity)
	}
	return nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("delete appointment: %w", err)
	}
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{})
	return nil
}

// TransitionStatus applies a lifecycle action. The write is a compare-and-swap
// on the status that was read, retried when another writer got there first.
func (s *Service) TransitionStatus(ctx context.Context, id int64, action schedule.Action) (*schedule.Appointment, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		appt, err := s.repo.GetAppointmentByID(ctx, id)
		if err != nil {
			return nil, wrapLoad(err)
		}

		next, err := schedule.Transition(appt.Status, action)
		if err != nil {
			return nil, err
		}
		if next == appt.Status {
			return appt, nil
		}

		updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, next)
		if err == nil {
			s.logEvent(ctx, id, EventAppointmentStatusChanged, map[string]any{
				"action": string(action),
				"from":   string(appt.Status),
				"to":     string(next),
			})
			return updated, nil
		}
		if !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("update appointment status: %w", err)
		}

		s.logger.Debug().
			Int64("appointment_id", id).
			Int("attempt", attempt+1).
			Msg("status changed concurrently, retrying transition")
	}

	return nil, ErrStatusConflict
}

// GetAppointment retrieves an appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id int64) (*schedule.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, wrapLoad(err)
	}
	return appt, nil
}

// ListAppointments returns appointments dated within [from, to]
func (s *Service) ListAppointments(ctx context.Context, from, to civil.Date) ([]schedule.Appointment, error) {
	if !from.IsValid() || !to.IsValid() || to.Before(from) {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidDateRange, from, to)
	}
	if to.DaysSince(from) >= MaxRangeDays {
		return nil, fmt.Errorf("%w: more than %d days", ErrInvalidDateRange, MaxRangeDays)
	}

	appts, err := s.repo.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// DayBoard assigns a day's appointments to the slots of the current policy.
func (s *Service) DayBoard(ctx context.Context, date civil.Date) (schedule.Board, error) {
	policy, hours, err := s.settings(ctx)
	if err != nil {
		return schedule.Board{}, err
	}

	appts, err := s.repo.ListAppointments(ctx, date, date)
	if err != nil {
		return schedule.Board{}, fmt.Errorf("list appointments: %w", err)
	}

	return schedule.BoardFor(appts, date, policy, hours), nil
}

func (s *Service) DailyStats(ctx context.Context, date civil.Date) (schedule.DayStats, error) {
	appts, err := s.repo.ListAppointments(ctx, date, date)
	if err != nil {
		return schedule.DayStats{}, fmt.Errorf("list appointments: %w", err)
	}
	return schedule.DailyStats(appts, date), nil
}

// MonthGrid returns the calendar of a month padded to whole weeks.
func (s *Service) MonthGrid(ctx context.Context, year int, month time.Month) ([]schedule.CalendarCell, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidDateRange, month)
	}

	first := civil.Date{Year: year, Month: month, Day: 1}
	last := civil.DateOf(first.In(time.UTC).AddDate(0, 1, -1))

	// The grid never reaches more than six days into the neighbouring months.
	appts, err := s.repo.ListAppointments(ctx, first.AddDays(-6), last.AddDays(6))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return schedule.MonthGrid(appts, year, month), nil
}

// DetectDrift builds the boards of days [from, from+days) and reports slots
// over capacity and appointments off the slot grid. Nothing is modified.
func (s *Service) DetectDrift(ctx context.Context, from civil.Date, days int) ([]DriftReport, error) {
	if days <= 0 {
		return nil, nil
	}
	policy, hours, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}

	to := from.AddDays(days - 1)
	appts, err := s.repo.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	var reports []DriftReport
	for d := from; !d.After(to); d = d.AddDays(1) {
		board := schedule.BoardFor(appts, d, policy, hours)
		r := DriftReport{
			Date:        d,
			Closed:      board.Closed,
			Overfull:    board.OverfullSlots(),
			NonStandard: activeOnly(board.NonStandard),
		}
		if !r.Empty() {
			reports = append(reports, r)
		}
	}
	return reports, nil
}

func activeOnly(appts []schedule.Appointment) []schedule.Appointment {
	var out []schedule.Appointment
	for _, a := range appts {
		if !a.Status.Terminal() {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) GetTimePolicy(ctx context.Context) (schedule.TimePolicy, error) {
	p, err := s.repo.GetTimePolicy(ctx)
	if err != nil {
		return schedule.TimePolicy{}, fmt.Errorf("get time policy: %w", err)
	}
	return p, nil
}

// UpdateTimePolicy stores a new policy. Capacity is clamped to the range the
// settings form allows; every other invalid value is rejected.
func (s *Service) UpdateTimePolicy(ctx context.Context, p schedule.TimePolicy) (schedule.TimePolicy, error) {
	p.CapacityPerSlot = schedule.ClampCapacity(p.CapacityPerSlot)
	if err := p.Validate(); err != nil {
		return schedule.TimePolicy{}, err
	}

	if err := s.repo.SaveTimePolicy(ctx, p); err != nil {
		return schedule.TimePolicy{}, fmt.Errorf("save time policy: %w", err)
	}

	s.logEvent(ctx, 0, EventPolicyUpdated, map[string]any{
		"day_start": schedule.FormatClock(p.DayStartMinutes),
		"day_end":   schedule.FormatClock(p.DayEndMinutes),
		"interval":  p.IntervalMinutes,
		"capacity":  p.CapacityPerSlot,
	})
	s.warnDrift(ctx)

	return p, nil
}

func (s *Service) GetWeeklyHours(ctx context.Context) (schedule.WeeklyHours, error) {
	wh, err := s.repo.GetWeeklyHours(ctx)
	if err != nil {
		return nil, fmt.Errorf("get weekly hours: %w", err)
	}
	return wh, nil
}

// UpdateWeeklyHours stores per-weekday opening hours. An empty week clears
// them so every day follows the base policy again.
func (s *Service) UpdateWeeklyHours(ctx context.Context, wh schedule.WeeklyHours) (schedule.WeeklyHours, error) {
	if err := wh.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWeeklyHours(ctx, wh); err != nil {
		return nil, fmt.Errorf("save weekly hours: %w", err)
	}

	s.logEvent(ctx, 0, EventBusinessHoursUpdated, map[string]any{"days": len(wh)})
	s.warnDrift(ctx)

	return wh, nil
}

// warnDrift logs bookings that the new settings leave overfull or off grid.
// They are kept as they are and left for manual resolution.
func (s *Service) warnDrift(ctx context.Context) {
	reports, err := s.DetectDrift(ctx, civil.DateOf(s.now()), s.cfg.DriftLookaheadDays)
	if err != nil {
		s.logger.Warn().Err(err).Msg("drift check after settings change failed")
		return
	}
	for _, r := range reports {
		s.logger.Warn().
			Str("date", r.Date.String()).
			Int("overfull_slots", len(r.Overfull)).
			Int("non_standard", len(r.NonStandard)).
			Msg("existing bookings no longer fit the policy")
	}
}

func (s *Service) settings(ctx context.Context) (schedule.TimePolicy, schedule.WeeklyHours, error) {
	policy, err := s.repo.GetTimePolicy(ctx)
	if err != nil {
		return schedule.TimePolicy{}, nil, fmt.Errorf("get time policy: %w", err)
	}
	hours, err := s.repo.GetWeeklyHours(ctx)
	if err != nil {
		return schedule.TimePolicy{}, nil, fmt.Errorf("get weekly hours: %w", err)
	}
	return policy, hours, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID int64, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: s.now(),
	}
	if appointmentID != 0 {
		apptID := appointmentID
		ev.AppointmentID = &apptID
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Int64("appointment_id", appointmentID).
			Msg("failed to insert event log")
	}
}

func wrapLoad(err error) error {
	if errors.Is(err, ErrAppointmentNotFound) {
		return err
	}
	return fmt.Errorf("load appointment: %w", err)
}

func wrapUpdate(err error) error {
	if errors.Is(err, ErrAppointmentNotFound) {
		return err
	}
	return fmt.Errorf("update appointment: %w", err)
}
