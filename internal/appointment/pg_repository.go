package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, customer_name, vehicle_plate, phone, service_description,
	appointment_date, time_of_day, status, note, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*schedule.Appointment, error) {
	var a schedule.Appointment
	var date time.Time

	err := row.Scan(
		&a.ID,
		&a.CustomerName,
		&a.VehiclePlate,
		&a.Phone,
		&a.ServiceDescription,
		&date,
		&a.TimeOfDay,
		&a.Status,
		&a.Note,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = civil.DateOf(date)
	return &a, nil
}

func pgDate(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// Interface methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, from, to civil.Date) ([]schedule.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2
		ORDER BY appointment_date, time_of_day, id
	`, pgDate(from), pgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, in BookingInput) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (customer_name, vehicle_plate, phone, service_description,
			appointment_date, time_of_day, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns,
		in.CustomerName, in.VehiclePlate, in.Phone, in.ServiceDescription,
		pgDate(in.Date), in.TimeOfDay, schedule.StatusPending, in.Note)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, id int64, in BookingInput) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET customer_name = $2,
		    vehicle_plate = $3,
		    phone = $4,
		    service_description = $5,
		    appointment_date = $6,
		    time_of_day = $7,
		    note = $8,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, in.CustomerName, in.VehiclePlate, in.Phone, in.ServiceDescription,
		pgDate(in.Date), in.TimeOfDay, in.Note)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id int64, from, to schedule.Status) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) GetTimePolicy(ctx context.Context) (schedule.TimePolicy, error) {
	var p schedule.TimePolicy
	err := r.pool.QueryRow(ctx, `
		SELECT day_start_minutes, day_end_minutes, interval_minutes, capacity_per_slot
		FROM time_policy
		WHERE id = 1
	`).Scan(&p.DayStartMinutes, &p.DayEndMinutes, &p.IntervalMinutes, &p.CapacityPerSlot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.DefaultPolicy(), nil
		}
		return schedule.TimePolicy{}, fmt.Errorf("load time policy: %w", err)
	}
	return p, nil
}

func (r *PgRepository) SaveTimePolicy(ctx context.Context, p schedule.TimePolicy) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO time_policy (id, day_start_minutes, day_end_minutes, interval_minutes, capacity_per_slot, updated_at)
		VALUES (1, $1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET day_start_minutes = EXCLUDED.day_start_minutes,
		    day_end_minutes = EXCLUDED.day_end_minutes,
		    interval_minutes = EXCLUDED.interval_minutes,
		    capacity_per_slot = EXCLUDED.capacity_per_slot,
		    updated_at = now()
	`, p.DayStartMinutes, p.DayEndMinutes, p.IntervalMinutes, p.CapacityPerSlot)
	if err != nil {
		return fmt.Errorf("save time policy: %w", err)
	}
	return nil
}

func (r *PgRepository) GetWeeklyHours(ctx context.Context) (schedule.WeeklyHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_open, start_minutes, end_minutes
		FROM business_hours
		ORDER BY weekday
	`)
	if err != nil {
		return nil, fmt.Errorf("load business hours: %w", err)
	}
	defer rows.Close()

	var wh schedule.WeeklyHours
	for rows.Next() {
		var d schedule.DayHours
		var weekday int16
		if err := rows.Scan(&weekday, &d.Open, &d.StartMinutes, &d.EndMinutes); err != nil {
			return nil, err
		}
		d.Weekday = time.Weekday(weekday)
		wh = append(wh, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A partial week is treated as unset.
	if len(wh) != 7 {
		return nil, nil
	}
	return wh, nil
}

func (r *PgRepository) SaveWeeklyHours(ctx context.Context, wh schedule.WeeklyHours) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM business_hours`); err != nil {
		return fmt.Errorf("clear business hours: %w", err)
	}

	for _, d := range wh {
		_, err := tx.Exec(ctx, `
			INSERT INTO business_hours (weekday, is_open, start_minutes, end_minutes)
			VALUES ($1, $2, $3, $4)
		`, int16(d.Weekday), d.Open, d.StartMinutes, d.EndMinutes)
		if err != nil {
			return fmt.Errorf("insert business hours for %s: %w", d.Weekday, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
