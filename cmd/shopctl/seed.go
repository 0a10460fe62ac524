package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/shop-slot-scheduling/internal/appointment"
	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

var serviceDescriptions = []string{
	"Engine oil change",
	"Brake pad replacement",
	"Tire rotation",
	"Wheel alignment",
	"Battery replacement",
	"Air conditioning check",
	"Transmission fluid change",
	"General inspection",
	"Wiper blade replacement",
	"Coolant flush",
}

var seedNotes = []string{
	"Customer waits in the lounge",
	"Call before starting work",
	"Spare key in glovebox",
	"Rental car requested",
}

var plateLetters = []string{"GA", "NA", "DA", "RA", "MA", "BA", "SA", "AH", "JA", "HA"}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Book random appointments over the coming days",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			days, _ := cmd.Flags().GetInt("days")
			seed, _ := cmd.Flags().GetUint64("seed")
			if count <= 0 || days <= 0 {
				return errors.New("count and days must be positive")
			}

			e, err := connect(cmd.Context(), "seed")
			if err != nil {
				return err
			}
			defer e.pool.Close()

			return seedAppointments(cmd.Context(), e.service(), e.logger, gofakeit.New(seed), count, days, civil.DateOf(time.Now()))
		},
	}

	cmd.Flags().Int("count", 200, "Number of bookings to attempt")
	cmd.Flags().Int("days", 14, "Spread bookings over this many days from today")
	cmd.Flags().Uint64("seed", 0, "Random seed, 0 picks one")
	return cmd
}

// seedAppointments books through the service so capacity and opening hours
// are respected. Closed days, full slots and refused times are skipped, and
// past-dated bookings move along the lifecycle.
func seedAppointments(ctx context.Context, svc *appointment.Service, logger zerolog.Logger, faker *gofakeit.Faker, count, days int, today civil.Date) error {
	base, err := svc.GetTimePolicy(ctx)
	if err != nil {
		return err
	}
	hours, err := svc.GetWeeklyHours(ctx)
	if err != nil {
		return err
	}

	booked, full, closed := 0, 0, 0

	for i := 0; i < count; i++ {
		date := today.AddDays(faker.Number(-2, days-1))
		policy, open := hours.PolicyFor(base, date)
		slots := schedule.GenerateSlots(policy)
		if !open || len(slots) == 0 {
			closed++
			continue
		}

		in := appointment.BookingInput{
			CustomerName:       faker.Name(),
			VehiclePlate:       fmt.Sprintf("%02d%s%04d", faker.Number(10, 99), faker.RandomString(plateLetters), faker.Number(1000, 9999)),
			Phone:              faker.Phone(),
			ServiceDescription: faker.RandomString(serviceDescriptions),
			Date:               date,
			TimeOfDay:          slots[faker.Number(0, len(slots)-1)],
		}
		if faker.Number(0, 4) == 0 {
			in.Note = faker.RandomString(seedNotes)
		}

		appt, err := svc.CreateAppointment(ctx, in)
		switch {
		case errors.Is(err, appointment.ErrSlotFull), errors.Is(err, appointment.ErrSlotBeingBooked):
			full++
			continue
		case errors.Is(err, appointment.ErrNonStandardTime):
			closed++
			continue
		case err != nil:
			return fmt.Errorf("book appointment %d: %w", i, err)
		}
		booked++

		if action, ok := seedAction(faker, appt.Date, today); ok {
			if _, err := svc.TransitionStatus(ctx, appt.ID, action); err != nil {
				return fmt.Errorf("%s appointment %d: %w", action, appt.ID, err)
			}
		}
	}

	logger.Info().Int("booked", booked).Int("skipped_full", full).Int("skipped_closed", closed).Msg("seed complete")
	return nil
}

func seedAction(faker *gofakeit.Faker, date, today civil.Date) (schedule.Action, bool) {
	switch {
	case date.Before(today):
		if faker.Number(0, 9) == 0 {
			return schedule.ActionCancel, true
		}
		return schedule.ActionComplete, true
	case date == today:
		return schedule.ActionStart, faker.Bool()
	default:
		return schedule.ActionCancel, faker.Number(0, 9) == 0
	}
}
