package main

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/shop-slot-scheduling/internal/appointment"
	"github.com/hackgods/shop-slot-scheduling/internal/config"
	redisclient "github.com/hackgods/shop-slot-scheduling/internal/redis"
	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

func TestSeedAppointments_FollowsWeeklyHours(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{DriftLookaheadDays: 7, AllowNonStandardBookings: false}
	svc := appointment.NewService(appointment.NewMemoryRepository(), redisclient.NewLocalSlotLocker(), cfg, zerolog.Nop())

	hours := schedule.DefaultWeeklyHours()
	if _, err := svc.UpdateWeeklyHours(ctx, hours); err != nil {
		t.Fatalf("set weekly hours: %v", err)
	}
	base, err := svc.GetTimePolicy(ctx)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}

	// Monday; the seed window runs from Saturday the 7th to Sunday the 15th.
	today := civil.Date{Year: 2026, Month: time.March, Day: 9}
	if err := seedAppointments(ctx, svc, zerolog.Nop(), gofakeit.New(7), 80, 7, today); err != nil {
		t.Fatalf("seed must skip closed days and refused times, got %v", err)
	}

	appts, err := svc.ListAppointments(ctx, today.AddDays(-2), today.AddDays(6))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) == 0 {
		t.Fatal("expected some bookings")
	}
	for _, a := range appts {
		policy, open := hours.PolicyFor(base, a.Date)
		if !open {
			t.Fatalf("appointment %d booked on closed %s", a.ID, a.Date.In(time.UTC).Weekday())
		}
		if _, ok := schedule.MatchSlot(a.TimeOfDay, policy); !ok {
			t.Fatalf("appointment %d at %s is outside the %s window", a.ID, a.Clock(), a.Date)
		}
	}

	for d := today.AddDays(-2); !d.After(today.AddDays(6)); d = d.AddDays(1) {
		board, err := svc.DayBoard(ctx, d)
		if err != nil {
			t.Fatalf("board %s: %v", d, err)
		}
		if over := board.OverfullSlots(); len(over) > 0 {
			t.Fatalf("seed overfilled %s: %+v", d, over)
		}
	}
}
