// Command shopctl holds the operator tasks around the scheduling service:
// schema setup, demo data, printing a day's board and load simulation.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/shop-slot-scheduling/internal/appointment"
	"github.com/hackgods/shop-slot-scheduling/internal/config"
	"github.com/hackgods/shop-slot-scheduling/internal/db"
	"github.com/hackgods/shop-slot-scheduling/internal/logging"
	redisclient "github.com/hackgods/shop-slot-scheduling/internal/redis"
	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "shopctl",
		Short:        "Shop appointment scheduling tools",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(simulateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what the database backed subcommands share.
type env struct {
	cfg    config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
}

func connect(ctx context.Context, name string) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Env, "shopctl-"+name)

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

// service builds a Service on Postgres. Offline tools run alone, so the
// in-process locker stands in for Redis.
func (e *env) service() *appointment.Service {
	repo := appointment.NewPgRepository(e.pool)
	return appointment.NewService(repo, redisclient.NewLocalSlotLocker(), e.cfg, e.logger)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the scheduling tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context(), "migrate")
			if err != nil {
				return err
			}
			defer e.pool.Close()

			if err := db.EnsureSchema(cmd.Context(), e.pool); err != nil {
				return err
			}
			e.logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board [YYYY-MM-DD]",
		Short: "Print the slot board of a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := civil.DateOf(time.Now())
			if len(args) == 1 {
				d, err := civil.ParseDate(args[0])
				if err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
				}
				date = d
			}

			e, err := connect(cmd.Context(), "board")
			if err != nil {
				return err
			}
			defer e.pool.Close()

			svc := e.service()
			board, err := svc.DayBoard(cmd.Context(), date)
			if err != nil {
				return err
			}
			stats, err := svc.DailyStats(cmd.Context(), date)
			if err != nil {
				return err
			}

			printBoard(cmd, board, stats)
			return nil
		},
	}
	return cmd
}

func printBoard(cmd *cobra.Command, b schedule.Board, st schedule.DayStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s-%s every %dm, capacity %d\n", b.Date,
		schedule.FormatClock(b.Policy.DayStartMinutes), schedule.FormatClock(b.Policy.DayEndMinutes),
		b.Policy.IntervalMinutes, b.Policy.CapacityPerSlot)
	if b.Closed {
		fmt.Fprintln(out, "closed")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tBOOKED\tAPPOINTMENTS")
	for _, s := range b.Slots {
		flag := ""
		if s.Overfull() {
			flag = " (over capacity)"
		}
		fmt.Fprintf(tw, "%s\t%d/%d%s\t%s\n", schedule.FormatClock(s.StartMinutes),
			s.Occupancy(), s.Capacity, flag, describe(s.Occupants))
	}
	if len(b.NonStandard) > 0 {
		fmt.Fprintf(tw, "other\t%d\t%s\n", len(b.NonStandard), describe(b.NonStandard))
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "pending %d  in progress %d  completed %d  cancelled %d  completion %d%%\n",
		st.Pending, st.InProgress, st.Completed, st.Cancelled, st.CompletionRate)
}

func describe(appts []schedule.Appointment) string {
	s := ""
	for i, a := range appts {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("#%d %s %s %s [%s]", a.ID, a.Clock(), a.VehiclePlate, a.CustomerName, a.Status)
	}
	return s
}
