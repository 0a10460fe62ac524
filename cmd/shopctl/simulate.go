package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/hackgods/shop-slot-scheduling/internal/schedule"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	Days         int
	BookingRatio float64
	StatusRatio  float64
	ReadRatio    float64
}

// DataPool holds the appointment ids created during the run.
type DataPool struct {
	mu           sync.RWMutex
	appointments []int64
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

// opKind is one of the request kinds a worker sends.
type opKind int

const (
	opBook opKind = iota
	opStatus
	opRead
	opBoard
	numOps
)

var opNames = [numOps]string{"Booking", "Status change", "Read by ID", "Day board"}

// outcome sorts a response into accepted, refused by the scheduler (409) or failed.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeRefused
	outcomeFailed
)

func classify(status int, err error, want int) outcome {
	switch {
	case err != nil:
		return outcomeFailed
	case status == want:
		return outcomeOK
	case status == http.StatusConflict:
		return outcomeRefused
	default:
		return outcomeFailed
	}
}

// opTally collects the outcomes and latencies of one request kind.
type opTally struct {
	mu        sync.Mutex
	counts    [3]int
	latencies []time.Duration
}

func (t *opTally) add(o outcome, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[o]++
	t.latencies = append(t.latencies, d)
}

type latencySummary struct {
	Avg, Min, Max, P50, P95 time.Duration
}

type tallySnapshot struct {
	OK, Refused, Failed int
	Latency             latencySummary
}

func (s tallySnapshot) Total() int { return s.OK + s.Refused + s.Failed }

func (t *opTally) snapshot() tallySnapshot {
	t.mu.Lock()
	sorted := append([]time.Duration(nil), t.latencies...)
	snap := tallySnapshot{OK: t.counts[outcomeOK], Refused: t.counts[outcomeRefused], Failed: t.counts[outcomeFailed]}
	t.mu.Unlock()

	snap.Latency = summarize(sorted)
	return snap
}

// summarize sorts d in place. Percentiles use the nearest rank.
func summarize(d []time.Duration) latencySummary {
	if len(d) == 0 {
		return latencySummary{}
	}
	slices.Sort(d)

	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	rank := func(p int) time.Duration {
		return d[max((p*len(d)+99)/100-1, 0)]
	}
	return latencySummary{
		Avg: sum / time.Duration(len(d)),
		Min: d[0],
		Max: d[len(d)-1],
		P50: rank(50),
		P95: rank(95),
	}
}

// runTally holds one opTally per request kind.
type runTally [numOps]opTally

func (r *runTally) record(kind opKind, o outcome, d time.Duration) {
	r[kind].add(o, d)
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	slots   []int
	tally   runTally
}

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive concurrent booking traffic against a running api-server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := SimConfig{}
			cfg.APIBaseURL, _ = cmd.Flags().GetString("url")
			cfg.Duration, _ = cmd.Flags().GetDuration("duration")
			cfg.Workers, _ = cmd.Flags().GetInt("workers")
			cfg.Days, _ = cmd.Flags().GetInt("days")
			cfg.BookingRatio, _ = cmd.Flags().GetFloat64("booking-ratio")
			cfg.StatusRatio, _ = cmd.Flags().GetFloat64("status-ratio")
			cfg.ReadRatio, _ = cmd.Flags().GetFloat64("read-ratio")

			if err := validateSimConfig(&cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			sim := &Simulator{
				config: cfg,
				pool:   &DataPool{},
				client: &http.Client{Timeout: 10 * time.Second},
			}
			if err := sim.loadPolicy(cmd.Context()); err != nil {
				return err
			}

			sim.Run(cmd.Context())
			sim.PrintReport(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().String("url", "http://localhost:8080", "Base URL of the api-server")
	cmd.Flags().Duration("duration", 30*time.Second, "How long to run")
	cmd.Flags().Int("workers", 10, "Concurrent workers")
	cmd.Flags().Int("days", 5, "Book into this many days from today")
	cmd.Flags().Float64("booking-ratio", 0.5, "Share of booking requests")
	cmd.Flags().Float64("status-ratio", 0.2, "Share of start/complete/cancel requests")
	cmd.Flags().Float64("read-ratio", 0.3, "Share of read requests")
	return cmd
}

func validateSimConfig(cfg *SimConfig) error {
	if cfg.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("duration must be > 0")
	}
	if cfg.Days <= 0 {
		return errors.New("days must be > 0")
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.StatusRatio + cfg.ReadRatio
	if total <= 0 {
		return errors.New("at least one ratio must be positive")
	}
	cfg.BookingRatio /= total
	cfg.StatusRatio /= total
	cfg.ReadRatio /= total
	return nil
}

// loadPolicy fetches the slot grid so bookings target real slots.
func (s *Simulator) loadPolicy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/settings/policy", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("load policy: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var policy struct {
		Slots []string `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&policy); err != nil {
		return fmt.Errorf("decode policy: %w", err)
	}
	for _, c := range policy.Slots {
		tod, err := schedule.ParseClock(c)
		if err != nil {
			return err
		}
		s.slots = append(s.slots, tod)
	}
	if len(s.slots) == 0 {
		return errors.New("policy has no slots")
	}
	return nil
}

func (s *Simulator) Run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.config.Duration)
	defer cancel()

	fmt.Printf("starting simulation for %s with %d workers\n", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	faker := gofakeit.New(uint64(rng.Int63()))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng, faker)
			case r < s.config.BookingRatio+s.config.StatusRatio:
				s.doStatus(ctx, rng)
			case rng.Intn(2) == 0:
				s.doRead(ctx, rng)
			default:
				s.doBoard(ctx, rng)
			}
		}
	}
}

func (s *Simulator) randomDate(rng *rand.Rand) civil.Date {
	return civil.DateOf(time.Now()).AddDays(rng.Intn(s.config.Days))
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, faker *gofakeit.Faker) {
	body, _ := json.Marshal(map[string]string{
		"customer_name":       faker.Name(),
		"vehicle_plate":       fmt.Sprintf("%02d%s%04d", faker.Number(10, 99), faker.RandomString(plateLetters), faker.Number(1000, 9999)),
		"phone":               faker.Phone(),
		"service_description": faker.RandomString(serviceDescriptions),
		"date":                s.randomDate(rng).String(),
		"time":                schedule.FormatClock(s.slots[rng.Intn(len(s.slots))]),
	})

	start := time.Now()
	status, respBody, err := s.send(ctx, http.MethodPost, "/appointments", body)
	latency := time.Since(start)

	result := classify(status, err, http.StatusCreated)
	if result == outcomeOK {
		var appt struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(respBody, &appt) == nil && appt.ID > 0 {
			s.pool.AddAppointment(appt.ID)
		}
	}

	s.tally.record(opBook, result, latency)
}

func (s *Simulator) doStatus(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	actions := []schedule.Action{schedule.ActionStart, schedule.ActionComplete, schedule.ActionCancel}
	action := actions[rng.Intn(len(actions))]

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/%s", id, action), nil)
	latency := time.Since(start)

	s.tally.record(opStatus, classify(status, err, http.StatusOK), latency)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d", id), nil)
	latency := time.Since(start)

	s.tally.record(opRead, classify(status, err, http.StatusOK), latency)
}

func (s *Simulator) doBoard(ctx context.Context, rng *rand.Rand) {
	start := time.Now()
	status, _, err := s.send(ctx, http.MethodGet, "/schedule/"+s.randomDate(rng).String()+"/board", nil)
	latency := time.Since(start)

	s.tally.record(opBoard, classify(status, err, http.StatusOK), latency)
}

func (s *Simulator) send(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

func (s *Simulator) PrintReport(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "SIMULATION REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Duration: %s\n", s.config.Duration)
	fmt.Fprintf(w, "Workers: %d\n", s.config.Workers)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tTOTAL\tOK\tREFUSED\tFAILED\tAVG\tMIN\tMAX\tP50\tP95")
	for kind := opKind(0); kind < numOps; kind++ {
		snap := s.tally[kind].snapshot()
		if snap.Total() == 0 {
			continue
		}
		l := snap.Latency
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", opNames[kind], snap.Total(),
			share(snap.OK, snap.Total()), share(snap.Refused, snap.Total()), share(snap.Failed, snap.Total()),
			l.Avg.Round(time.Millisecond), l.Min.Round(time.Millisecond), l.Max.Round(time.Millisecond),
			l.P50.Round(time.Millisecond), l.P95.Round(time.Millisecond))
	}
	_ = tw.Flush()
}

func share(n, total int) string {
	return fmt.Sprintf("%d (%.1f%%)", n, float64(n)/float64(total)*100)
}
