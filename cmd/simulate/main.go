package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/clinic-scheduling/internal/db"
)

// The simulator hammers the booking API with concurrent workers over a
// deliberately small doctor pool so that requests collide, then audits
// the database for overlapping non-cancelled appointments. A clean run
// ends with zero overlaps regardless of how many conflicts were served.

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	DoctorLimit int
	BookRatio   float64
	CancelRatio float64
	ReadRatio   float64
	PostgresDSN string
	TargetDate  time.Time
}

type DataPool struct {
	Doctors  []uuid.UUID
	Patients []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	mu        sync.Mutex
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.Total++
	switch {
	case success:
		om.Success++
	case conflict:
		om.Conflict++
	default:
		om.Error++
	}
	om.Latencies = append(om.Latencies, latency)
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Book      OperationMetrics
	Cancel    OperationMetrics
	ReadByID  OperationMetrics
	ListSlots OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d doctors=%d book=%.2f cancel=%.2f read=%.2f date=%s",
		cfg.Duration, cfg.Workers, cfg.DoctorLimit, cfg.BookRatio, cfg.CancelRatio, cfg.ReadRatio,
		cfg.TargetDate.Format("2006-01-02"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d doctors, %d patients", len(dataPool.Doctors), len(dataPool.Patients))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.Report()

	auditCtx, auditCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer auditCancel()
	if err := auditOverlaps(auditCtx, pgPool); err != nil {
		log.Fatalf("overlap audit: %v", err)
	}
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 20),
		DoctorLimit: getInt("SIM_DOCTOR_LIMIT", 3),
		BookRatio:   getFloat("SIM_BOOK_RATIO", 0.6),
		CancelRatio: getFloat("SIM_CANCEL_RATIO", 0.1),
		ReadRatio:   getFloat("SIM_READ_RATIO", 0.3),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}

	// Default to next Monday so the seeded weekday rules apply.
	day := time.Now().AddDate(0, 0, 1)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	if v := os.Getenv("SIM_DATE"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			day = d
		}
	}
	cfg.TargetDate = day

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be positive")
	}
	if cfg.DoctorLimit <= 0 {
		return fmt.Errorf("SIM_DOCTOR_LIMIT must be positive")
	}
	total := cfg.BookRatio + cfg.CancelRatio + cfg.ReadRatio
	if total <= 0 {
		return fmt.Errorf("operation ratios must sum to a positive value")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT DISTINCT d.id
		FROM doctors d
		JOIN availability_rules r ON r.doctor_id = d.id AND r.enabled
		LIMIT $1
	`, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Doctors = append(dp.Doctors, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT 1000`)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var id uuid.UUID
		if err := prows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Patients = append(dp.Patients, id)
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}

	if len(dp.Doctors) == 0 || len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no doctors or patients found, run cmd/seed first")
	}

	return dp, nil
}

func (s *Simulator) Run() {
	deadline := time.Now().Add(s.config.Duration)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))
			for time.Now().Before(deadline) {
				s.step(rng)
			}
		}(i)
	}
	wg.Wait()
}

func (s *Simulator) step(rng *rand.Rand) {
	total := s.config.BookRatio + s.config.CancelRatio + s.config.ReadRatio
	roll := rng.Float64() * total

	switch {
	case roll < s.config.BookRatio:
		s.doBook(rng)
	case roll < s.config.BookRatio+s.config.CancelRatio:
		s.doCancel(rng)
	default:
		s.doRead(rng)
	}
}

type slotListPayload struct {
	Slots []struct {
		Start string `json:"start"`
	} `json:"slots"`
}

type appointmentPayload struct {
	ID uuid.UUID `json:"id"`
}

func (s *Simulator) doBook(rng *rand.Rand) {
	doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	date := s.config.TargetDate.Format("2006-01-02")

	// List current free slots, then race for one of them.
	start := time.Now()
	resp, err := s.client.Get(fmt.Sprintf("%s/doctors/%s/slots?date=%s", s.config.APIBaseURL, doctorID, date))
	latency := time.Since(start)
	if err != nil {
		s.metrics.ListSlots.Record(latency, false, false)
		return
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusNotFound {
		s.metrics.ListSlots.Record(latency, false, true)
		return
	}
	if resp.StatusCode != http.StatusOK {
		s.metrics.ListSlots.Record(latency, false, false)
		return
	}
	s.metrics.ListSlots.Record(latency, true, false)

	var slots slotListPayload
	if err := json.Unmarshal(body, &slots); err != nil || len(slots.Slots) == 0 {
		return
	}

	// Picking from the first few free slots maximizes contention.
	pick := rng.Intn(min(3, len(slots.Slots)))
	payload, _ := json.Marshal(map[string]any{
		"doctor_id":  doctorID.String(),
		"patient_id": patientID.String(),
		"date":       date,
		"start":      slots.Slots[pick].Start,
		"purpose":    "simulated visit",
	})

	start = time.Now()
	resp, err = s.client.Post(s.config.APIBaseURL+"/appointments", "application/json", bytes.NewReader(payload))
	latency = time.Since(start)
	if err != nil {
		s.metrics.Book.Record(latency, false, false)
		return
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		s.metrics.Book.Record(latency, true, false)
		var appt appointmentPayload
		if err := json.Unmarshal(body, &appt); err == nil {
			s.pool.AddAppointment(appt.ID)
		}
	case http.StatusConflict:
		s.metrics.Book.Record(latency, false, true)
	default:
		s.metrics.Book.Record(latency, false, false)
	}
}

func (s *Simulator) doCancel(rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment()
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.client.Post(fmt.Sprintf("%s/appointments/%s/cancel", s.config.APIBaseURL, id), "application/json", nil)
	latency := time.Since(start)
	if err != nil {
		s.metrics.Cancel.Record(latency, false, false)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		s.metrics.Cancel.Record(latency, true, false)
	case http.StatusConflict:
		// Already terminal, a legal outcome under concurrent cancels.
		s.metrics.Cancel.Record(latency, false, true)
	default:
		s.metrics.Cancel.Record(latency, false, false)
	}
}

func (s *Simulator) doRead(rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment()
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.client.Get(fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, id))
	latency := time.Since(start)
	if err != nil {
		s.metrics.ReadByID.Record(latency, false, false)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	s.metrics.ReadByID.Record(latency, resp.StatusCode == http.StatusOK, false)
}

func (s *Simulator) Report() {
	report := func(name string, om *OperationMetrics) {
		avg, minL, maxL, p50, p95 := om.Stats()
		log.Printf("%-10s total=%d success=%d conflict=%d error=%d avg=%s min=%s max=%s p50=%s p95=%s",
			name, om.Total, om.Success, om.Conflict, om.Error, avg, minL, maxL, p50, p95)
	}

	report("book", &s.metrics.Book)
	report("cancel", &s.metrics.Cancel)
	report("read", &s.metrics.ReadByID)
	report("slots", &s.metrics.ListSlots)
}

// auditOverlaps fails loudly if any two non-cancelled appointments for the
// same doctor and date overlap under the half-open rule.
func auditOverlaps(ctx context.Context, pool *pgxpool.Pool) error {
	var overlaps int64
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.doctor_id = b.doctor_id
		 AND a.appt_date = b.appt_date
		 AND a.id < b.id
		 AND a.start_min < b.end_min
		 AND b.start_min < a.end_min
		WHERE a.status <> 'cancelled'
		  AND b.status <> 'cancelled'
	`).Scan(&overlaps)
	if err != nil {
		return err
	}

	if overlaps > 0 {
		return fmt.Errorf("found %d overlapping appointment pairs, double booking occurred", overlaps)
	}

	log.Println("audit passed: no overlapping non-cancelled appointments")
	return nil
}
