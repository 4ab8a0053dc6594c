package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	rulesByDoctor, err := seedAvailabilityRules(context.Background(), pool, doctorIDs)
	if err != nil {
		log.Fatalf("seed availability rules: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 5000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, rulesByDoctor, patientIDs); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

type seededWindow struct {
	weekday  int
	startMin int
	endMin   int
}

// seedAvailabilityRules gives every doctor a Monday-Friday pattern: most
// get a 09:00-17:00 day, some split into a morning and an afternoon
// window, and roughly one weekday in five is a day off.
func seedAvailabilityRules(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) (map[uuid.UUID][]seededWindow, error) {
	log.Printf("seeding availability rules for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	windows := make(map[uuid.UUID][]seededWindow)

	insert := func(doctorID uuid.UUID, weekday, startMin, endMin int) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_rules (id, doctor_id, weekday, start_min, end_min, enabled, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
		`, uuid.New(), doctorID, weekday, startMin, endMin)
		if err == nil {
			windows[doctorID] = append(windows[doctorID], seededWindow{weekday, startMin, endMin})
		}
		return err
	}

	for _, doctorID := range doctorIDs {
		for weekday := 1; weekday <= 5; weekday++ {
			if gofakeit.Number(1, 5) == 1 {
				continue // day off
			}
			if gofakeit.Bool() {
				if err := insert(doctorID, weekday, 9*60, 17*60); err != nil {
					return nil, err
				}
			} else {
				if err := insert(doctorID, weekday, 9*60, 12*60); err != nil {
					return nil, err
				}
				if err := insert(doctorID, weekday, 14*60, 18*60); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("availability rules seeded")
	return windows, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedAppointments books a few slots per doctor inside their seeded
// windows on the coming week, so the API has data to show immediately.
// Inserts land on the slot grid and rely on the unique index to skip
// collisions.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, windows map[uuid.UUID][]seededWindow, patientIDs []uuid.UUID) error {
	log.Printf("seeding appointments for %d doctors", len(windows))

	const slotMin = 30

	today := time.Now()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var booked int
	for doctorID, wins := range windows {
		for _, w := range wins {
			if gofakeit.Number(1, 3) != 1 {
				continue
			}
			slots := (w.endMin - w.startMin) / slotMin
			if slots == 0 {
				continue
			}
			startMin := w.startMin + gofakeit.Number(0, slots-1)*slotMin
			patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]

			tag, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, patient_id, doctor_id, appt_date, start_min, end_min, purpose, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', now(), now())
				ON CONFLICT (doctor_id, appt_date, start_min) WHERE status <> 'cancelled' DO NOTHING
			`, uuid.New(), patientID, doctorID, nextWeekday(today, w.weekday), startMin, startMin+slotMin, gofakeit.Sentence(5))
			if err != nil {
				return err
			}
			booked += int(tag.RowsAffected())
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("appointments seeded: %d", booked)
	return nil
}

// nextWeekday returns the next calendar occurrence of weekday strictly
// after the given day, at midnight UTC.
func nextWeekday(after time.Time, weekday int) time.Time {
	d := after.AddDate(0, 0, 1)
	for int(d.Weekday()) != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
