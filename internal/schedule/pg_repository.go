package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var r AvailabilityRule
	var weekday, start, end int16
	err := row.Scan(&r.ID, &r.DoctorID, &weekday, &start, &end, &r.Enabled, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	r.Weekday = time.Weekday(weekday)
	r.Start = TimeOfDay(start)
	r.End = TimeOfDay(end)
	return &r, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, end int16
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&start,
		&end,
		&a.Purpose,
		&a.Notes,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Date = DateOf(a.Date)
	a.Start = TimeOfDay(start)
	a.End = TimeOfDay(end)
	return &a, nil
}

const appointmentColumns = `id, patient_id, doctor_id, appt_date, start_min, end_min, purpose, notes, status, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListRulesForWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, weekday, start_min, end_min, enabled, notes, created_at, updated_at
		FROM availability_rules
		WHERE doctor_id = $1 AND weekday = $2 AND enabled
		ORDER BY start_min
	`, doctorID, int16(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *PgRepository) ListRulesForDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, weekday, start_min, end_min, enabled, notes, created_at, updated_at
		FROM availability_rules
		WHERE doctor_id = $1
		ORDER BY weekday, start_min
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]AvailabilityRule, error) {
	var result []AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetRuleByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, weekday, start_min, end_min, enabled, notes, created_at, updated_at
		FROM availability_rules
		WHERE id = $1
	`, id)
	return scanRule(row)
}

func (r *PgRepository) CreateRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error) {
	id := rule.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_rules (id, doctor_id, weekday, start_min, end_min, enabled, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id, doctor_id, weekday, start_min, end_min, enabled, notes, created_at, updated_at
	`, id, rule.DoctorID, int16(rule.Weekday), int16(rule.Start), int16(rule.End), rule.Enabled, rule.Notes)

	return scanRule(row)
}

func (r *PgRepository) UpdateRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_rules
		SET weekday = $2,
		    start_min = $3,
		    end_min = $4,
		    enabled = $5,
		    notes = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, doctor_id, weekday, start_min, end_min, enabled, notes, created_at, updated_at
	`, rule.ID, int16(rule.Weekday), int16(rule.Start), int16(rule.End), rule.Enabled, rule.Notes)

	return scanRule(row)
}

func (r *PgRepository) ListAppointmentsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND appt_date = $2
		ORDER BY start_min
	`, doctorID, DateOf(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
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

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appt_date, start_min, end_min, purpose, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, a.PatientID, a.DoctorID, DateOf(a.Date), int16(a.Start), int16(a.End), a.Purpose, a.Notes, a.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, date time.Time, start, end TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET appt_date = $2,
		    start_min = $3,
		    end_min = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, DateOf(date), int16(start), int16(end))

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) FindOverdueScheduled(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	cutDate := DateOf(cutoff)
	cutMin := int16(cutoff.Hour()*60 + cutoff.Minute())

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'scheduled'
		  AND (appt_date < $1 OR (appt_date = $1 AND end_min <= $2))
	`, cutDate, cutMin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
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
