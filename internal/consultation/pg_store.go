package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const recordColumns = `
	id, patient_id, doctor_id, schedule_id, start_time, end_time,
	consultation_type, status, symptoms, symptom_duration,
	current_medications, attachments, cancelled_by, cancel_reason,
	cancellation_type, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec              Record
		endTime          *time.Time
		cancelledBy      *string
		cancelReason     *string
		cancellationType *string
	)

	err := row.Scan(
		&rec.ID,
		&rec.PatientID,
		&rec.DoctorID,
		&rec.ScheduleID,
		&rec.StartTime,
		&endTime,
		&rec.ConsultationType,
		&rec.Status,
		&rec.HealthConcerns.Symptoms,
		&rec.HealthConcerns.Duration,
		&rec.HealthConcerns.CurrentMedications,
		&rec.HealthConcerns.Attachments,
		&cancelledBy,
		&cancelReason,
		&cancellationType,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.EndTime = endTime
	if cancelledBy != nil {
		rec.CancelInfo = &CancelInfo{
			CancelledBy: CancelActor(*cancelledBy),
		}
		if cancelReason != nil {
			rec.CancelInfo.Reason = *cancelReason
		}
		if cancellationType != nil {
			rec.CancelInfo.Type = CancellationType(*cancellationType)
		}
	}
	return &rec, nil
}

func (s *PgStore) Create(ctx context.Context, rec *Record) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO consultations (
			id, patient_id, doctor_id, schedule_id, start_time,
			consultation_type, status, symptoms, symptom_duration,
			current_medications, attachments, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+recordColumns+`
	`, rec.ID, rec.PatientID, rec.DoctorID, rec.ScheduleID, rec.StartTime,
		rec.ConsultationType, rec.Status,
		rec.HealthConcerns.Symptoms, rec.HealthConcerns.Duration,
		nonNilStrings(rec.HealthConcerns.CurrentMedications),
		nonNilStrings(rec.HealthConcerns.Attachments))

	stored, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("insert consultation: %w", err)
	}
	return stored, nil
}

func (s *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM consultations
		WHERE id = $1
	`, id)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}

	notes, err := s.loadNotes(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Notes = notes
	return rec, nil
}

func (s *PgStore) loadNotes(ctx context.Context, consultationID uuid.UUID) ([]ConsultNote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, consultation_id, medications, note, advice, created_at
		FROM consultation_notes
		WHERE consultation_id = $1
		ORDER BY created_at
	`, consultationID)
	if err != nil {
		return nil, fmt.Errorf("load consult notes: %w", err)
	}
	defer rows.Close()

	var notes []ConsultNote
	for rows.Next() {
		var n ConsultNote
		if err := rows.Scan(&n.ID, &n.ConsultationID, &n.Medications, &n.Note, &n.Advice, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consult note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load consult notes: %w", err)
	}
	return notes, nil
}

// MarkCompleted is conditional on the record still being PENDING, so a
// concurrent transition surfaces as ErrNotFound rather than an overwrite.
func (s *PgStore) MarkCompleted(ctx context.Context, id uuid.UUID, endTime time.Time) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE consultations
		SET status = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING `+recordColumns+`
	`, id, StatusCompleted, endTime, StatusPending)

	return scanRecord(row)
}

func (s *PgStore) MarkCancelled(ctx context.Context, id uuid.UUID, info CancelInfo) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE consultations
		SET status = $2,
		    cancelled_by = $3,
		    cancel_reason = $4,
		    cancellation_type = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status = $6
		RETURNING `+recordColumns+`
	`, id, StatusCancelled, info.CancelledBy, info.Reason, info.Type, StatusPending)

	return scanRecord(row)
}

func (s *PgStore) AppendNote(ctx context.Context, id uuid.UUID, note ConsultNote) (*Record, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO consultation_notes (id, consultation_id, medications, note, advice, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, note.ID, id, nonNilStrings(note.Medications), note.Note, note.Advice, note.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert consult note: %w", err)
	}

	return s.FindByID(ctx, id)
}

func (s *PgStore) QueryByPatient(ctx context.Context, patientID uuid.UUID, status Status, span TimeSpan) ([]Record, error) {
	return s.queryRecords(ctx, "patient_id", patientID, status, span)
}

func (s *PgStore) QueryByDoctor(ctx context.Context, doctorID uuid.UUID, status Status, span TimeSpan) ([]Record, error) {
	return s.queryRecords(ctx, "doctor_id", doctorID, status, span)
}

func (s *PgStore) queryRecords(ctx context.Context, ownerColumn string, ownerID uuid.UUID, status Status, span TimeSpan) ([]Record, error) {
	// ownerColumn is one of two fixed identifiers, never caller input.
	sql := `
		SELECT ` + recordColumns + `
		FROM consultations
		WHERE ` + ownerColumn + ` = $1`
	args := []any{ownerID}

	if status != "" {
		args = append(args, status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !span.From.IsZero() {
		args = append(args, span.From)
		sql += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if !span.To.IsZero() {
		args = append(args, span.To)
		sql += fmt.Sprintf(" AND start_time < $%d", len(args))
	}
	sql += " ORDER BY start_time"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}

	return result, nil
}

func (s *PgStore) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, consultation_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.ConsultationID, ev.Payload, nullableTime(ev.CreatedAt))
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

// nonNilStrings maps a nil slice to an empty one. pgx encodes a nil
// []string as SQL NULL, which the NOT NULL array columns reject.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
