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

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) CreateGrid(ctx context.Context, grid *SlotGrid) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create grid: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO schedules (id, doctor_id, date, slot_duration_minutes, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, grid.ID, grid.DoctorID, grid.Date, int(grid.SlotDuration/time.Minute))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrGridExists
		}
		return fmt.Errorf("insert schedule: %w", err)
	}

	rows := make([][]any, 0, len(grid.Slots))
	for _, slot := range grid.Slots {
		rows = append(rows, []any{grid.ID, slot.StartTime, slot.EndTime, slot.IsBooked, slot.Disabled})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"schedule_slots"},
		[]string{"schedule_id", "start_time", "end_time", "is_booked", "disabled"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert schedule slots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create grid: %w", err)
	}
	return nil
}

func (s *PgStore) DeleteGridsForDoctor(ctx context.Context, doctorID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM schedules
		WHERE doctor_id = $1
	`, doctorID)
	if err != nil {
		return fmt.Errorf("delete grids: %w", err)
	}
	return nil
}

// ClaimSlot is the one contended write in the system. The claim predicate
// (not booked, not disabled) and the flag flip happen in a single UPDATE, so
// of any number of concurrent claimants for the same slot exactly one sees
// a row and the rest get ErrSlotUnavailable.
func (s *PgStore) ClaimSlot(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time) (uuid.UUID, error) {
	var gridID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		UPDATE schedule_slots ss
		SET is_booked = true,
		    disabled = true
		FROM schedules s
		WHERE ss.schedule_id = s.id
		  AND s.doctor_id = $1
		  AND s.date = $2
		  AND ss.start_time = $3
		  AND NOT ss.is_booked
		  AND NOT ss.disabled
		RETURNING s.id
	`, doctorID, DayOf(date), startTime).Scan(&gridID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrSlotUnavailable
		}
		return uuid.Nil, fmt.Errorf("claim slot: %w", err)
	}
	return gridID, nil
}

func (s *PgStore) ReleaseSlot(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE schedule_slots ss
		SET is_booked = false,
		    disabled = false
		FROM schedules s
		WHERE ss.schedule_id = s.id
		  AND s.doctor_id = $1
		  AND s.date = $2
		  AND ss.start_time = $3
		  AND ss.is_booked
	`, doctorID, DayOf(date), startTime)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (s *PgStore) ListWindow(ctx context.Context, doctorID uuid.UUID, fromDate, toDate time.Time) ([]SlotGrid, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.doctor_id, s.date, s.slot_duration_minutes, s.created_at,
		       ss.start_time, ss.end_time, ss.is_booked, ss.disabled
		FROM schedules s
		JOIN schedule_slots ss ON ss.schedule_id = s.id
		WHERE s.doctor_id = $1
		  AND s.date >= $2
		  AND s.date <= $3
		ORDER BY s.date, ss.start_time
	`, doctorID, DayOf(fromDate), DayOf(toDate))
	if err != nil {
		return nil, fmt.Errorf("list schedule window: %w", err)
	}
	defer rows.Close()

	var grids []SlotGrid
	var current *SlotGrid
	for rows.Next() {
		var (
			gridID      uuid.UUID
			docID       uuid.UUID
			date        time.Time
			slotMinutes int
			createdAt   time.Time
			slot        TimeSlot
		)
		err := rows.Scan(&gridID, &docID, &date, &slotMinutes, &createdAt,
			&slot.StartTime, &slot.EndTime, &slot.IsBooked, &slot.Disabled)
		if err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}

		if current == nil || current.ID != gridID {
			grids = append(grids, SlotGrid{
				ID:           gridID,
				DoctorID:     docID,
				Date:         DayOf(date),
				SlotDuration: time.Duration(slotMinutes) * time.Minute,
				CreatedAt:    createdAt,
			})
			current = &grids[len(grids)-1]
		}
		current.Slots = append(current.Slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list schedule window: %w", err)
	}

	return grids, nil
}

func (s *PgStore) RecordOrphanedClaim(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time, reason string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orphaned_claims (doctor_id, date, start_time, reason)
		VALUES ($1, $2, $3, $4)
	`, doctorID, DayOf(date), startTime, reason)
	if err != nil {
		return fmt.Errorf("record orphaned claim: %w", err)
	}
	return nil
}

func (s *PgStore) FindUnresolvedOrphans(ctx context.Context, limit int) ([]OrphanedClaim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, date, start_time, reason, created_at, resolved_at
		FROM orphaned_claims
		WHERE resolved_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("find orphaned claims: %w", err)
	}
	defer rows.Close()

	var result []OrphanedClaim
	for rows.Next() {
		var o OrphanedClaim
		err := rows.Scan(&o.ID, &o.DoctorID, &o.Date, &o.StartTime, &o.Reason, &o.CreatedAt, &o.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("scan orphaned claim: %w", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find orphaned claims: %w", err)
	}

	return result, nil
}

func (s *PgStore) ResolveOrphanedClaim(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE orphaned_claims
		SET resolved_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("resolve orphaned claim: %w", err)
	}
	return nil
}
