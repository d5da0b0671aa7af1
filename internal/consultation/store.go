package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("consultation not found")

	// ErrInvalidTransition means a lifecycle operation targeted a record
	// already in a terminal state.
	ErrInvalidTransition = errors.New("invalid consultation status transition")
)

// TimeSpan bounds a query on consultation start times. A zero bound is open.
type TimeSpan struct {
	From time.Time
	To   time.Time
}

// UpcomingSpan covers today's day boundary onwards.
func UpcomingSpan(now time.Time) TimeSpan {
	return TimeSpan{From: dayStart(now)}
}

// PastSpan covers everything before today's day boundary.
func PastSpan(now time.Time) TimeSpan {
	return TimeSpan{To: dayStart(now)}
}

func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Store persists consultation records. Status transitions are conditional
// on the current status so that lost races surface as no-row results rather
// than silent overwrites.
type Store interface {
	// Create persists a new record. The caller owns the slot claim that
	// backs it.
	Create(ctx context.Context, rec *Record) (*Record, error)

	// FindByID loads a record with its notes.
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// MarkCompleted sets status COMPLETED and the end time, provided the
	// record is still PENDING. Returns ErrNotFound when no row matched.
	MarkCompleted(ctx context.Context, id uuid.UUID, endTime time.Time) (*Record, error)

	// MarkCancelled sets status CANCELLED and the cancellation details,
	// provided the record is still PENDING.
	MarkCancelled(ctx context.Context, id uuid.UUID, info CancelInfo) (*Record, error)

	// AppendNote attaches a note to an existing record.
	AppendNote(ctx context.Context, id uuid.UUID, note ConsultNote) (*Record, error)

	// QueryByPatient and QueryByDoctor list records filtered by status
	// (empty = any) and start-time span, ascending by start time.
	QueryByPatient(ctx context.Context, patientID uuid.UUID, status Status, span TimeSpan) ([]Record, error)
	QueryByDoctor(ctx context.Context, doctorID uuid.UUID, status Status, span TimeSpan) ([]Record, error)

	// InsertEvent writes a booking/lifecycle event, best effort.
	InsertEvent(ctx context.Context, ev EventLog) error
}

// EventLog mirrors the event_logs table; written best effort on every
// booking decision.
type EventLog struct {
	ID             int64
	EventType      string
	ConsultationID *uuid.UUID
	Payload        []byte
	CreatedAt      time.Time
}
