package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curelink/consultation-booking/internal/schedule"
)

// Lifecycle drives a consultation's status machine: PENDING is the only
// live state, COMPLETED and CANCELLED are terminal. Cancellation also
// returns the claimed slot to the pool.
type Lifecycle struct {
	records   Store
	schedules schedule.Store
	retries   int
	log       zerolog.Logger
}

func NewLifecycle(records Store, schedules schedule.Store, releaseRetries int, log zerolog.Logger) *Lifecycle {
	if releaseRetries < 1 {
		releaseRetries = 1
	}
	return &Lifecycle{
		records:   records,
		schedules: schedules,
		retries:   releaseRetries,
		log:       log,
	}
}

// Complete moves a PENDING consultation to COMPLETED and stamps the end
// time. Calling it on a terminal record fails with ErrInvalidTransition.
func (l *Lifecycle) Complete(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := l.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	updated, err := l.records.MarkCompleted(ctx, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The record existed a moment ago; a concurrent transition won.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("complete consultation: %w", err)
	}

	writeEvent(ctx, l.records, l.log, &updated.ID, EventConsultationCompleted, map[string]any{
		"end_time": updated.EndTime,
	})
	return updated, nil
}

// Cancel moves a PENDING consultation to CANCELLED, records who cancelled
// and why, and releases the slot so the capacity returns to the pool. A
// release that keeps failing is queued as an orphaned claim; the status
// write stands either way.
func (l *Lifecycle) Cancel(ctx context.Context, id uuid.UUID, actor CancelActor, reason string, cancellationType CancellationType) (*Record, error) {
	rec, err := l.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	info := CancelInfo{
		CancelledBy: actor,
		Reason:      reason,
		Type:        cancellationType,
	}
	updated, err := l.records.MarkCancelled(ctx, id, info)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel consultation: %w", err)
	}

	l.releaseCancelledSlot(ctx, updated)

	writeEvent(ctx, l.records, l.log, &updated.ID, EventConsultationCancelled, map[string]any{
		"cancelled_by":      string(actor),
		"reason":            reason,
		"cancellation_type": string(cancellationType),
	})
	return updated, nil
}

func (l *Lifecycle) releaseCancelledSlot(ctx context.Context, rec *Record) {
	day := schedule.DayOf(rec.StartTime)

	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	if releaseWithRetry(relCtx, l.schedules, l.log, l.retries, rec.DoctorID, day, rec.StartTime) {
		return
	}

	l.log.Error().
		Str("consultation_id", rec.ID.String()).
		Str("doctor_id", rec.DoctorID.String()).
		Time("start_time", rec.StartTime).
		Msg("cancelled consultation's slot not released, queued for reconciliation")

	err := l.schedules.RecordOrphanedClaim(relCtx, rec.DoctorID, day, rec.StartTime, "cancellation release failed")
	if err != nil {
		l.log.Error().Err(err).
			Str("consultation_id", rec.ID.String()).
			Msg("failed to record orphaned claim; slot capacity is leaked")
	}
}

// AddNote attaches a consult note to a live consultation. The status is
// unchanged; terminal records reject new notes.
func (l *Lifecycle) AddNote(ctx context.Context, id uuid.UUID, medications []string, note, advice string) (*Record, error) {
	rec, err := l.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	n := ConsultNote{
		ID:             uuid.New(),
		ConsultationID: id,
		Medications:    nonNilStrings(medications),
		Note:           note,
		Advice:         advice,
		CreatedAt:      time.Now().UTC(),
	}
	updated, err := l.records.AppendNote(ctx, id, n)
	if err != nil {
		return nil, fmt.Errorf("append consult note: %w", err)
	}
	return updated, nil
}

// Get loads a consultation with its notes.
func (l *Lifecycle) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return l.records.FindByID(ctx, id)
}

// ListByPatient returns a patient's consultations filtered by status (empty
// = any) and span.
func (l *Lifecycle) ListByPatient(ctx context.Context, patientID uuid.UUID, status Status, span TimeSpan) ([]Record, error) {
	return l.records.QueryByPatient(ctx, patientID, status, span)
}

// ListByDoctor returns a doctor's consultations filtered by status and span.
func (l *Lifecycle) ListByDoctor(ctx context.Context, doctorID uuid.UUID, status Status, span TimeSpan) ([]Record, error) {
	return l.records.QueryByDoctor(ctx, doctorID, status, span)
}
