package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/curelink/consultation-booking/internal/redis"
	"github.com/curelink/consultation-booking/internal/schedule"
)

const (
	EventConsultationBooked    = "CONSULTATION_BOOKED"
	EventConsultationCompleted = "CONSULTATION_COMPLETED"
	EventConsultationCancelled = "CONSULTATION_CANCELLED"
	EventClaimOrphaned         = "CLAIM_ORPHANED"
)

var ErrInvalidConsultationType = errors.New("invalid consultation type")

// BookingRequest carries everything needed to reserve a slot and open a
// consultation. Patient and doctor identity is resolved upstream.
type BookingRequest struct {
	PatientID        uuid.UUID
	DoctorID         uuid.UUID
	StartTime        time.Time
	ConsultationType Type
	HealthConcerns   HealthConcerns
}

// Coordinator turns a booking request into either a fully consistent
// outcome (slot claimed and record created) or a fully absent one. The slot
// claim is the arbiter between concurrent bookings; record creation failure
// is compensated by releasing the claim.
type Coordinator struct {
	schedules schedule.Store
	records   Store
	locker    redisclient.Locker
	retries   int
	log       zerolog.Logger
}

func NewCoordinator(schedules schedule.Store, records Store, locker redisclient.Locker, compensationRetries int, log zerolog.Logger) *Coordinator {
	if compensationRetries < 1 {
		compensationRetries = 1
	}
	return &Coordinator{
		schedules: schedules,
		records:   records,
		locker:    locker,
		retries:   compensationRetries,
		log:       log,
	}
}

// Book reserves the slot at (doctor, startTime) and creates the PENDING
// record. Losing a race for the slot returns schedule.ErrSlotUnavailable
// with no side effect. If record creation fails after the claim, the claim
// is released; if the release itself keeps failing, the slot is recorded as
// an orphaned claim for the reconcile worker.
func (c *Coordinator) Book(ctx context.Context, req BookingRequest) (*Record, error) {
	if !ValidType(req.ConsultationType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConsultationType, req.ConsultationType)
	}

	startTime := req.StartTime.UTC()
	day := schedule.DayOf(startTime)

	var created *Record

	err := c.locker.WithSlotLock(ctx, req.DoctorID, startTime, func(lockCtx context.Context) error {
		gridID, err := c.schedules.ClaimSlot(lockCtx, req.DoctorID, day, startTime)
		if err != nil {
			if errors.Is(err, schedule.ErrSlotUnavailable) {
				return err
			}
			return fmt.Errorf("claim slot: %w", err)
		}

		rec := &Record{
			ID:               uuid.New(),
			PatientID:        req.PatientID,
			DoctorID:         req.DoctorID,
			ScheduleID:       gridID,
			StartTime:        startTime,
			ConsultationType: req.ConsultationType,
			Status:           StatusPending,
			HealthConcerns:   req.HealthConcerns.normalized(),
		}

		stored, err := c.records.Create(lockCtx, rec)
		if err != nil {
			c.compensateClaim(lockCtx, req.DoctorID, day, startTime, "record creation failed")
			return fmt.Errorf("create consultation: %w", err)
		}

		created = stored
		c.logEvent(lockCtx, &stored.ID, EventConsultationBooked, map[string]any{
			"patient_id": req.PatientID.String(),
			"doctor_id":  req.DoctorID.String(),
			"start_time": startTime,
			"type":       string(req.ConsultationType),
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			// A concurrent booking holds the slot; to the caller this is
			// the same "lost the race" outcome as a claimed slot.
			return nil, schedule.ErrSlotUnavailable
		}
		return nil, err
	}

	return created, nil
}

// compensateClaim undoes a claim whose downstream write failed. It keeps
// running even if the request context is already cancelled: the claim would
// otherwise hold capacity forever.
func (c *Coordinator) compensateClaim(ctx context.Context, doctorID uuid.UUID, day, startTime time.Time, cause string) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	if releaseWithRetry(relCtx, c.schedules, c.log, c.retries, doctorID, day, startTime) {
		return
	}

	reason := "booking compensation failed: " + cause
	c.log.Error().
		Str("doctor_id", doctorID.String()).
		Time("start_time", startTime).
		Str("cause", cause).
		Msg("slot claim orphaned, queued for reconciliation")

	if err := c.schedules.RecordOrphanedClaim(relCtx, doctorID, day, startTime, reason); err != nil {
		// Last resort: nothing durable recorded the leak, so the log line
		// is the alerting path.
		c.log.Error().Err(err).
			Str("doctor_id", doctorID.String()).
			Time("start_time", startTime).
			Msg("failed to record orphaned claim; slot capacity is leaked")
		return
	}
	c.logEvent(relCtx, nil, EventClaimOrphaned, map[string]any{
		"doctor_id":  doctorID.String(),
		"start_time": startTime,
		"reason":     reason,
	})
}

// releaseWithRetry attempts a bounded number of slot releases. A missing
// claim counts as released. Reports whether the slot is known free.
func releaseWithRetry(ctx context.Context, schedules schedule.Store, log zerolog.Logger, attempts int, doctorID uuid.UUID, day, startTime time.Time) bool {
	for attempt := 1; attempt <= attempts; attempt++ {
		err := schedules.ReleaseSlot(ctx, doctorID, day, startTime)
		if err == nil || errors.Is(err, schedule.ErrSlotNotFound) {
			return true
		}
		log.Warn().Err(err).
			Str("doctor_id", doctorID.String()).
			Time("start_time", startTime).
			Int("attempt", attempt).
			Msg("slot release failed")
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	return false
}

func (c *Coordinator) logEvent(ctx context.Context, consultationID *uuid.UUID, eventType string, payload map[string]any) {
	writeEvent(ctx, c.records, c.log, consultationID, eventType, payload)
}

func writeEvent(ctx context.Context, records Store, log zerolog.Logger, consultationID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:      eventType,
		ConsultationID: consultationID,
		Payload:        data,
		CreatedAt:      time.Now().UTC(),
	}

	if err := records.InsertEvent(ctx, ev); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to insert event log")
	}
}
