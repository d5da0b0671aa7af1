package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSlotUnavailable means the requested slot does not exist or is
	// already booked or disabled. Expected under contention; the caller
	// should offer another time.
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrSlotNotFound means a release targeted a slot that is not
	// currently claimed.
	ErrSlotNotFound = errors.New("claimed slot not found")

	ErrGridNotFound = errors.New("schedule not found")
	ErrGridExists   = errors.New("schedule already exists for this doctor and date")
)

// Store persists slot grids. ClaimSlot and ReleaseSlot are the contended
// operations and must be single atomic conditional updates at the storage
// layer; everything else is plain reads and bulk writes.
type Store interface {
	// CreateGrid persists a generated grid wholesale. Fails with
	// ErrGridExists if the doctor already has a grid for that date.
	CreateGrid(ctx context.Context, grid *SlotGrid) error

	// DeleteGridsForDoctor removes all of a doctor's grids; used when
	// availability is re-seeded wholesale.
	DeleteGridsForDoctor(ctx context.Context, doctorID uuid.UUID) error

	// ClaimSlot atomically marks the slot at (doctorID, date, startTime)
	// booked and disabled, provided it is currently neither. Returns the
	// grid id consumed, or ErrSlotUnavailable with no side effect.
	ClaimSlot(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time) (uuid.UUID, error)

	// ReleaseSlot resets a claimed slot's flags. Compensation for a failed
	// booking, and the capacity return on cancellation.
	ReleaseSlot(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time) error

	// ListWindow returns the grids for [fromDate, toDate], ascending by date.
	ListWindow(ctx context.Context, doctorID uuid.UUID, fromDate, toDate time.Time) ([]SlotGrid, error)

	// Orphaned claim bookkeeping for the reconcile worker.
	RecordOrphanedClaim(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time, reason string) error
	FindUnresolvedOrphans(ctx context.Context, limit int) ([]OrphanedClaim, error)
	ResolveOrphanedClaim(ctx context.Context, id int64) error
}
