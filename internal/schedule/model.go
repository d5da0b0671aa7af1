package schedule

import (
	"time"

	"github.com/google/uuid"
)

// TimeSlot is one fixed-duration bookable interval within a doctor's day.
// Booking a slot always disables it; a disabled slot is not necessarily
// booked (the doctor may have blocked it off).
type TimeSlot struct {
	StartTime time.Time
	EndTime   time.Time
	IsBooked  bool
	Disabled  bool
}

// SlotGrid is the full ordered slot set for one doctor on one calendar day.
// (DoctorID, Date) identifies the grid; Date is truncated to midnight UTC.
type SlotGrid struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	Date         time.Time
	SlotDuration time.Duration
	Slots        []TimeSlot
	CreatedAt    time.Time
}

// OperatingWindow is one contiguous span of bookable time within a day,
// expressed as minute offsets from midnight. A day may carry several
// disjoint windows (morning, afternoon, evening); gaps between them are
// normal.
type OperatingWindow struct {
	StartMinute int
	EndMinute   int
}

// OrphanedClaim records a claimed slot whose booking or cancellation could
// not finish cleanly. Unresolved rows are retried by the reconcile worker.
type OrphanedClaim struct {
	ID         int64
	DoctorID   uuid.UUID
	Date       time.Time
	StartTime  time.Time
	Reason     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// DayOf truncates t to its UTC day boundary, the identity key of a grid.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SlotAt returns the slot with the given start time, or nil.
func (g *SlotGrid) SlotAt(startTime time.Time) *TimeSlot {
	for i := range g.Slots {
		if g.Slots[i].StartTime.Equal(startTime) {
			return &g.Slots[i]
		}
	}
	return nil
}
