package consultation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/curelink/consultation-booking/internal/redis"
	"github.com/curelink/consultation-booking/internal/schedule"
)

// In-memory fakes for the coordinator and lifecycle tests. The schedule
// fake mirrors the storage contract precisely: ClaimSlot is a mutex-guarded
// compare-and-set, so concurrent bookers race exactly as they would against
// the conditional UPDATE.

type fakeScheduleStore struct {
	mu      sync.Mutex
	grids   map[string]*schedule.SlotGrid // doctor/date key
	orphans []schedule.OrphanedClaim
	nextID  int64

	failRelease error // injected release failure
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{grids: make(map[string]*schedule.SlotGrid)}
}

func gridKey(doctorID uuid.UUID, date time.Time) string {
	return doctorID.String() + "/" + schedule.DayOf(date).Format("2006-01-02")
}

func (f *fakeScheduleStore) CreateGrid(ctx context.Context, grid *schedule.SlotGrid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := gridKey(grid.DoctorID, grid.Date)
	if _, ok := f.grids[key]; ok {
		return schedule.ErrGridExists
	}
	f.grids[key] = grid
	return nil
}

func (f *fakeScheduleStore) DeleteGridsForDoctor(ctx context.Context, doctorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, g := range f.grids {
		if g.DoctorID == doctorID {
			delete(f.grids, key)
		}
	}
	return nil
}

func (f *fakeScheduleStore) ClaimSlot(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.grids[gridKey(doctorID, date)]
	if !ok {
		return uuid.Nil, schedule.ErrSlotUnavailable
	}
	slot := grid.SlotAt(startTime)
	if slot == nil || slot.IsBooked || slot.Disabled {
		return uuid.Nil, schedule.ErrSlotUnavailable
	}
	slot.IsBooked = true
	slot.Disabled = true
	return grid.ID, nil
}

func (f *fakeScheduleStore) ReleaseSlot(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRelease != nil {
		return f.failRelease
	}
	grid, ok := f.grids[gridKey(doctorID, date)]
	if !ok {
		return schedule.ErrSlotNotFound
	}
	slot := grid.SlotAt(startTime)
	if slot == nil || !slot.IsBooked {
		return schedule.ErrSlotNotFound
	}
	slot.IsBooked = false
	slot.Disabled = false
	return nil
}

func (f *fakeScheduleStore) ListWindow(ctx context.Context, doctorID uuid.UUID, fromDate, toDate time.Time) ([]schedule.SlotGrid, error) {
	return nil, nil
}

func (f *fakeScheduleStore) RecordOrphanedClaim(ctx context.Context, doctorID uuid.UUID, date, startTime time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.orphans = append(f.orphans, schedule.OrphanedClaim{
		ID:        f.nextID,
		DoctorID:  doctorID,
		Date:      date,
		StartTime: startTime,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeScheduleStore) FindUnresolvedOrphans(ctx context.Context, limit int) ([]schedule.OrphanedClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]schedule.OrphanedClaim, len(f.orphans))
	copy(out, f.orphans)
	return out, nil
}

func (f *fakeScheduleStore) ResolveOrphanedClaim(ctx context.Context, id int64) error { return nil }

func (f *fakeScheduleStore) slotState(doctorID uuid.UUID, startTime time.Time) (booked, disabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.grids[gridKey(doctorID, schedule.DayOf(startTime))]
	if !ok {
		return false, false
	}
	slot := grid.SlotAt(startTime)
	if slot == nil {
		return false, false
	}
	return slot.IsBooked, slot.Disabled
}

type fakeRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	events  []EventLog

	failCreate error // injected create failure
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[uuid.UUID]*Record)}
}

func cloneRecord(rec *Record) *Record {
	c := *rec
	c.Notes = append([]ConsultNote(nil), rec.Notes...)
	if rec.CancelInfo != nil {
		ci := *rec.CancelInfo
		c.CancelInfo = &ci
	}
	if rec.EndTime != nil {
		et := *rec.EndTime
		c.EndTime = &et
	}
	return &c
}

// requireNonNil mirrors the NOT NULL array columns: a nil slice would be
// encoded as SQL NULL and rejected, so the fake rejects it too.
func requireNonNil(field string, s []string) error {
	if s == nil {
		return errors.New("null value in column " + field)
	}
	return nil
}

func (f *fakeRecordStore) Create(ctx context.Context, rec *Record) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	if err := requireNonNil("current_medications", rec.HealthConcerns.CurrentMedications); err != nil {
		return nil, err
	}
	if err := requireNonNil("attachments", rec.HealthConcerns.Attachments); err != nil {
		return nil, err
	}
	stored := cloneRecord(rec)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.records[stored.ID] = stored
	return cloneRecord(stored), nil
}

func (f *fakeRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (f *fakeRecordStore) MarkCompleted(ctx context.Context, id uuid.UUID, endTime time.Time) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.Status != StatusPending {
		return nil, ErrNotFound
	}
	rec.Status = StatusCompleted
	rec.EndTime = &endTime
	rec.UpdatedAt = time.Now()
	return cloneRecord(rec), nil
}

func (f *fakeRecordStore) MarkCancelled(ctx context.Context, id uuid.UUID, info CancelInfo) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.Status != StatusPending {
		return nil, ErrNotFound
	}
	rec.Status = StatusCancelled
	rec.CancelInfo = &info
	rec.UpdatedAt = time.Now()
	return cloneRecord(rec), nil
}

func (f *fakeRecordStore) AppendNote(ctx context.Context, id uuid.UUID, note ConsultNote) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := requireNonNil("medications", note.Medications); err != nil {
		return nil, err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Notes = append(rec.Notes, note)
	rec.UpdatedAt = time.Now()
	return cloneRecord(rec), nil
}

func (f *fakeRecordStore) QueryByPatient(ctx context.Context, patientID uuid.UUID, status Status, span TimeSpan) ([]Record, error) {
	return f.query(func(r *Record) bool { return r.PatientID == patientID }, status, span), nil
}

func (f *fakeRecordStore) QueryByDoctor(ctx context.Context, doctorID uuid.UUID, status Status, span TimeSpan) ([]Record, error) {
	return f.query(func(r *Record) bool { return r.DoctorID == doctorID }, status, span), nil
}

func (f *fakeRecordStore) query(owner func(*Record) bool, status Status, span TimeSpan) []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	for _, rec := range f.records {
		if !owner(rec) {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		if !span.From.IsZero() && rec.StartTime.Before(span.From) {
			continue
		}
		if !span.To.IsZero() && !rec.StartTime.Before(span.To) {
			continue
		}
		out = append(out, *cloneRecord(rec))
	}
	return out
}

func (f *fakeRecordStore) InsertEvent(ctx context.Context, ev EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRecordStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// memLocker is an in-process try-lock with the same semantics as the Redis
// SetNX locker: held key means ErrLockNotAcquired.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) WithSlotLock(ctx context.Context, doctorID uuid.UUID, startTime time.Time, fn func(ctx context.Context) error) error {
	key := doctorID.String() + "/" + startTime.UTC().Format(time.RFC3339)

	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}

var errStorageDown = errors.New("storage down")
