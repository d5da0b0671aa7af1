package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var defaultWindows = []OperatingWindow{
	{StartMinute: 9 * 60, EndMinute: 12 * 60},
	{StartMinute: 13 * 60, EndMinute: 16 * 60},
	{StartMinute: 17 * 60, EndMinute: 20 * 60},
}

func TestGenerateGrid_FullDay(t *testing.T) {
	doctorID := uuid.New()
	date := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC) // mid-day input, should normalize

	grid, err := GenerateGrid(doctorID, date, defaultWindows, 15*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3 windows x 3 hours x 4 slots per hour
	if len(grid.Slots) != 36 {
		t.Fatalf("expected 36 slots, got %d", len(grid.Slots))
	}
	if !grid.Date.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date not truncated to UTC midnight: %v", grid.Date)
	}

	first := grid.Slots[0]
	if !first.StartTime.Equal(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("first slot should start at 09:00, got %v", first.StartTime)
	}
	if !first.EndTime.Equal(first.StartTime.Add(15 * time.Minute)) {
		t.Errorf("slot end should be start + duration, got %v", first.EndTime)
	}

	last := grid.Slots[len(grid.Slots)-1]
	if !last.StartTime.Equal(time.Date(2024, 6, 1, 19, 45, 0, 0, time.UTC)) {
		t.Errorf("last slot should start at 19:45, got %v", last.StartTime)
	}

	for _, s := range grid.Slots {
		if s.IsBooked || s.Disabled {
			t.Fatalf("freshly generated slot at %v should be unbooked and enabled", s.StartTime)
		}
	}
}

func TestGenerateGrid_SlotsAscendingAndUnique(t *testing.T) {
	// Windows given out of order; generation sorts them.
	windows := []OperatingWindow{
		{StartMinute: 17 * 60, EndMinute: 18 * 60},
		{StartMinute: 9 * 60, EndMinute: 10 * 60},
	}

	grid, err := GenerateGrid(uuid.New(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), windows, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[time.Time]bool{}
	for i, s := range grid.Slots {
		if seen[s.StartTime] {
			t.Fatalf("duplicate slot start time %v", s.StartTime)
		}
		seen[s.StartTime] = true
		if i > 0 && !grid.Slots[i-1].StartTime.Before(s.StartTime) {
			t.Fatalf("slots not in ascending order at index %d", i)
		}
	}
}

func TestGenerateGrid_WindowGapIsNotAnError(t *testing.T) {
	windows := []OperatingWindow{
		{StartMinute: 9 * 60, EndMinute: 10 * 60},
		{StartMinute: 15 * 60, EndMinute: 16 * 60},
	}

	grid, err := GenerateGrid(uuid.New(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), windows, 15*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grid.Slots) != 8 {
		t.Fatalf("expected 8 slots across two disjoint windows, got %d", len(grid.Slots))
	}
}

func TestGenerateGrid_Invalid(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		windows  []OperatingWindow
		duration time.Duration
	}{
		{"no windows", nil, 15 * time.Minute},
		{"overlapping windows", []OperatingWindow{
			{StartMinute: 9 * 60, EndMinute: 11 * 60},
			{StartMinute: 10 * 60, EndMinute: 12 * 60},
		}, 15 * time.Minute},
		{"inverted window", []OperatingWindow{
			{StartMinute: 12 * 60, EndMinute: 9 * 60},
		}, 15 * time.Minute},
		{"window past midnight", []OperatingWindow{
			{StartMinute: 23 * 60, EndMinute: 25 * 60},
		}, 15 * time.Minute},
		{"duration does not divide window", []OperatingWindow{
			{StartMinute: 9 * 60, EndMinute: 10 * 60},
		}, 25 * time.Minute},
		{"zero duration", []OperatingWindow{
			{StartMinute: 9 * 60, EndMinute: 10 * 60},
		}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateGrid(uuid.New(), date, tc.windows, tc.duration)
			if !errors.Is(err, ErrWindowConfig) {
				t.Fatalf("expected ErrWindowConfig, got %v", err)
			}
		})
	}
}

func TestParseWindows(t *testing.T) {
	windows, err := ParseWindows("09:00-12:00, 13:00-16:00,17:00-20:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	if windows[0].StartMinute != 9*60 || windows[0].EndMinute != 12*60 {
		t.Errorf("first window mismatch: %+v", windows[0])
	}

	if _, err := ParseWindows("not-a-window"); !errors.Is(err, ErrWindowConfig) {
		t.Errorf("expected ErrWindowConfig for malformed input, got %v", err)
	}
	if _, err := ParseWindows(""); !errors.Is(err, ErrWindowConfig) {
		t.Errorf("expected ErrWindowConfig for empty input, got %v", err)
	}
}

func TestParseWindows_EndOfDay(t *testing.T) {
	windows, err := ParseWindows("22:00-24:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if windows[0].EndMinute != minutesPerDay {
		t.Fatalf("24:00 should parse to minute %d, got %d", minutesPerDay, windows[0].EndMinute)
	}

	grid, err := GenerateGrid(uuid.New(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), windows, 30*time.Minute)
	if err != nil {
		t.Fatalf("generate grid: %v", err)
	}
	if len(grid.Slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(grid.Slots))
	}
	last := grid.Slots[len(grid.Slots)-1]
	if !last.EndTime.Equal(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last slot should end at midnight, got %v", last.EndTime)
	}
}

func TestDayOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2024, 6, 1, 2, 30, 0, 0, loc) // 2024-05-31T21:30Z

	got := DayOf(in)
	want := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DayOf(%v) = %v, want %v", in, got, want)
	}
}

func TestSlotAt(t *testing.T) {
	grid, err := GenerateGrid(uuid.New(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		[]OperatingWindow{{StartMinute: 9 * 60, EndMinute: 10 * 60}}, 15*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC)
	slot := grid.SlotAt(at)
	if slot == nil {
		t.Fatalf("expected slot at %v", at)
	}
	if grid.SlotAt(at.Add(time.Minute)) != nil {
		t.Errorf("expected no slot off the grid boundary")
	}
}
