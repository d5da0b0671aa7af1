package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const minutesPerDay = 24 * 60

// ErrWindowConfig marks an invalid operating window configuration. Callers
// match it with errors.Is; the wrapped message carries the detail.
var ErrWindowConfig = errors.New("invalid operating window configuration")

// GenerateGrid builds the full slot sequence for one doctor's day from a set
// of operating windows. Windows must be non-empty, within the day, and
// non-overlapping, and slotDuration must evenly divide each window.
func GenerateGrid(doctorID uuid.UUID, date time.Time, windows []OperatingWindow, slotDuration time.Duration) (*SlotGrid, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no windows given", ErrWindowConfig)
	}
	if slotDuration <= 0 || slotDuration%time.Minute != 0 {
		return nil, fmt.Errorf("%w: slot duration %s must be a positive whole number of minutes", ErrWindowConfig, slotDuration)
	}

	sorted := make([]OperatingWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartMinute < sorted[j].StartMinute
	})

	slotMinutes := int(slotDuration / time.Minute)
	day := DayOf(date)

	var slots []TimeSlot
	prevEnd := -1
	for _, w := range sorted {
		if w.StartMinute < 0 || w.EndMinute > minutesPerDay || w.StartMinute >= w.EndMinute {
			return nil, fmt.Errorf("%w: window %s-%s is not a valid span within the day",
				ErrWindowConfig, minuteLabel(w.StartMinute), minuteLabel(w.EndMinute))
		}
		if w.StartMinute < prevEnd {
			return nil, fmt.Errorf("%w: window starting at %s overlaps the previous window",
				ErrWindowConfig, minuteLabel(w.StartMinute))
		}
		if (w.EndMinute-w.StartMinute)%slotMinutes != 0 {
			return nil, fmt.Errorf("%w: slot duration %s does not evenly divide window %s-%s",
				ErrWindowConfig, slotDuration, minuteLabel(w.StartMinute), minuteLabel(w.EndMinute))
		}
		prevEnd = w.EndMinute

		for m := w.StartMinute; m < w.EndMinute; m += slotMinutes {
			start := day.Add(time.Duration(m) * time.Minute)
			slots = append(slots, TimeSlot{
				StartTime: start,
				EndTime:   start.Add(slotDuration),
			})
		}
	}

	return &SlotGrid{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		Date:         day,
		SlotDuration: slotDuration,
		Slots:        slots,
	}, nil
}

// ParseWindows parses a comma separated list of HH:MM-HH:MM spans, the form
// used by the OPERATING_WINDOWS configuration key.
func ParseWindows(raw string) ([]OperatingWindow, error) {
	parts := strings.Split(raw, ",")
	windows := make([]OperatingWindow, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: window %q is not of the form HH:MM-HH:MM", ErrWindowConfig, part)
		}
		start, err := parseMinute(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("%w: window %q: %v", ErrWindowConfig, part, err)
		}
		end, err := parseMinute(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("%w: window %q: %v", ErrWindowConfig, part, err)
		}
		windows = append(windows, OperatingWindow{StartMinute: start, EndMinute: end})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no windows given", ErrWindowConfig)
	}
	return windows, nil
}

func parseMinute(s string) (int, error) {
	s = strings.TrimSpace(s)
	// time.Parse rejects 24:00, the only way to express end-of-day.
	if s == "24:00" {
		return minutesPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minuteLabel(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
