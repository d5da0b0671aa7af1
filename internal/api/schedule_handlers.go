package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curelink/consultation-booking/internal/schedule"
)

func listScheduleHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorParam(w, r)
		if !ok {
			return
		}

		// Default window: today plus the next seven days.
		from := schedule.DayOf(time.Now())
		to := from.AddDate(0, 0, 7)

		q := r.URL.Query()
		if raw := q.Get("from"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
				return
			}
			from = parsed
		}
		if raw := q.Get("to"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
				return
			}
			to = parsed
		}

		grids, err := store.ListWindow(r.Context(), doctorID, from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]ScheduleResponse, 0, len(grids))
		for i := range grids {
			resp = append(resp, toScheduleResponse(&grids[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func publishScheduleHandler(store schedule.Store, defaultDuration time.Duration, defaultWindows []schedule.OperatingWindow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseDoctorParam(w, r)
		if !ok {
			return
		}

		var req PublishScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		duration := defaultDuration
		if req.SlotDurationMinutes > 0 {
			duration = time.Duration(req.SlotDurationMinutes) * time.Minute
		}

		windows := defaultWindows
		if len(req.Windows) > 0 {
			windows = nil
			for _, wp := range req.Windows {
				parsed, err := schedule.ParseWindows(wp.Start + "-" + wp.End)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_windows", err.Error())
					return
				}
				windows = append(windows, parsed...)
			}
		}

		grid, err := schedule.GenerateGrid(doctorID, date, windows, duration)
		if err != nil {
			if errors.Is(err, schedule.ErrWindowConfig) {
				writeError(w, http.StatusBadRequest, "invalid_windows", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		if err := store.CreateGrid(r.Context(), grid); err != nil {
			if errors.Is(err, schedule.ErrGridExists) {
				writeError(w, http.StatusConflict, "schedule_exists", "a schedule already exists for this doctor and date")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, toScheduleResponse(grid))
	}
}

func parseDoctorParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
		return uuid.Nil, false
	}
	return doctorID, true
}
