package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curelink/consultation-booking/internal/consultation"
	"github.com/curelink/consultation-booking/internal/schedule"
)

func bookConsultationHandler(coord *consultation.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		if req.StartTime.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time is required")
			return
		}

		rec, err := coord.Book(r.Context(), consultation.BookingRequest{
			PatientID:        patientID,
			DoctorID:         doctorID,
			StartTime:        req.StartTime,
			ConsultationType: consultation.Type(req.ConsultationType),
			HealthConcerns: consultation.HealthConcerns{
				Symptoms:           req.HealthConcerns.Symptoms,
				Duration:           req.HealthConcerns.Duration,
				CurrentMedications: req.HealthConcerns.CurrentMedications,
				Attachments:        req.HealthConcerns.Attachments,
			},
		})
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toConsultationResponse(rec))
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, consultation.ErrInvalidConsultationType):
		writeError(w, http.StatusBadRequest, "invalid_consultation_type", err.Error())
	case errors.Is(err, schedule.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "this time slot is not available or has already been booked")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func getConsultationHandler(lc *consultation.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		rec, err := lc.Get(r.Context(), id)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConsultationResponse(rec))
	}
}

func completeConsultationHandler(lc *consultation.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		rec, err := lc.Complete(r.Context(), id)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConsultationResponse(rec))
	}
}

func cancelConsultationHandler(lc *consultation.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req CancelConsultationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		actor := consultation.CancelActor(req.CancelledBy)
		if actor != consultation.CancelledByPatient && actor != consultation.CancelledByDoctor {
			writeError(w, http.StatusBadRequest, "invalid_cancelled_by", "cancelled_by must be PATIENT or DOCTOR")
			return
		}

		rec, err := lc.Cancel(r.Context(), id, actor, req.Reason, consultation.CancellationType(req.CancellationType))
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConsultationResponse(rec))
	}
}

func addNoteHandler(lc *consultation.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req AddNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rec, err := lc.AddNote(r.Context(), id, req.Medications, req.Note, req.Advice)
		if err != nil {
			handleLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toConsultationResponse(rec))
	}
}

func listConsultationsHandler(lc *consultation.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		status := consultation.Status(q.Get("status"))
		span, ok := parseSpan(w, q.Get("span"))
		if !ok {
			return
		}

		var (
			recs []consultation.Record
			err  error
		)
		switch {
		case q.Get("patient_id") != "":
			patientID, perr := uuid.Parse(q.Get("patient_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			recs, err = lc.ListByPatient(r.Context(), patientID, status, span)
		case q.Get("doctor_id") != "":
			doctorID, perr := uuid.Parse(q.Get("doctor_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			recs, err = lc.ListByDoctor(r.Context(), doctorID, status, span)
		default:
			writeError(w, http.StatusBadRequest, "missing_owner", "patient_id or doctor_id is required")
			return
		}
		if err != nil {
			handleLifecycleError(w, err)
			return
		}

		resp := make([]ConsultationResponse, 0, len(recs))
		for i := range recs {
			resp = append(resp, toConsultationResponse(&recs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseSpan(w http.ResponseWriter, raw string) (consultation.TimeSpan, bool) {
	switch raw {
	case "":
		return consultation.TimeSpan{}, true
	case "upcoming":
		return consultation.UpcomingSpan(time.Now()), true
	case "past":
		return consultation.PastSpan(time.Now()), true
	default:
		writeError(w, http.StatusBadRequest, "invalid_span", "span must be upcoming or past")
		return consultation.TimeSpan{}, false
	}
}

func handleLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, consultation.ErrNotFound):
		writeError(w, http.StatusNotFound, "consultation_not_found", err.Error())
	case errors.Is(err, consultation.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_consultation_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
