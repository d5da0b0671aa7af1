package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/curelink/consultation-booking/internal/consultation"
	"github.com/curelink/consultation-booking/internal/schedule"
)

type HealthConcernsPayload struct {
	Symptoms           string   `json:"symptoms"`
	Duration           string   `json:"duration"`
	CurrentMedications []string `json:"current_medications,omitempty"`
	Attachments        []string `json:"attachments,omitempty"`
}

type BookConsultationRequest struct {
	PatientID        string                `json:"patient_id"`
	DoctorID         string                `json:"doctor_id"`
	StartTime        time.Time             `json:"start_time"`
	ConsultationType string                `json:"consultation_type"`
	HealthConcerns   HealthConcernsPayload `json:"health_concerns"`
}

type CancelConsultationRequest struct {
	CancelledBy      string `json:"cancelled_by"`
	Reason           string `json:"reason"`
	CancellationType string `json:"cancellation_type"`
}

type AddNoteRequest struct {
	Medications []string `json:"medications,omitempty"`
	Note        string   `json:"note"`
	Advice      string   `json:"advice,omitempty"`
}

type ConsultNoteResponse struct {
	ID          uuid.UUID `json:"id"`
	Medications []string  `json:"medications,omitempty"`
	Note        string    `json:"note"`
	Advice      string    `json:"advice,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CancelInfoResponse struct {
	CancelledBy      string `json:"cancelled_by"`
	Reason           string `json:"reason,omitempty"`
	CancellationType string `json:"cancellation_type"`
}

type ConsultationResponse struct {
	ID               uuid.UUID             `json:"id"`
	PatientID        uuid.UUID             `json:"patient_id"`
	DoctorID         uuid.UUID             `json:"doctor_id"`
	ScheduleID       uuid.UUID             `json:"schedule_id"`
	StartTime        time.Time             `json:"start_time"`
	EndTime          *time.Time            `json:"end_time,omitempty"`
	ConsultationType string                `json:"consultation_type"`
	Status           string                `json:"status"`
	HealthConcerns   HealthConcernsPayload `json:"health_concerns"`
	Notes            []ConsultNoteResponse `json:"notes,omitempty"`
	CancelInfo       *CancelInfoResponse   `json:"cancel_info,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

func toConsultationResponse(rec *consultation.Record) ConsultationResponse {
	resp := ConsultationResponse{
		ID:               rec.ID,
		PatientID:        rec.PatientID,
		DoctorID:         rec.DoctorID,
		ScheduleID:       rec.ScheduleID,
		StartTime:        rec.StartTime,
		EndTime:          rec.EndTime,
		ConsultationType: string(rec.ConsultationType),
		Status:           string(rec.Status),
		HealthConcerns: HealthConcernsPayload{
			Symptoms:           rec.HealthConcerns.Symptoms,
			Duration:           rec.HealthConcerns.Duration,
			CurrentMedications: rec.HealthConcerns.CurrentMedications,
			Attachments:        rec.HealthConcerns.Attachments,
		},
		CreatedAt: rec.CreatedAt,
	}
	for _, n := range rec.Notes {
		resp.Notes = append(resp.Notes, ConsultNoteResponse{
			ID:          n.ID,
			Medications: n.Medications,
			Note:        n.Note,
			Advice:      n.Advice,
			CreatedAt:   n.CreatedAt,
		})
	}
	if rec.CancelInfo != nil {
		resp.CancelInfo = &CancelInfoResponse{
			CancelledBy:      string(rec.CancelInfo.CancelledBy),
			Reason:           rec.CancelInfo.Reason,
			CancellationType: string(rec.CancelInfo.Type),
		}
	}
	return resp
}

type WindowPayload struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

type PublishScheduleRequest struct {
	Date                string          `json:"date"` // YYYY-MM-DD
	Windows             []WindowPayload `json:"windows,omitempty"`
	SlotDurationMinutes int             `json:"slot_duration_minutes,omitempty"`
}

type SlotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
	Disabled  bool      `json:"disabled"`
}

type ScheduleResponse struct {
	ID                  uuid.UUID      `json:"id"`
	DoctorID            uuid.UUID      `json:"doctor_id"`
	Date                string         `json:"date"`
	SlotDurationMinutes int            `json:"slot_duration_minutes"`
	Slots               []SlotResponse `json:"slots"`
}

func toScheduleResponse(grid *schedule.SlotGrid) ScheduleResponse {
	resp := ScheduleResponse{
		ID:                  grid.ID,
		DoctorID:            grid.DoctorID,
		Date:                grid.Date.Format("2006-01-02"),
		SlotDurationMinutes: int(grid.SlotDuration.Minutes()),
	}
	for _, s := range grid.Slots {
		resp.Slots = append(resp.Slots, SlotResponse{
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			IsBooked:  s.IsBooked,
			Disabled:  s.Disabled,
		})
	}
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
