package consultation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further status transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Type string

const (
	TypeChat  Type = "CHAT"
	TypeVideo Type = "VIDEO"
	TypeAudio Type = "AUDIO"
)

func ValidType(t Type) bool {
	switch t {
	case TypeChat, TypeVideo, TypeAudio:
		return true
	}
	return false
}

// CancelActor identifies who triggered a cancellation.
type CancelActor string

const (
	CancelledByPatient CancelActor = "PATIENT"
	CancelledByDoctor  CancelActor = "DOCTOR"
)

type CancellationType string

const (
	CancelPatientRequest    CancellationType = "PATIENT_REQUEST"
	CancelPatientNoShow     CancellationType = "PATIENT_NO_SHOW"
	CancelDoctorUnavailable CancellationType = "DOCTOR_UNAVAILABLE"
)

// HealthConcerns is the patient's intake, captured once at booking time and
// immutable afterwards.
type HealthConcerns struct {
	Symptoms           string
	Duration           string
	CurrentMedications []string
	Attachments        []string
}

// normalized maps nil slice fields to empty ones, the shape the storage
// layer's NOT NULL array columns expect.
func (h HealthConcerns) normalized() HealthConcerns {
	h.CurrentMedications = nonNilStrings(h.CurrentMedications)
	h.Attachments = nonNilStrings(h.Attachments)
	return h
}

// ConsultNote is one entry the doctor attaches during a consultation.
type ConsultNote struct {
	ID             uuid.UUID
	ConsultationID uuid.UUID
	Medications    []string
	Note           string
	Advice         string
	CreatedAt      time.Time
}

// CancelInfo is populated exactly once, when a consultation is cancelled.
type CancelInfo struct {
	CancelledBy CancelActor
	Reason      string
	Type        CancellationType
}

// Record is the outcome of a successful booking: it links patient, doctor
// and the consumed schedule slot, and carries the lifecycle status.
type Record struct {
	ID               uuid.UUID
	PatientID        uuid.UUID
	DoctorID         uuid.UUID
	ScheduleID       uuid.UUID
	StartTime        time.Time
	EndTime          *time.Time
	ConsultationType Type
	Status           Status
	HealthConcerns   HealthConcerns
	Notes            []ConsultNote
	CancelInfo       *CancelInfo
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
