// Package cases manages medical cases: the records produced by the intake
// wizard, their exam-procedure join rows, assignment to a scientist, and
// the version snapshots taken on every successful edit.
package cases

import (
	"time"

	"github.com/google/uuid"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	StatusDraft      = "draft"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ValidPriority reports whether p is one of the four priority levels.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// allowedTransitions maps each status onto the statuses it may move to.
// Cancellation is reachable from every non-terminal status.
var allowedTransitions = map[string][]string{
	StatusDraft:      {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusReview, StatusCancelled},
	StatusReview:     {StatusCompleted, StatusInProgress, StatusCancelled},
}

func canTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type MedicalCase struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	HospitalID    uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DepartmentID  uuid.UUID  `db:"department_id" json:"department_id"`
	SedationID    *uuid.UUID `db:"sedation_id" json:"sedation_id,omitempty"`
	Priority      string     `db:"priority" json:"priority"`
	Status        string     `db:"status" json:"status"`
	Symptoms      string     `db:"symptoms" json:"symptoms"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	AINotes       *string    `db:"ai_notes" json:"ai_notes,omitempty"`
	Date          time.Time  `db:"date" json:"date"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	CurrentUserID *uuid.UUID `db:"current_user_id" json:"current_user_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// CaseExamProcedure links a case to one selected exam-procedure and
// carries that procedure's own status, schedule, and notes.
type CaseExamProcedure struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	HospitalID      uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	CaseID          uuid.UUID  `db:"case_id" json:"case_id"`
	ExamProcedureID uuid.UUID  `db:"exam_procedure_id" json:"exam_procedure_id"`
	Status          string     `db:"status" json:"status"`
	ScheduledAt     *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

const (
	ProcStatusPending   = "pending"
	ProcStatusScheduled = "scheduled"
	ProcStatusCompleted = "completed"
	ProcStatusCancelled = "cancelled"
)

// CaseVersion is a JSON snapshot of a case taken after each successful
// edit submission, numbered from 1 in edit order.
type CaseVersion struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CaseID    uuid.UUID `db:"case_id" json:"case_id"`
	Version   int       `db:"version" json:"version"`
	Snapshot  []byte    `db:"snapshot" json:"snapshot"`
	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
