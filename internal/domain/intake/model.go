// Package intake implements the three-step case creation wizard. Partial
// state lives in durable draft rows keyed by hospital and technician, so
// nothing about an abandoned wizard survives beyond its draft row and no
// medical case exists until the final submission commits.
package intake

import (
	"time"

	"github.com/google/uuid"
)

// Draft states. Submission is terminal: the draft row is deleted inside
// the same transaction that creates the case, so there is no submitted
// state to re-enter.
const (
	StateStep1Pending = "step1_pending"
	StateStep2Pending = "step2_pending"
	StateStep3Pending = "step3_pending"
)

// Draft holds the wizard's scratch state. Step fields are pointers:
// nil means the step has not provided them yet. CaseID is set only on
// drafts opened to edit an existing case.
type Draft struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	HospitalID   uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	TechnicianID uuid.UUID  `db:"technician_id" json:"technician_id"`
	CaseID       *uuid.UUID `db:"case_id" json:"case_id,omitempty"`
	State        string     `db:"state" json:"state"`

	PatientID *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Date      *time.Time `db:"date" json:"date,omitempty"`
	Symptoms  *string    `db:"symptoms" json:"symptoms,omitempty"`

	// Recommendation caches the adapter output from step 1 as JSON so
	// step 2 can present defaults without calling the adapter again.
	Recommendation []byte `db:"recommendation" json:"recommendation,omitempty"`

	DepartmentID     *uuid.UUID  `db:"department_id" json:"department_id,omitempty"`
	SedationID       *uuid.UUID  `db:"sedation_id" json:"sedation_id,omitempty"`
	Priority         *string     `db:"priority" json:"priority,omitempty"`
	ExamProcedureIDs []uuid.UUID `db:"exam_procedure_ids" json:"exam_procedure_ids,omitempty"`

	TechnicianNotes *string `db:"technician_notes" json:"technician_notes,omitempty"`
	AINotes         *string `db:"ai_notes" json:"ai_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
