// Package catalog holds the hospital-scoped reference data selected during
// case intake: departments, exams, procedures, modalities, sedations, and
// the exam-procedure join rows. All five simple entities share one shape
// and one generic CRUD path configured per entity kind instead of five
// near-identical controllers.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a reference entity type and selects its table.
type Kind string

const (
	KindDepartment Kind = "department"
	KindExam       Kind = "exam"
	KindProcedure  Kind = "procedure"
	KindModality   Kind = "modality"
	KindSedation   Kind = "sedation"
)

// Kinds lists every reference entity kind, in route registration order.
var Kinds = []Kind{KindDepartment, KindExam, KindProcedure, KindModality, KindSedation}

// tableFor maps kinds onto their tables. Kind values are never
// interpolated from user input; routes are registered from Kinds above.
var tableFor = map[Kind]string{
	KindDepartment: "department",
	KindExam:       "exam",
	KindProcedure:  "procedure",
	KindModality:   "modality",
	KindSedation:   "sedation",
}

// Route returns the URL path segment for a kind.
func (k Kind) Route() string {
	if k == KindModality {
		return "modalities"
	}
	return string(k) + "s"
}

// Valid reports whether the kind is one of the known reference kinds.
func (k Kind) Valid() bool {
	_, ok := tableFor[k]
	return ok
}

// Ref is the shared shape of all five reference entities.
type Ref struct {
	ID          uuid.UUID `db:"id" json:"id"`
	HospitalID  uuid.UUID `db:"hospital_id" json:"hospital_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExamProcedure joins an exam with a procedure (optionally a modality)
// into the unit selected during intake. Immutable reference data: rows
// are created and deleted, never edited.
type ExamProcedure struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	HospitalID  uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	ExamID      uuid.UUID  `db:"exam_id" json:"exam_id"`
	ProcedureID uuid.UUID  `db:"procedure_id" json:"procedure_id"`
	ModalityID  *uuid.UUID `db:"modality_id" json:"modality_id,omitempty"`
	Name        string     `db:"name" json:"name"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
