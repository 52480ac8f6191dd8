// Package documents manages the files attached to medical cases. Rows
// hold metadata; bytes live in whichever storage backend is configured.
package documents

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	HospitalID  uuid.UUID `db:"hospital_id" json:"hospital_id"`
	CaseID      uuid.UUID `db:"case_id" json:"case_id"`
	// Optional link to one scheduled exam-procedure of the case.
	CaseExamProcedureID *uuid.UUID `db:"case_exam_procedure_id" json:"case_exam_procedure_id,omitempty"`
	Name                string     `db:"name" json:"name"`
	ContentType         string     `db:"content_type" json:"content_type"`
	StorageKey          string     `db:"storage_key" json:"-"`
	Size                int64      `db:"size" json:"size"`
	UploadedBy          uuid.UUID  `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}
