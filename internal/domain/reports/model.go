// Package reports assembles case reports and slide decks. Report content
// is built deterministically from the case graph; an optional narrative
// adapter can rewrite it, but only ever sees de-identified metadata.
package reports

import (
	"time"

	"github.com/google/uuid"
)

// Supported export formats.
const (
	FormatPDF  = "pdf"
	FormatDocx = "docx"
	FormatRTF  = "rtf"
	FormatHTML = "html"
	FormatText = "txt"
)

func ValidFormat(f string) bool {
	switch f {
	case FormatPDF, FormatDocx, FormatRTF, FormatHTML, FormatText:
		return true
	}
	return false
}

type Report struct {
	ID          uuid.UUID `db:"id" json:"id"`
	HospitalID  uuid.UUID `db:"hospital_id" json:"hospital_id"`
	CaseID      uuid.UUID `db:"case_id" json:"case_id"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"`
	Narrative   bool      `db:"narrative" json:"narrative"`
	GeneratedBy uuid.UUID `db:"generated_by" json:"generated_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Slide is one record of a report's deck, emitted in position order.
type Slide struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ReportID  uuid.UUID `db:"report_id" json:"report_id"`
	Position  int       `db:"position" json:"position"`
	Heading   string    `db:"heading" json:"heading"`
	Body      string    `db:"body" json:"body"`
	ImageKey  *string   `db:"image_key" json:"image_key,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
