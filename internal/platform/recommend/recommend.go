// Package recommend suggests intake defaults (priority, exam-procedures,
// symptom categories) from free-text symptoms. Two implementations share
// one contract: a deterministic keyword classifier and an HTTP client for
// an external model service. Callers must treat both identically and must
// never fail the enclosing operation because a recommender errored; the
// wizard simply presents no defaults.
package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDisabled is returned by the disabled recommender.
var ErrDisabled = errors.New("recommender is disabled")

// Symptom categories the rule classifier (and the report de-identification
// layer) recognize.
const (
	CategorySeizureDisorder       = "seizure_disorder"
	CategoryHeadache              = "headache"
	CategoryStructuralAbnormality = "structural_abnormality"
	CategoryCognitiveConcern      = "cognitive_concern"
	CategoryGeneral               = "general"
)

// ExamProcedureRef identifies a selectable exam-procedure for matching.
// Only the display name is exposed to the recommender; ids are opaque.
type ExamProcedureRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Input is the de-identified intake data a recommender may see. Raw
// patient identity never crosses this boundary: age arrives as a bracket
// and symptoms as free text typed by the technician.
type Input struct {
	Symptoms           string             `json:"symptoms"`
	AgeBracket         string             `json:"age_bracket"`
	Gender             string             `json:"gender"`
	AvailableProcedure []ExamProcedureRef `json:"available_exam_procedures"`
}

// Result carries the recommended defaults. Every field is optional; the
// technician's submitted values are always authoritative.
type Result struct {
	DepartmentID     *uuid.UUID  `json:"department_id,omitempty"`
	SedationID       *uuid.UUID  `json:"sedation_id,omitempty"`
	Priority         string      `json:"priority,omitempty"`
	ExamProcedureIDs []uuid.UUID `json:"exam_procedure_ids"`
	Categories       []string    `json:"categories"`
	Notes            string      `json:"notes,omitempty"`
}

// Recommender is the adapter contract consumed by the intake wizard.
type Recommender interface {
	Recommend(ctx context.Context, in Input) (*Result, error)
}

// Disabled returns a Recommender that always reports ErrDisabled.
func Disabled() Recommender { return disabled{} }

type disabled struct{}

func (disabled) Recommend(context.Context, Input) (*Result, error) {
	return nil, ErrDisabled
}

// AgeBracket buckets a date of birth so exact ages never leave the system.
func AgeBracket(dob time.Time, now time.Time) string {
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	switch {
	case years < 0:
		return "unknown"
	case years < 13:
		return "child"
	case years < 18:
		return "adolescent"
	case years < 40:
		return "adult"
	case years < 65:
		return "middle_aged"
	default:
		return "senior"
	}
}
