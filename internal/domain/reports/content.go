package reports

import (
	"context"
	"fmt"
	"strings"

	"github.com/careops/hms/internal/platform/recommend"
)

// SectionMarker separates sections in assembled report bodies. The
// export layer chunks large HTML payloads at these boundaries.
const SectionMarker = "<!-- section -->"

// CaseContent is the flat, display-ready view of a case used for report
// templating. Names here are for the rendered document only; none of
// them reach the narrative adapter.
type CaseContent struct {
	PatientName        string   `json:"patient_name"`
	PatientGender      string   `json:"patient_gender"`
	AgeBracket         string   `json:"age_bracket"`
	Date               string   `json:"date"`
	Priority           string   `json:"priority"`
	Department         string   `json:"department"`
	Sedation           string   `json:"sedation"`
	Procedures         []string `json:"procedures"`
	ReferringPhysician string   `json:"referring_physician"`
	Symptoms           string   `json:"symptoms"`
	TechnicianNotes    string   `json:"technician_notes"`
}

// NarrativeInput is the only view of a case a narrative adapter gets:
// age bracket instead of exact age, generic symptom categories instead
// of the technician's free text, and procedure names. Nothing else.
type NarrativeInput struct {
	AgeBracket        string   `json:"age_bracket"`
	Gender            string   `json:"gender"`
	SymptomCategories []string `json:"symptom_categories"`
	ProcedureTypes    []string `json:"procedure_types"`
}

// NarrativeInput derives the de-identified adapter input from content.
func (c *CaseContent) NarrativeInput() NarrativeInput {
	return NarrativeInput{
		AgeBracket:        c.AgeBracket,
		Gender:            c.PatientGender,
		SymptomCategories: recommend.Categorize(c.Symptoms),
		ProcedureTypes:    append([]string(nil), c.Procedures...),
	}
}

// Narrator rewrites a report body from de-identified metadata. A failing
// narrator never fails report generation; the template body stands in.
type Narrator interface {
	Narrate(ctx context.Context, in NarrativeInput) (string, error)
}

// NoNarrator disables narrative generation.
func NoNarrator() Narrator { return noNarrator{} }

type noNarrator struct{}

func (noNarrator) Narrate(context.Context, NarrativeInput) (string, error) {
	return "", fmt.Errorf("narrative generation is disabled")
}

// RenderTemplate produces the deterministic report body. Sections are
// joined with the marker the exporter chunks on.
func (c *CaseContent) RenderTemplate() string {
	var b strings.Builder

	b.WriteString("<h1>Case Report</h1>\n")
	fmt.Fprintf(&b, "<p>Patient: %s (%s, %s)</p>\n", c.PatientName, c.PatientGender, c.AgeBracket)
	fmt.Fprintf(&b, "<p>Date: %s &mdash; Priority: %s</p>\n", c.Date, c.Priority)
	if c.ReferringPhysician != "" {
		fmt.Fprintf(&b, "<p>Referring physician: %s</p>\n", c.ReferringPhysician)
	}
	b.WriteString(SectionMarker + "\n")

	b.WriteString("<h2>Presentation</h2>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", c.Symptoms)
	b.WriteString(SectionMarker + "\n")

	b.WriteString("<h2>Plan</h2>\n")
	fmt.Fprintf(&b, "<p>Department: %s</p>\n", c.Department)
	if c.Sedation != "" {
		fmt.Fprintf(&b, "<p>Sedation: %s</p>\n", c.Sedation)
	}
	b.WriteString("<ul>\n")
	for _, p := range c.Procedures {
		fmt.Fprintf(&b, "<li>%s</li>\n", p)
	}
	b.WriteString("</ul>\n")

	if c.TechnicianNotes != "" {
		b.WriteString(SectionMarker + "\n")
		b.WriteString("<h2>Notes</h2>\n")
		fmt.Fprintf(&b, "<p>%s</p>\n", c.TechnicianNotes)
	}
	return b.String()
}
