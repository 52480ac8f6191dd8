package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// categoryRule maps symptom keywords to a category, the priority that
// category implies, and the exam-procedure name keywords worth
// pre-selecting for it.
type categoryRule struct {
	category          string
	priority          string
	symptomKeywords   []string
	procedureKeywords []string
}

// The fallback categorizer. Keyword sets are deliberately broad; the
// technician reviews and overrides everything in step 2.
var defaultRules = []categoryRule{
	{
		category:          CategorySeizureDisorder,
		priority:          "urgent",
		symptomKeywords:   []string{"seizure", "convulsion", "epilep", "fit", "spasm"},
		procedureKeywords: []string{"eeg", "electroencephalo"},
	},
	{
		category:          CategoryStructuralAbnormality,
		priority:          "high",
		symptomKeywords:   []string{"tumor", "tumour", "lesion", "mass", "swelling", "trauma", "injury"},
		procedureKeywords: []string{"mri", "ct", "angio"},
	},
	{
		category:          CategoryHeadache,
		priority:          "medium",
		symptomKeywords:   []string{"headache", "migraine", "head pain", "nausea", "dizziness", "vertigo"},
		procedureKeywords: []string{"ct", "mri"},
	},
	{
		category:          CategoryCognitiveConcern,
		priority:          "medium",
		symptomKeywords:   []string{"memory", "confusion", "cognitive", "dementia", "disorient", "forgetful"},
		procedureKeywords: []string{"neuropsych", "mri", "pet"},
	},
}

// priorityRank orders priorities so the most severe matched category wins.
var priorityRank = map[string]int{"low": 0, "medium": 1, "high": 2, "urgent": 3}

type ruleClassifier struct {
	rules []categoryRule
}

// NewRuleClassifier returns the deterministic keyword-based recommender
// used when no external model service is configured, and as the fallback
// categorizer for report de-identification.
func NewRuleClassifier() Recommender {
	return &ruleClassifier{rules: defaultRules}
}

func (r *ruleClassifier) Recommend(_ context.Context, in Input) (*Result, error) {
	text := strings.ToLower(in.Symptoms)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no symptom text to classify")
	}

	result := &Result{}
	procedureKeywords := map[string]bool{}

	for _, rule := range r.rules {
		if !matchesAny(text, rule.symptomKeywords) {
			continue
		}
		result.Categories = append(result.Categories, rule.category)
		if priorityRank[rule.priority] > priorityRank[result.Priority] {
			result.Priority = rule.priority
		}
		for _, kw := range rule.procedureKeywords {
			procedureKeywords[kw] = true
		}
	}

	if len(result.Categories) == 0 {
		result.Categories = []string{CategoryGeneral}
		result.Priority = "medium"
	}

	result.ExamProcedureIDs = matchProcedures(in.AvailableProcedure, procedureKeywords)
	result.Notes = fmt.Sprintf("keyword classification: %s", strings.Join(result.Categories, ", "))
	return result, nil
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func matchProcedures(available []ExamProcedureRef, keywords map[string]bool) []uuid.UUID {
	var ids []uuid.UUID
	for _, ep := range available {
		name := strings.ToLower(ep.Name)
		for kw := range keywords {
			if strings.Contains(name, kw) {
				ids = append(ids, ep.ID)
				break
			}
		}
	}
	return ids
}

// Categorize runs only the category portion of the classifier. Report
// de-identification uses this to replace raw symptom text with generic
// categories.
func Categorize(symptoms string) []string {
	text := strings.ToLower(symptoms)
	var categories []string
	for _, rule := range defaultRules {
		if matchesAny(text, rule.symptomKeywords) {
			categories = append(categories, rule.category)
		}
	}
	if len(categories) == 0 {
		categories = []string{CategoryGeneral}
	}
	return categories
}
