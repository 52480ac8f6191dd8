package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRuleClassifier_Headache(t *testing.T) {
	ctMRI := ExamProcedureRef{ID: uuid.New(), Name: "Head CT with contrast"}
	eeg := ExamProcedureRef{ID: uuid.New(), Name: "Routine EEG"}

	r := NewRuleClassifier()
	result, err := r.Recommend(context.Background(), Input{
		Symptoms:           "severe headache and nausea",
		AgeBracket:         "adult",
		Gender:             "F",
		AvailableProcedure: []ExamProcedureRef{ctMRI, eeg},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !hasCategory(result.Categories, CategoryHeadache) {
		t.Errorf("expected headache category, got %v", result.Categories)
	}
	if result.Priority != "medium" {
		t.Errorf("expected medium priority, got %s", result.Priority)
	}
	if len(result.ExamProcedureIDs) != 1 || result.ExamProcedureIDs[0] != ctMRI.ID {
		t.Errorf("expected CT procedure pre-selected, got %v", result.ExamProcedureIDs)
	}
}

func TestRuleClassifier_SeizurePriorityWins(t *testing.T) {
	r := NewRuleClassifier()
	result, err := r.Recommend(context.Background(), Input{
		Symptoms: "headache after a seizure episode",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasCategory(result.Categories, CategorySeizureDisorder) {
		t.Errorf("expected seizure category, got %v", result.Categories)
	}
	if result.Priority != "urgent" {
		t.Errorf("expected most severe category to set priority, got %s", result.Priority)
	}
}

func TestRuleClassifier_GeneralFallback(t *testing.T) {
	r := NewRuleClassifier()
	result, err := r.Recommend(context.Background(), Input{Symptoms: "feeling generally unwell"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Categories) != 1 || result.Categories[0] != CategoryGeneral {
		t.Errorf("expected general fallback, got %v", result.Categories)
	}
	if result.Priority != "medium" {
		t.Errorf("expected medium default priority, got %s", result.Priority)
	}
}

func TestRuleClassifier_EmptySymptoms(t *testing.T) {
	r := NewRuleClassifier()
	if _, err := r.Recommend(context.Background(), Input{Symptoms: "   "}); err == nil {
		t.Fatal("expected error for empty symptom text")
	}
}

func TestCategorize(t *testing.T) {
	categories := Categorize("memory loss and confusion")
	if !hasCategory(categories, CategoryCognitiveConcern) {
		t.Errorf("expected cognitive_concern, got %v", categories)
	}
}

func TestDisabled(t *testing.T) {
	if _, err := Disabled().Recommend(context.Background(), Input{Symptoms: "x"}); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestAgeBracket(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		dob  time.Time
		want string
	}{
		{time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC), "child"},
		{time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC), "adolescent"},
		{time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), "adult"},
		{time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), "middle_aged"},
		{time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), "senior"},
	}
	for _, tt := range tests {
		if got := AgeBracket(tt.dob, now); got != tt.want {
			t.Errorf("AgeBracket(%s) = %s, want %s", tt.dob.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestHTTPRecommender(t *testing.T) {
	depID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode input: %v", err)
		}
		if in.Symptoms == "" {
			t.Error("expected symptoms in request body")
		}
		json.NewEncoder(w).Encode(Result{
			DepartmentID: &depID,
			Priority:     "high",
			Categories:   []string{CategoryStructuralAbnormality},
		})
	}))
	defer srv.Close()

	r := NewHTTP(srv.URL)
	result, err := r.Recommend(context.Background(), Input{Symptoms: "lesion"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DepartmentID == nil || *result.DepartmentID != depID {
		t.Errorf("expected department %s, got %v", depID, result.DepartmentID)
	}
	if result.Priority != "high" {
		t.Errorf("expected high priority, got %s", result.Priority)
	}
}

func TestHTTPRecommender_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewHTTP(srv.URL).Recommend(context.Background(), Input{Symptoms: "x"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func hasCategory(categories []string, want string) bool {
	for _, c := range categories {
		if c == want {
			return true
		}
	}
	return false
}
