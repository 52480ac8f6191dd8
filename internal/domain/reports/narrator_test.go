package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPNarrator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/narrate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var in NarrativeInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode input: %v", err)
		}
		if in.AgeBracket == "" {
			t.Error("expected age bracket in request body")
		}
		json.NewEncoder(w).Encode(map[string]string{
			"narrative": "<p>An adult patient presented with headache symptoms.</p>",
		})
	}))
	defer srv.Close()

	n := NewHTTPNarrator(srv.URL)
	out, err := n.Narrate(context.Background(), NarrativeInput{
		AgeBracket:        "adult",
		Gender:            "F",
		SymptomCategories: []string{"headache"},
		ProcedureTypes:    []string{"CT Head / Plain"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "adult patient") {
		t.Errorf("unexpected narrative: %q", out)
	}
}

func TestHTTPNarrator_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewHTTPNarrator(srv.URL).Narrate(context.Background(), NarrativeInput{}); err == nil {
		t.Fatal("expected error for server failure")
	}
}

func TestHTTPNarrator_EmptyNarrative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"narrative": "  "})
	}))
	defer srv.Close()

	if _, err := NewHTTPNarrator(srv.URL).Narrate(context.Background(), NarrativeInput{}); err == nil {
		t.Fatal("expected error for empty narrative")
	}
}
