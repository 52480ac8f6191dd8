package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NewHTTPNarrator points at an external narrative service. The service
// only ever sees the de-identified NarrativeInput; it answers with HTML
// suitable for the report body.
func NewHTTPNarrator(baseURL string) Narrator {
	return &httpNarrator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type httpNarrator struct {
	baseURL string
	client  *http.Client
}

func (n *httpNarrator) Narrate(ctx context.Context, in NarrativeInput) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/narrate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("narrator unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("narrator returned %d", resp.StatusCode)
	}

	var out struct {
		Narrative string `json:"narrative"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode narrator response: %w", err)
	}
	if strings.TrimSpace(out.Narrative) == "" {
		return "", fmt.Errorf("narrator returned an empty narrative")
	}
	return out.Narrative, nil
}
