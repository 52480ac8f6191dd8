package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// httpRecommender calls an external model service implementing the same
// contract. The wizard degrades gracefully on any error, so the timeout
// is short and failures are plain errors, never retried here.
type httpRecommender struct {
	url    string
	client *http.Client
}

// NewHTTP returns a Recommender backed by an external service. The service
// receives the de-identified Input as JSON and answers with a Result.
func NewHTTP(url string) Recommender {
	return &httpRecommender{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *httpRecommender) Recommend(ctx context.Context, in Input) (*Result, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode recommendation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build recommendation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call recommendation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recommendation service returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode recommendation response: %w", err)
	}
	return &result, nil
}
