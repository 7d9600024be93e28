package armor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPScanner talks to an external scanning service. Transport failures
// surface as errors so Decide can fail closed.
type HTTPScanner struct {
	URL  string
	HTTP *http.Client
}

func NewHTTPScanner(url string) *HTTPScanner {
	return &HTTPScanner{
		URL:  url,
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

type scanRequest struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type scanResponse struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

func (s *HTTPScanner) ScanPrompt(ctx context.Context, text string) (Verdict, error) {
	return s.scan(ctx, "prompt", text)
}

func (s *HTTPScanner) ScanResponse(ctx context.Context, text string) (Verdict, error) {
	return s.scan(ctx, "response", text)
}

func (s *HTTPScanner) scan(ctx context.Context, kind, text string) (Verdict, error) {
	body, err := json.Marshal(scanRequest{Kind: kind, Text: text})
	if err != nil {
		return Verdict{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("armor scan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("armor scan: status %d", resp.StatusCode)
	}

	var out scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Verdict{}, fmt.Errorf("armor scan: decode: %w", err)
	}
	return Verdict{Blocked: out.Blocked, Reason: out.Reason}, nil
}
