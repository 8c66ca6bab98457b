package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arc-self/supplyrisk/internal/schema"
)

// HTTPSource polls a third-party feed's REST endpoint for a batch of raw
// signals on each cycle. It is the production Source: an external provider
// (weather alerts, logistics news, traffic feeds) exposed as a simple
// "GET and decode a JSON array" contract.
type HTTPSource struct {
	name       string
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSource constructs a ready-to-use HTTPSource. name identifies the
// provider in logs and summaries; url is polled with a GET on every cycle.
func NewHTTPSource(name, url, apiKey string) *HTTPSource {
	return &HTTPSource{
		name:       name,
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements Source.
func (h *HTTPSource) Name() string { return h.name }

// Poll implements Source: a single GET returning a JSON array of raw signals.
func (h *HTTPSource) Poll(ctx context.Context) ([]schema.RawExternalSignal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request for %s: %w", h.name, err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", h.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll %s: unexpected status %d", h.name, resp.StatusCode)
	}

	var signals []schema.RawExternalSignal
	if err := json.NewDecoder(resp.Body).Decode(&signals); err != nil {
		return nil, fmt.Errorf("decode poll response from %s: %w", h.name, err)
	}
	return signals, nil
}
