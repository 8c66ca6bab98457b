package classification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arc-self/supplyrisk/internal/schema"
)

// HTTPClassifier is the primary Classifier, backed by a remote inference
// endpoint (e.g. a hosted model server). It satisfies Classifier so it can
// sit ahead of RuleBasedClassifier behind a confidence threshold.
type HTTPClassifier struct {
	baseURL      string
	apiKey       string
	modelVersion string
	httpClient   *http.Client
}

// NewHTTPClassifier constructs a ready-to-use HTTPClassifier. baseURL is
// the root URL of the inference endpoint (no trailing slash); apiKey is an
// optional bearer token.
func NewHTTPClassifier(baseURL, apiKey, modelVersion string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL:      baseURL,
		apiKey:       apiKey,
		modelVersion: modelVersion,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ModelVersion implements Classifier.
func (c *HTTPClassifier) ModelVersion() string { return c.modelVersion }

type classifyRequest struct {
	RawContent      string `json:"raw_content"`
	GeographicScope string `json:"geographic_scope"`
	SourceType      string `json:"source_type"`
}

type classifyResponse struct {
	ImpactRegion string  `json:"impact_region"`
	Category     string  `json:"category"`
	Severity     float64 `json:"severity"`
	Confidence   float64 `json:"confidence"`
	Summary      string  `json:"summary"`
}

// Classify implements Classifier by POSTing the signal to the configured
// inference endpoint and decoding its structured response.
func (c *HTTPClassifier) Classify(ctx context.Context, signal schema.ExternalSignal) (Draft, error) {
	reqBody, err := json.Marshal(classifyRequest{
		RawContent:      signal.RawContent,
		GeographicScope: signal.GeographicScope,
		SourceType:      string(signal.SourceType),
	})
	if err != nil {
		return Draft{}, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(reqBody))
	if err != nil {
		return Draft{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Draft{}, fmt.Errorf("classify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Draft{}, fmt.Errorf("read classify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Draft{}, fmt.Errorf("classify endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out classifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Draft{}, fmt.Errorf("decode classify response: %w", err)
	}

	return Draft{
		ImpactRegion: out.ImpactRegion,
		Category:     out.Category,
		Severity:     out.Severity,
		Confidence:   out.Confidence,
		Summary:      out.Summary,
	}, nil
}
