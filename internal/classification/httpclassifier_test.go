package classification_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/supplyrisk/internal/classification"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func TestHTTPClassifier_ClassifyParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"impact_region": "US-FL", "category": "WEATHER_DELAY",
			"severity": 0.8, "confidence": 0.9, "summary": "storm warning",
		})
	}))
	defer srv.Close()

	c := classification.NewHTTPClassifier(srv.URL, "test-key", "remote-v1")
	draft, err := c.Classify(context.Background(), schema.ExternalSignal{RawContent: "storm", GeographicScope: "US-FL"})
	require.NoError(t, err)
	assert.Equal(t, "US-FL", draft.ImpactRegion)
	assert.Equal(t, 0.8, draft.Severity)
	assert.Equal(t, "remote-v1", c.ModelVersion())
}

func TestHTTPClassifier_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := classification.NewHTTPClassifier(srv.URL, "", "remote-v1")
	_, err := c.Classify(context.Background(), schema.ExternalSignal{})
	assert.Error(t, err)
}
