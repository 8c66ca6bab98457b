package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func newTestGateway(t *testing.T, authToken string) (*bus.Bus, *Counters, http.Handler) {
	t.Helper()
	store := bus.NewMemStore()
	b := bus.New(store, zaptest.NewLogger(t))
	counters := &Counters{}
	e := NewEcho(Config{
		ServiceName:      "test-gateway",
		MaxRecordsPerReq: 10,
		AuthToken:        authToken,
	}, counters, zaptest.NewLogger(t))
	RegisterSignalRoutes(e, b, 10, counters, zaptest.NewLogger(t))
	return b, counters, e
}

func TestSignalRoutes_RejectsMissingBearerToken(t *testing.T) {
	_, _, e := newTestGateway(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(`{"signals":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignalRoutes_HealthzAndMetricsBypassAuth(t *testing.T) {
	_, _, e := newTestGateway(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignalRoutes_AcceptsValidBearerTokenAndPublishes(t *testing.T) {
	b, counters, e := newTestGateway(t, "secret-token")

	body := `{"signals":[{"sourceType":"WEATHER","content":"Hurricane approaching Gulf Coast","sourceReference":"feed-1","region":"US-FL"}]}`
	req := httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, counters.Snapshot()["signals_published"])

	decoded, err := bus.ReadRecent[schema.RawExternalSignal](context.Background(), b, schema.StreamRawInputSignals, 10)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.NotNil(t, decoded[0].Message.SourceType)
	assert.Equal(t, "WEATHER", *decoded[0].Message.SourceType)
}

func TestSignalRoutes_RejectsBatchOverLimit(t *testing.T) {
	_, _, e := newTestGateway(t, "")

	signals := make([]string, 0, 11)
	for i := 0; i < 11; i++ {
		signals = append(signals, `{"sourceType":"NEWS","content":"x","sourceReference":"r","region":"US"}`)
	}
	body := `{"signals":[` + strings.Join(signals, ",") + `]}`
	req := httptest.NewRequest(http.MethodPost, "/signals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
