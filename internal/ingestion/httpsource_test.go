package ingestion_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/supplyrisk/internal/ingestion"
)

func TestHTTPSource_PollDecodesArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"sourceType":"weather","content":"storm","sourceReference":"w://1","region":"US-FL"}]`))
	}))
	defer srv.Close()

	src := ingestion.NewHTTPSource("weather-feed", srv.URL, "key")
	assert.Equal(t, "weather-feed", src.Name())

	signals, err := src.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
}

func TestHTTPSource_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := ingestion.NewHTTPSource("weather-feed", srv.URL, "")
	_, err := src.Poll(context.Background())
	assert.Error(t, err)
}
