package normalize_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/supplyrisk/internal/normalize"
	"github.com/arc-self/supplyrisk/internal/platform/errs"
	"github.com/arc-self/supplyrisk/internal/schema"
)

func unmarshalRaw(t *testing.T, payload string) schema.RawExternalSignal {
	t.Helper()
	var raw schema.RawExternalSignal
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return raw
}

func TestSignal_AliasResolution(t *testing.T) {
	raw := unmarshalRaw(t, `{
		"sourceType":"weather",
		"content":"storm",
		"sourceReference":"w://1",
		"region":"US-FL"
	}`)

	out, err := normalize.Signal(raw)
	require.NoError(t, err)
	assert.Equal(t, schema.SourceWeather, out.SourceType)
	assert.Equal(t, "storm", out.RawContent)
	assert.Equal(t, "w://1", out.SourceReference)
	assert.Equal(t, "US-FL", out.GeographicScope)
	assert.NotEmpty(t, out.EventID)
	assert.Equal(t, 0.5, out.SignalConfidence)
}

func TestSignal_FullCanonicalFields_RoundTrip(t *testing.T) {
	raw := unmarshalRaw(t, `{
		"event_id":"e1",
		"source_type":"NEWS",
		"raw_content":"x",
		"source_reference":"r",
		"geographic_scope":"IN",
		"timestamp_utc":"2024-01-01T00:00:00Z",
		"signal_confidence":0.8
	}`)

	out, err := normalize.Signal(raw)
	require.NoError(t, err)
	assert.Equal(t, "e1", out.EventID)
	assert.Equal(t, schema.SourceNews, out.SourceType)
	assert.Equal(t, "x", out.RawContent)
	assert.Equal(t, "2024-01-01T00:00:00Z", out.TimestampUTC)
	assert.Equal(t, 0.8, out.SignalConfidence)
}

func TestSignal_MissingSourceTypeDefaultsToNews(t *testing.T) {
	raw := unmarshalRaw(t, `{
		"event_id":"e1",
		"raw_content":"x",
		"source_reference":"r",
		"geographic_scope":"IN"
	}`)
	out, err := normalize.Signal(raw)
	require.NoError(t, err)
	assert.Equal(t, schema.SourceNews, out.SourceType)
}

func TestSignal_ExplicitUnknownSourceTypeFailsSchema(t *testing.T) {
	raw := unmarshalRaw(t, `{
		"event_id":"e1",
		"source_type":"UNKNOWN",
		"raw_content":"x",
		"source_reference":"r",
		"geographic_scope":"IN"
	}`)
	_, err := normalize.Signal(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSchema)
}

func TestSignal_MissingRequiredFieldFailsSchema(t *testing.T) {
	raw := unmarshalRaw(t, `{"event_id":"e1"}`)
	_, err := normalize.Signal(raw)
	require.Error(t, err)
}

func TestSignal_ConfidenceClampedAboveOne(t *testing.T) {
	raw := unmarshalRaw(t, `{
		"event_id":"e1",
		"raw_content":"x",
		"source_reference":"r",
		"geographic_scope":"IN",
		"confidence":5
	}`)
	out, err := normalize.Signal(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.SignalConfidence)
}

func TestSignal_EpochMillisTimestamp(t *testing.T) {
	raw := unmarshalRaw(t, `{
		"event_id":"e1",
		"raw_content":"x",
		"source_reference":"r",
		"geographic_scope":"IN",
		"timestamp_utc":1704067200000
	}`)
	out, err := normalize.Signal(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", out.TimestampUTC)
}
