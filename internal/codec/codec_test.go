package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-self/supplyrisk/internal/codec"
)

type sampleMessage struct {
	EventID string  `json:"event_id"`
	Score   float64 `json:"score"`
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleMessage{EventID: "e1", Score: 0.42}

	fields, err := codec.Encode(in)
	require.NoError(t, err)
	assert.NotEmpty(t, fields[codec.FieldPayload])
	assert.NotEmpty(t, fields[codec.FieldPublishedAt])

	var out sampleMessage
	publishedAt, err := codec.Decode(fields, &out)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, fields[codec.FieldPublishedAt], publishedAt)
}

func TestDecode_MissingPayload(t *testing.T) {
	var out sampleMessage
	_, err := codec.Decode(map[string]string{codec.FieldPublishedAt: "now"}, &out)
	require.Error(t, err)
}

func TestDecode_MissingPublishedAt(t *testing.T) {
	var out sampleMessage
	_, err := codec.Decode(map[string]string{codec.FieldPayload: `{}`}, &out)
	require.Error(t, err)
}

func TestDecode_InvalidJSON(t *testing.T) {
	var out sampleMessage
	_, err := codec.Decode(map[string]string{
		codec.FieldPayload:     `{not json`,
		codec.FieldPublishedAt: "now",
	}, &out)
	require.Error(t, err)
}
