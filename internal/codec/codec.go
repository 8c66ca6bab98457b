// Package codec implements the one place in the pipeline where structural
// assumptions about the log's field shape exist: every message is stored on
// the log as exactly two string fields, "payload" (JSON) and
// "published_at_utc" (ISO-8601). Every other package only ever sees typed
// Go values.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arc-self/supplyrisk/internal/platform/errs"
)

// FieldPayload and FieldPublishedAt are the two field names every entry on
// the log carries. They are wire-stable.
const (
	FieldPayload     = "payload"
	FieldPublishedAt = "published_at_utc"
)

// Encode serialises message to the two-field map the log stores. message
// must be JSON-marshalable; a marshal failure is a programmer error (it can
// never happen for the schema types this pipeline publishes) and is returned
// wrapped with a "codec: marshal payload" prefix.
func Encode(message interface{}) (map[string]string, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal payload: %w", err)
	}
	return map[string]string{
		FieldPayload:     string(payload),
		FieldPublishedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// Decode reads the two-field map back into out (a pointer to the expected
// message type) and returns the recorded publish time. It fails with
// errs.ErrBadEncoding when either field is missing or payload is not valid
// JSON — that is the only failure mode the log itself can produce.
func Decode(fields map[string]string, out interface{}) (publishedAtUTC string, err error) {
	payload, ok := fields[FieldPayload]
	if !ok {
		return "", fmt.Errorf("%w: missing %q field", errs.ErrBadEncoding, FieldPayload)
	}
	publishedAtUTC, ok = fields[FieldPublishedAt]
	if !ok {
		return "", fmt.Errorf("%w: missing %q field", errs.ErrBadEncoding, FieldPublishedAt)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return "", fmt.Errorf("%w: payload is not valid JSON: %v", errs.ErrBadEncoding, err)
	}
	return publishedAtUTC, nil
}
