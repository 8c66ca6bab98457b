// Package normalize implements the single choke point where a permissive
// RawExternalSignal becomes a strict, validated ExternalSignal — every
// alias-resolution and defaulting rule lives here, exactly once.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arc-self/supplyrisk/internal/platform/errs"
	"github.com/arc-self/supplyrisk/internal/schema"
)

// Signal applies alias-resolution and defaulting rules to raw and validates
// the result, returning errs.ErrSchema on the first violation. A failure
// here must never reach the bus.
func Signal(raw schema.RawExternalSignal) (schema.ExternalSignal, error) {
	out := schema.ExternalSignal{
		IngestionTimeUTC: time.Now().UTC().Format(time.RFC3339Nano),
	}

	if raw.EventID != nil && *raw.EventID != "" {
		out.EventID = *raw.EventID
	} else {
		out.EventID = uuid.NewString()
	}

	out.SourceType = resolveSourceType(raw.SourceType)

	out.RawContent = resolveRawContent(raw)

	if raw.SourceReference != nil {
		out.SourceReference = *raw.SourceReference
	}

	if raw.GeographicScope != nil {
		out.GeographicScope = *raw.GeographicScope
	}

	out.TimestampUTC = resolveTimestamp(raw.TimestampUTC)

	out.SignalConfidence = resolveConfidence(raw.SignalConfidence)

	if err := out.Validate(); err != nil {
		return schema.ExternalSignal{}, fmt.Errorf("%w: %v", errs.ErrSchema, err)
	}
	return out, nil
}

// resolveSourceType upper-cases the provided source type. An absent or
// empty value defaults to NEWS so validation has something deterministic to
// check; a present value is passed through uppercased, unvalidated, so
// Validate rejects anything outside the enumerated types instead of
// silently coercing it to NEWS.
func resolveSourceType(raw *string) schema.SourceType {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return schema.SourceNews
	}
	return schema.SourceType(strings.ToUpper(strings.TrimSpace(*raw)))
}

func resolveRawContent(raw schema.RawExternalSignal) string {
	if raw.RawContent != nil && *raw.RawContent != "" {
		return *raw.RawContent
	}
	whole, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(whole)
}

// resolveTimestamp accepts an ISO-8601 string containing "T", or an
// epoch-millis number; anything else (including absence) falls back to now.
func resolveTimestamp(raw *json.RawMessage) string {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if raw == nil {
		return now
	}

	var asString string
	if err := json.Unmarshal(*raw, &asString); err == nil {
		if strings.Contains(asString, "T") {
			return asString
		}
		return now
	}

	var asNumber json.Number
	if err := json.Unmarshal(*raw, &asNumber); err == nil {
		millis, err := strconv.ParseInt(asNumber.String(), 10, 64)
		if err == nil {
			return time.UnixMilli(millis).UTC().Format(time.RFC3339Nano)
		}
	}

	return now
}

// resolveConfidence clamps the provided confidence to [0,1], defaulting to
// 0.5 if missing.
func resolveConfidence(raw *float64) float64 {
	if raw == nil {
		return 0.5
	}
	v := *raw
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
