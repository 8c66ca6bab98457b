package schema

import "encoding/json"

// RawExternalSignal is a permissive superset of ExternalSignal. It accepts
// snake_case and camelCase aliases for every known field, plus a handful of
// generic aliases (content/reference/region/confidence) that upstream
// providers commonly use instead of the canonical names. Fields it does not
// recognise are preserved (but otherwise ignored by the core) in Extra.
type RawExternalSignal struct {
	EventID          *string  `json:"-"`
	SourceType       *string  `json:"-"`
	RawContent       *string  `json:"-"`
	SourceReference  *string  `json:"-"`
	GeographicScope  *string  `json:"-"`
	TimestampUTC     *json.RawMessage `json:"-"` // may be a string or epoch-millis number
	SignalConfidence *float64 `json:"-"`

	// Extra holds every field this type did not recognise, keyed by its
	// original name on the wire. The core never reads it; MarshalJSON
	// re-emits it, so re-encoding the raw record keeps data a downstream
	// consumer of that record might still want. normalize.Signal does not
	// carry it into ExternalSignal.
	Extra map[string]json.RawMessage `json:"-"`
}

// The *Aliases vars list, for each canonical field, every wire name accepted for
// it, most-specific first. The first key present on the wire wins.
var (
	eventIDAliases    = []string{"event_id", "eventId"}
	sourceTypeAliases = []string{"source_type", "sourceType"}
	rawContentAliases = []string{"raw_content", "rawContent", "content"}
	sourceRefAliases  = []string{"source_reference", "sourceReference", "reference"}
	geoScopeAliases   = []string{"geographic_scope", "geographicScope", "region"}
	timestampAliases  = []string{"timestamp_utc", "timestampUtc", "timestampUTC"}
	confidenceAliases = []string{"signal_confidence", "signalConfidence", "confidence"}
)

// UnmarshalJSON implements the alias resolution described on RawExternalSignal.
func (r *RawExternalSignal) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	take := func(keys []string) (json.RawMessage, bool) {
		for _, k := range keys {
			if v, ok := fields[k]; ok {
				delete(fields, k)
				return v, true
			}
		}
		return nil, false
	}

	if v, ok := take(eventIDAliases); ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			r.EventID = &s
		}
	}
	if v, ok := take(sourceTypeAliases); ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			r.SourceType = &s
		}
	}
	if v, ok := take(rawContentAliases); ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			r.RawContent = &s
		}
	}
	if v, ok := take(sourceRefAliases); ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			r.SourceReference = &s
		}
	}
	if v, ok := take(geoScopeAliases); ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			r.GeographicScope = &s
		}
	}
	if v, ok := take(timestampAliases); ok {
		raw := v
		r.TimestampUTC = &raw
	}
	if v, ok := take(confidenceAliases); ok {
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			r.SignalConfidence = &f
		}
	}

	r.Extra = fields
	return nil
}

// MarshalJSON re-emits the canonical field names plus any preserved Extra
// fields, so a RawExternalSignal built programmatically (e.g. by a
// connector's transformer) round-trips the same way a wire payload would.
func (r RawExternalSignal) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Extra)+7)
	for k, v := range r.Extra {
		out[k] = v
	}
	if r.EventID != nil {
		out["event_id"] = *r.EventID
	}
	if r.SourceType != nil {
		out["source_type"] = *r.SourceType
	}
	if r.RawContent != nil {
		out["raw_content"] = *r.RawContent
	}
	if r.SourceReference != nil {
		out["source_reference"] = *r.SourceReference
	}
	if r.GeographicScope != nil {
		out["geographic_scope"] = *r.GeographicScope
	}
	if r.TimestampUTC != nil {
		out["timestamp_utc"] = *r.TimestampUTC
	}
	if r.SignalConfidence != nil {
		out["signal_confidence"] = *r.SignalConfidence
	}
	return json.Marshal(out)
}
