package record

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Document handling shared by store implementations.
//
// Records are persisted as JSON. Filter matching and index key construction
// operate on the decoded generic form (map[string]any), so both the memory
// and badger implementations behave identically regardless of the Go types
// records were written with.

// EncodeDocument serializes a value and returns both the raw JSON and the
// decoded generic document used for filter matching and index computation.
func EncodeDocument(value any) (json.RawMessage, map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, nil, &StoreError{
			Code:    ErrInvalidArgument,
			Message: fmt.Sprintf("value is not JSON-serializable: %v", err),
		}
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, &StoreError{
			Code:    ErrInvalidArgument,
			Message: "value must serialize to a JSON object",
		}
	}

	return raw, doc, nil
}

// DecodeDocument parses raw JSON into the generic document form.
func DecodeDocument(raw json.RawMessage) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("corrupt record: %w", err)
	}
	return doc, nil
}

// Matches reports whether a document satisfies the filter.
//
// Filter values are normalized through a JSON round trip before comparison,
// so Go ints compare equal to the float64 values encoding/json produces.
// A nil filter value matches a JSON null or an absent field.
func (f Filter) Matches(doc map[string]any) bool {
	for field, want := range f {
		got, present := doc[field]

		if want == nil {
			if present && got != nil {
				return false
			}
			continue
		}

		if !present {
			return false
		}

		if !reflect.DeepEqual(normalize(want), got) {
			return false
		}
	}
	return true
}

// normalize round-trips a value through JSON so it compares cleanly against
// decoded documents.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// Key computes the unique index key for a document.
//
// Returns ok=false when the document does not participate in the index
// (partial index condition not met). Field values are JSON-encoded and
// joined with a unit separator so composite keys cannot collide across
// field boundaries.
func (ix UniqueIndex) Key(doc map[string]any) (string, bool) {
	if ix.PartialOnNull != "" {
		if v, present := doc[ix.PartialOnNull]; present && v != nil {
			return "", false
		}
	}

	parts := make([]string, 0, len(ix.Fields))
	for _, field := range ix.Fields {
		raw, err := json.Marshal(doc[field])
		if err != nil {
			raw = []byte("null")
		}
		parts = append(parts, string(raw))
	}

	return strings.Join(parts, "\x1f"), true
}
