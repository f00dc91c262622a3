package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalJSON converts v to compact JSON TEXT for storage.
// HTML escaping is disabled so stored text matches what was written.
func marshalJSON(what string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalStrings stores a nil list as "[]" so the column is never null.
func marshalStrings(what string, vals []string) (string, error) {
	if vals == nil {
		vals = []string{}
	}
	return marshalJSON(what, vals)
}

// unmarshalJSON parses JSON TEXT into v. Empty text leaves v unchanged.
func unmarshalJSON(what, data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
