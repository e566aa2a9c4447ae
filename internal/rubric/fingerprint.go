package rubric

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fingerprintLength = 16

// Fingerprint returns a short stable identity for a rubric fragment: a
// criterion, a criteria list, or a whole document. The value is passed
// through YAML so typed structs and generic documents loaded from disk
// produce identical fingerprints, then canonicalized as JSON with sorted
// keys and whitespace-stripped strings.
func Fingerprint(value any) (string, error) {
	canonical, err := canonicalize(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:fingerprintLength], nil
}

func canonicalize(value any) ([]byte, error) {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	canonical, err := json.Marshal(stripStrings(generic))
	if err != nil {
		return nil, fmt.Errorf("canonicalize value: %w", err)
	}
	return canonical, nil
}

func stripStrings(value any) any {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = stripStrings(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = stripStrings(item)
		}
		return out
	default:
		return value
	}
}
