package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer generates deterministic cache keys from request parameters.
//
// Contract:
// - Determinism: the same inputs must produce the same key regardless of
//   map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key fingerprints the input under a caller-chosen scope.
	Key(scope string, input any) (string, error)
}

// FingerprintKeyer hashes a canonical JSON rendering of the input.
type FingerprintKeyer struct{}

// NewFingerprintKeyer creates the default keyer.
func NewFingerprintKeyer() *FingerprintKeyer {
	return &FingerprintKeyer{}
}

// Key returns "guardrail:<scope>:<hash>" where hash is the first 16 hex
// characters of SHA-256 over the canonical JSON form of input.
func (k *FingerprintKeyer) Key(scope string, input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("store: failed to canonicalize input: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("guardrail:%s:%s", scope, hex.EncodeToString(sum[:8])), nil
}

// canonicalize renders input as JSON with map keys sorted, so logically
// equal inputs hash identically.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

// Ensure FingerprintKeyer implements Keyer.
var _ Keyer = (*FingerprintKeyer)(nil)
