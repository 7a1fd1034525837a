// Package hash fingerprints translated content so unchanged issues can be
// skipped without a GitHub write.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Any serializes v as JSON and returns the hex SHA-256 digest. Struct field
// order and sorted map keys make the encoding stable across calls.
func Any(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Content is the part of an issue that triggers a GitHub update when it
// changes.
type Content struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Labels   []string `json:"labels"`
	Assignee string   `json:"assignee,omitempty"`
}

// Fingerprint hashes c. Nil and empty label lists hash the same.
func Fingerprint(c Content) string {
	if c.Labels == nil {
		c.Labels = []string{}
	}
	// Content holds only strings, so encoding cannot fail.
	sum, _ := Any(c)
	return sum
}
