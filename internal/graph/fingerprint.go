package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint returns a stable hex digest of the core state. A suspended
// run's fingerprint is issued alongside its state and must be echoed back
// on resume, so a decision made against stale state is rejected rather
// than applied. Map keys serialize in sorted order, keeping the digest
// deterministic.
func (c Core) Fingerprint() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("serialize state for fingerprint: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
