// Package handshake records operator trials made during a pulse sweep.
// It has no dependencies on morsr/ and stores pure data types.
package handshake

import "time"

// Record captures a single operator trial and its acceptance decision.
// Records are values; the Log never hands out references into its storage.
type Record struct {
	RunID     string    `json:"run_id,omitempty"`
	Iteration int       `json:"iteration"`
	Operator  string    `json:"operator"`
	PhiBefore float64   `json:"phi_before"`
	PhiAfter  float64   `json:"phi_after"`
	DeltaPhi  float64   `json:"delta_phi"`
	Accepted  bool      `json:"accepted"`
	Reason    string    `json:"reason"`
	HashID    string    `json:"hash_id"`
	Timestamp time.Time `json:"timestamp"`
}
