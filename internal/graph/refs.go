package graph

import "time"

// EvidenceRef points to supporting material gathered during execution.
type EvidenceRef struct {
	Type        string    `json:"type"`
	Path        string    `json:"path"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// NodeError records a stage execution failure. Recoverable errors let the
// run continue with partial results; unrecoverable errors force it to the
// failed state.
type NodeError struct {
	Stage       string    `json:"stage"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Recoverable bool      `json:"recoverable"`
}
