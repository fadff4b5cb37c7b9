package runway

import "strings"

// TaskState is the normalized lifecycle state of a generation task. The
// upstream API reports free-form status strings; ParseState is the only
// place those strings are interpreted.
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateRunning   TaskState = "running"
	StateSucceeded TaskState = "succeeded"
	StateFailed    TaskState = "failed"
)

// ParseState maps an upstream status string onto the normalized enum.
// Unknown statuses are treated as non-terminal so callers keep polling.
func ParseState(raw string) TaskState {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING", "THROTTLED":
		return StatePending
	case "RUNNING":
		return StateRunning
	case "SUCCEEDED":
		return StateSucceeded
	case "FAILED", "CANCELLED":
		return StateFailed
	default:
		return StatePending
	}
}

// Terminal reports whether the state ends the task lifecycle.
func (s TaskState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
