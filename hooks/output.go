package hooks

import (
	"encoding/json"
	"io"
	"time"
)

// Status is the outcome StateTracker reports to the host.
type Status string

const (
	StatusDisabled       Status = "disabled"
	StatusNoState        Status = "no_state"
	StatusNoFiles        Status = "no_files"
	StatusVerified       Status = "verified"
	StatusUnchanged      Status = "unchanged"
	StatusSessionCleared Status = "session_cleared"
	StatusError          Status = "error"
)

// ContinueResult tells the host to carry on with its lifecycle.
type ContinueResult struct {
	Continue bool `json:"continue"`
}

// Continue is the fixed result of LogCapture and ChangeStager.
var Continue = ContinueResult{Continue: true}

// StateResult is the result StateTracker writes to stdout.
type StateResult struct {
	HookSpecificOutput StateOutput `json:"hookSpecificOutput"`
}

// StateOutput carries the StateTracker status.
type StateOutput struct {
	HookEventName string `json:"hookEventName"`
	Status        Status `json:"status"`
	Timestamp     string `json:"timestamp"`
}

// NewStateResult builds a StateTracker result stamped with now in UTC.
func NewStateResult(event string, status Status, now time.Time) StateResult {
	return StateResult{HookSpecificOutput: StateOutput{
		HookEventName: event,
		Status:        status,
		Timestamp:     now.UTC().Format(time.RFC3339),
	}}
}

// WriteResult encodes result as a single line of JSON.
func WriteResult(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
