// Package session decodes hook payloads and locates the on-disk artifacts
// that belong to a host session.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/grovetools/hooks/errors"
)

// MaxInputBytes caps stdin reads. Hook payloads are small JSON objects.
const MaxInputBytes = 1 << 20

// Kind is the lifecycle event that triggered a hook.
type Kind string

const (
	KindSessionEnd   Kind = "SessionEnd"
	KindSubagentStop Kind = "SubagentStop"
)

// Event is the JSON payload the host writes to a hook's stdin.
type Event struct {
	Kind           Kind   `json:"hook_event_name"`
	CWD            string `json:"cwd"`
	TranscriptPath string `json:"transcript_path"`
	SessionID      string `json:"session_id"`

	// Metadata keeps every field of the payload, including the ones above.
	Metadata map[string]any `json:"-"`
}

// ReadEvent decodes a hook payload from r. Empty input is treated as an
// empty object. On malformed input it returns an empty event together with
// an INVALID_INPUT error so callers can still proceed with defaults.
func ReadEvent(r io.Reader) (*Event, error) {
	event := &Event{}
	if r == nil {
		return event, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return event, errors.InvalidInput(err)
	}
	if len(data) > MaxInputBytes {
		return event, errors.InvalidInput(fmt.Errorf("payload exceeds %d bytes", MaxInputBytes))
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return event, nil
	}

	if err := json.Unmarshal(data, event); err != nil {
		return &Event{}, errors.InvalidInput(err)
	}
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	event.Metadata = raw

	return event, nil
}

// WorkingDir returns the payload's cwd, falling back to the process
// working directory.
func (e *Event) WorkingDir() string {
	if e.CWD != "" {
		return e.CWD
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
