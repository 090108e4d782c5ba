package session

import (
	"strings"
	"testing"

	"github.com/grovetools/hooks/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvent(t *testing.T) {
	payload := `{
		"hook_event_name": "SessionEnd",
		"cwd": "/work/app",
		"transcript_path": "/home/u/.claude/projects/app/abc123.jsonl",
		"session_id": "abc123",
		"reason": "exit"
	}`

	event, err := ReadEvent(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, KindSessionEnd, event.Kind)
	assert.Equal(t, "/work/app", event.CWD)
	assert.Equal(t, "/home/u/.claude/projects/app/abc123.jsonl", event.TranscriptPath)
	assert.Equal(t, "abc123", event.SessionID)
	assert.Equal(t, "exit", event.Metadata["reason"])
	assert.Equal(t, "/work/app", event.WorkingDir())
}

func TestReadEvent_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t"} {
		event, err := ReadEvent(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, &Event{}, event)
	}

	event, err := ReadEvent(nil)
	require.NoError(t, err)
	assert.Empty(t, event.CWD)
	assert.NotEmpty(t, event.WorkingDir())
}

func TestReadEvent_Malformed(t *testing.T) {
	for _, input := range []string{"{not json", `["array"]`, `{"cwd": 42}`} {
		event, err := ReadEvent(strings.NewReader(input))
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), input)
		require.NotNil(t, event)
		assert.Empty(t, event.CWD)
	}
}

func TestReadEvent_TooLarge(t *testing.T) {
	big := `{"cwd":"` + strings.Repeat("a", MaxInputBytes) + `"}`
	_, err := ReadEvent(strings.NewReader(big))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
