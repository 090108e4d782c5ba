package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovetools/hooks/errors"
)

// LogExt is the extension of transcript and session log files.
const LogExt = ".jsonl"

// maxRecordBytes bounds the first transcript record read for the start time.
const maxRecordBytes = 16 << 20

// IDFromTranscript derives the session identifier from the transcript file
// name: the base name without its .jsonl extension.
func IDFromTranscript(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.SessionIDMissing(path)
	}

	base := filepath.Base(path)
	id := strings.TrimSuffix(base, LogExt)
	if id == "" || id == "." || id == string(filepath.Separator) {
		return "", errors.SessionIDMissing(path)
	}
	return id, nil
}

// StartTime resolves when the session began: the timestamp of the first
// transcript record, or the transcript's creation time when that record has
// no usable timestamp.
func StartTime(path string, times FileTimesFunc) (time.Time, error) {
	if times == nil {
		times = StatTimes
	}

	ts, firstErr := firstRecordTimestamp(path)
	if firstErr == nil {
		return ts, nil
	}

	ft, err := times(path)
	if err == nil && !ft.BirthTime.IsZero() {
		return ft.BirthTime, nil
	}

	return time.Time{}, errors.TranscriptInvalid(path, firstErr)
}

func firstRecordTimestamp(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	line, err := bufio.NewReader(io.LimitReader(f, maxRecordBytes)).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return time.Time{}, err
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return time.Time{}, fmt.Errorf("transcript is empty")
	}

	var record struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(line, &record); err != nil {
		return time.Time{}, fmt.Errorf("first record is not JSON: %w", err)
	}
	if record.Timestamp == "" {
		return time.Time{}, fmt.Errorf("first record has no timestamp")
	}

	ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("first record timestamp: %w", err)
	}
	return ts, nil
}
