package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileTimes holds the timestamps used to attribute a log file to a session.
// BirthTime is zero when the platform or filesystem does not record it.
type FileTimes struct {
	ModTime   time.Time
	BirthTime time.Time
}

// FileTimesFunc reports the timestamps of a file.
type FileTimesFunc func(path string) (FileTimes, error)

// StatTimes reads file times from the filesystem.
func StatTimes(path string) (FileTimes, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileTimes{}, err
	}
	return FileTimes{ModTime: info.ModTime(), BirthTime: birthTime(path)}, nil
}

// Reasons a log file was selected.
const (
	ReasonSessionID = "session_id"
	ReasonModified  = "modified"
	ReasonCreated   = "created"
)

// Candidate is a session log file selected for capture.
type Candidate struct {
	Path   string
	Name   string
	Reason string
}

// DiscoverLogs lists the *.jsonl files in dir that belong to the session: a
// file whose name contains sessionID, or whose modification or creation time
// is at or after start. Files whose times cannot be read are skipped.
// Results are sorted by name.
func DiscoverLogs(dir, sessionID string, start time.Time, times FileTimesFunc) ([]Candidate, error) {
	if times == nil {
		times = StatTimes
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var selected []Candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != LogExt {
			continue
		}
		path := filepath.Join(dir, name)

		if sessionID != "" && strings.Contains(name, sessionID) {
			selected = append(selected, Candidate{Path: path, Name: name, Reason: ReasonSessionID})
			continue
		}

		ft, err := times(path)
		if err != nil {
			continue
		}
		switch {
		case !ft.ModTime.IsZero() && !ft.ModTime.Before(start):
			selected = append(selected, Candidate{Path: path, Name: name, Reason: ReasonModified})
		case !ft.BirthTime.IsZero() && !ft.BirthTime.Before(start):
			selected = append(selected, Candidate{Path: path, Name: name, Reason: ReasonCreated})
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })
	return selected, nil
}
