// Package state reads and rewrites per-feature state records. Records are
// shared with prompts outside this module, so every field is kept verbatim
// and in its original order across a rewrite.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/hooks/errors"
	"github.com/grovetools/hooks/schema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Well-known record fields.
const (
	FieldPhase                = "phase"
	FieldCycle                = "cycle"
	FieldSessionID            = "session_id"
	FieldLastSessionCompleted = "last_session_completed"
)

var jsonNull = json.RawMessage("null")

// Record is one feature's state document.
type Record struct {
	Path    string
	ModTime time.Time

	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// Load reads and parses the record at path. When validator is non-nil the
// document must also satisfy the feature-state schema.
func Load(path string, validator *schema.Validator) (*Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.StateInvalid(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.StateInvalid(path, err)
	}

	record, err := Parse(data)
	if err != nil {
		return nil, errors.StateInvalid(path, err)
	}
	if validator != nil {
		if err := validator.ValidateJSON(data); err != nil {
			return nil, errors.StateInvalid(path, err)
		}
	}

	record.Path = path
	record.ModTime = info.ModTime()
	return record, nil
}

// Parse decodes a JSON object, keeping its key order.
func Parse(data []byte) (*Record, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("not valid JSON")
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("state record must be a JSON object")
	}

	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(trimmed); err != nil {
		return nil, fmt.Errorf("decode state record: %w", err)
	}
	return &Record{fields: fields}, nil
}

// keys returns the field names in document order.
func (r *Record) keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Raw returns the encoded value of a field.
func (r *Record) Raw(key string) (json.RawMessage, bool) {
	return r.fields.Get(key)
}

// StringField returns a string field; ok is false for absent, null or non-string values.
func (r *Record) StringField(key string) (string, bool) {
	raw, present := r.fields.Get(key)
	if !present {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || isNull(raw) {
		return "", false
	}
	return s, true
}

// HasActiveSession reports whether session_id holds a non-null value.
func (r *Record) HasActiveSession() bool {
	raw, present := r.fields.Get(FieldSessionID)
	return present && !isNull(raw)
}

// ClearSession restores the idle invariant: a non-null session_id becomes
// null and last_session_completed is stamped with now. It reports whether
// the record changed; records already idle are left untouched.
func (r *Record) ClearSession(now time.Time) bool {
	if !r.HasActiveSession() {
		return false
	}

	stamp, _ := json.Marshal(now.UTC().Format(time.RFC3339))
	r.fields.Set(FieldSessionID, jsonNull)
	r.fields.Set(FieldLastSessionCompleted, stamp)
	return true
}

// Marshal encodes the record as a 2-space indented JSON object followed by
// a newline. Values are written as they were read.
func (r *Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := encodeKey(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, pair.Value, "  ", "  "); err != nil {
			return nil, fmt.Errorf("encode field %q: %w", pair.Key, err)
		}
	}

	if !first {
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// Save rewrites the record in place through a temporary file in the same
// directory, keeping the original file mode.
func (r *Record) Save() error {
	data, err := r.Marshal()
	if err != nil {
		return errors.StateInvalid(r.Path, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(r.Path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.Path), "."+filepath.Base(r.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}

	if err := os.Rename(tmpName, r.Path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func encodeKey(key string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
