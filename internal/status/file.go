package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FilePersister stores the status document as a single JSON file, the
// default for single-host deployments. Writes go through a temp file and
// rename so a crash mid-write never leaves a torn document.
type FilePersister struct {
	path string
}

// NewFilePersister creates a file-backed persister, ensuring the parent
// directory exists.
func NewFilePersister(path string) (*FilePersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating status directory: %w", err)
	}
	return &FilePersister{path: path}, nil
}

// Load reads the status document. found is false when the file does not
// exist yet.
func (f *FilePersister) Load() (*AutomationStatus, bool, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading status file: %w", err)
	}

	var st AutomationStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("parsing status file %s: %w", f.path, err)
	}
	return &st, true, nil
}

// Save atomically replaces the status document.
func (f *FilePersister) Save(st *AutomationStatus) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing status temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing status file: %w", err)
	}
	return nil
}

// RawFields exposes the top-level JSON keys of the persisted document so the
// store can distinguish a missing automationEnabled field from an explicit
// false during schema backfill.
func (f *FilePersister) RawFields() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
