// Package journal appends one JSON line per encounter outcome. It records the
// template version each chart was generated with, which the chart log itself
// does not carry.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	EventCompleted = "completed"
	EventFailed    = "failed"
)

type Entry struct {
	Timestamp       string `json:"ts"`
	EncounterID     string `json:"encounter_id"`
	Event           string `json:"event"`
	Service         string `json:"service,omitempty"`
	Template        string `json:"template"`
	TemplateVersion int    `json:"template_version"`
	Date            string `json:"date,omitempty"`
	Time            string `json:"time,omitempty"`
	ErrorKind       string `json:"error_kind,omitempty"`
	Persisted       bool   `json:"persisted"`
}

type Journal struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func New(path string) *Journal {
	return &Journal{path: filepath.Clean(path), now: time.Now}
}

func (j *Journal) Path() string {
	return j.path
}

// Write appends e, filling Timestamp when empty.
func (j *Journal) Write(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Timestamp == "" {
		e.Timestamp = j.now().Format(time.RFC3339Nano)
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}
