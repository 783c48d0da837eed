// Package checkpoint persists pagination progress so that an interrupted run
// can resume from the page it had reached instead of starting over.
package checkpoint

import (
	"encoding/json"
	"os"
	"time"

	"storyscraper/pkg/logger"
)

// Record is the persisted checkpoint: the token of the next page that has not
// yet been confirmed complete, plus the time the record was written.
type Record struct {
	PageToken string `json:"page_token"`
	Timestamp int64  `json:"timestamp"`
}

// Manager reads and writes the checkpoint file. Loading is lenient: a missing
// or unreadable checkpoint simply means the run starts from the beginning.
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a checkpoint manager backed by the given file path
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		path:   path,
		logger: log,
	}
}

// Load returns the saved page token, or the empty string when there is no
// usable checkpoint. Corrupt files are logged and ignored, never fatal.
func (m *Manager) Load() string {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.WithError(err).Warn("failed to read checkpoint, starting from the beginning")
		}
		return ""
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		m.logger.WithError(err).Warn("checkpoint is corrupt, starting from the beginning")
		return ""
	}

	if record.PageToken != "" {
		m.logger.InfoWithFields("resuming from checkpoint", map[string]interface{}{
			"page_token": record.PageToken,
		})
	}
	return record.PageToken
}

// Save writes the given token as the new checkpoint, overwriting any existing
// record. The write is atomic (temp file + rename).
func (m *Manager) Save(token string) error {
	record := Record{
		PageToken: token,
		Timestamp: time.Now().Unix(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return err
	}

	return nil
}

// Delete removes the checkpoint file, marking the run as complete
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether a checkpoint file is present
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
