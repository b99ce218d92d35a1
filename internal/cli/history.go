package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// historyDoc is the on-disk form of the lookup history.
type historyDoc struct {
	Lookups []time.Time `json:"lookups"`
}

// loadHistory reads committed lookup times. A missing file is an empty history.
func loadHistory(path string) ([]time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var doc historyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse history file %s: %w", path, err)
	}
	return doc.Lookups, nil
}

// saveHistory writes lookup times atomically through a temp file in the same
// directory.
func saveHistory(path string, times []time.Time) error {
	if times == nil {
		times = []time.Time{}
	}
	data, err := json.MarshalIndent(historyDoc{Lookups: times}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".shieldctl-history-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}
	tmp = nil

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set history permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
