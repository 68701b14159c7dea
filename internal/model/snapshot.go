package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type snapshot struct {
	Normalizer *Normalizer `json:"normalizer"`
	Classifier *Classifier `json:"classifier"`
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", path, err)
	}
	if snap.Normalizer == nil || snap.Classifier == nil {
		return nil, fmt.Errorf("incomplete snapshot %s", path)
	}
	return &snap, nil
}

// writeSnapshot writes to a temp file in the target directory and
// renames it into place, so readers never see a partial snapshot.
func writeSnapshot(path string, snap *snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "model-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}
