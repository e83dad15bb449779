package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest describes one batch run.
type Manifest struct {
	Algorithm string    `json:"algorithm"`
	Levels    int       `json:"levels"`
	Threaded  bool      `json:"threaded"`
	Created   time.Time `json:"created"`
	Results   []Result  `json:"results"`
}

// NewManifest records cfg's run parameters alongside results.
func NewManifest(cfg Config, results []Result) Manifest {
	return Manifest{
		Algorithm: cfg.Algorithm,
		Levels:    cfg.Levels,
		Threaded:  cfg.Threaded,
		Created:   time.Now().UTC(),
		Results:   results,
	}
}

// WriteManifest writes m as indented JSON to path, creating its directory.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	return nil
}
