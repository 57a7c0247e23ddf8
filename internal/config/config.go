// Package config loads emitter configuration from JSON files. Fields are
// pointers so a partial config overrides only the options it names; the
// same schema backs the -config flag of cmd/emitter.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aurora-data/daq.replay/internal/replay"
)

// maxFileSize bounds config files read from disk (1MB).
const maxFileSize = 1 * 1024 * 1024

// EmitterConfig mirrors the emission options of replay.Config. Durations
// are strings like "2ms" or "200ns".
type EmitterConfig struct {
	Codec      *string  `json:"codec,omitempty"`
	Readers    *int     `json:"readers,omitempty"`
	MainWindow *string  `json:"main_window,omitempty"`
	SyncWindow *string  `json:"sync_window,omitempty"`
	TargetRate *float64 `json:"target_rate_bytes_per_sec,omitempty"`
	Realtime   *bool    `json:"realtime,omitempty"`
	MaxBytes   *int64   `json:"max_output_bytes,omitempty"`
	Baseline   *int     `json:"baseline,omitempty"`
}

// Load reads and validates an EmitterConfig from a JSON file.
func Load(path string) (*EmitterConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &EmitterConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field-level constraints. Cross-field constraints (like
// realtime versus target rate) are checked by replay.Config.Validate once
// everything is merged.
func (c *EmitterConfig) Validate() error {
	if c.Codec != nil {
		if _, err := replay.LookupCodec(*c.Codec); err != nil {
			return err
		}
	}
	if c.Readers != nil && *c.Readers <= 0 {
		return fmt.Errorf("readers must be positive, got %d", *c.Readers)
	}
	for name, v := range map[string]*string{"main_window": c.MainWindow, "sync_window": c.SyncWindow} {
		if v == nil {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s duration %q: %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", name, *v)
		}
	}
	if c.TargetRate != nil && *c.TargetRate < 0 {
		return fmt.Errorf("target_rate_bytes_per_sec must be non-negative, got %v", *c.TargetRate)
	}
	if c.MaxBytes != nil && *c.MaxBytes < 0 {
		return fmt.Errorf("max_output_bytes must be non-negative, got %d", *c.MaxBytes)
	}
	if c.Baseline != nil && (*c.Baseline <= 0 || *c.Baseline > 1<<15-1) {
		return fmt.Errorf("baseline must be in (0, 32767], got %d", *c.Baseline)
	}
	return nil
}

// Apply overrides the fields of target that this config sets. Durations
// were validated by Load, so parse errors cannot occur here.
func (c *EmitterConfig) Apply(target *replay.Config) {
	if c.Codec != nil {
		target.CodecName = *c.Codec
	}
	if c.Readers != nil {
		target.Readers = *c.Readers
	}
	if c.MainWindow != nil {
		target.MainWindow, _ = time.ParseDuration(*c.MainWindow)
	}
	if c.SyncWindow != nil {
		target.SyncWindow, _ = time.ParseDuration(*c.SyncWindow)
	}
	if c.TargetRate != nil {
		target.TargetRate = *c.TargetRate
	}
	if c.Realtime != nil {
		target.Realtime = *c.Realtime
	}
	if c.MaxBytes != nil {
		target.MaxBytes = *c.MaxBytes
	}
	if c.Baseline != nil {
		target.BaselineK = int16(*c.Baseline)
	}
}
