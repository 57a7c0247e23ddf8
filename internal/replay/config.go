package replay

import (
	"fmt"
	"time"

	"github.com/aurora-data/daq.replay/internal/daq"
)

// Config carries every emission parameter of a run. It is immutable once
// the controller is constructed; there is no process-wide mutable state.
type Config struct {
	// OutputDir is the root of the filesystem handoff tree.
	OutputDir string
	// OutputRunID identifies the emitted run in the metadata registry.
	OutputRunID string

	// CodecName selects the compression codec by name. Resolved once at
	// startup.
	CodecName string
	// Readers is the number of simulated reader channels.
	Readers int
	// TotalChannels is the detector channel count. Zero means take it from
	// the input run header.
	TotalChannels int

	// MainWindow and SyncWindow are the alternating window durations.
	MainWindow time.Duration
	SyncWindow time.Duration

	// TargetRate is the fixed-rate pacing target in bytes per second.
	// Zero disables fixed-rate pacing.
	TargetRate float64
	// Realtime matches replay cadence to the original acquisition cadence.
	// Mutually exclusive with TargetRate.
	Realtime bool

	// MaxBytes stops the run once this many raw partition bytes have been
	// emitted. Zero means unlimited.
	MaxBytes int64

	// BaselineK is the baseline constant restored by normalization.
	BaselineK int16

	// SamplePeriod is the digitizer sample period every record timestamp
	// must align to.
	SamplePeriod time.Duration
}

// withDefaults fills zero values that have well-known defaults.
func (c Config) withDefaults() Config {
	if c.BaselineK == 0 {
		c.BaselineK = DefaultBaseline
	}
	if c.SamplePeriod == 0 {
		c.SamplePeriod = daq.SamplePeriodNanos * time.Nanosecond
	}
	return c
}

// Validate checks the configuration-error taxonomy: everything here is
// fatal at startup, before any output appears.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.OutputRunID == "" {
		return fmt.Errorf("output run id is required")
	}
	if _, err := LookupCodec(c.CodecName); err != nil {
		return err
	}
	if c.Readers <= 0 {
		return fmt.Errorf("reader count must be positive, got %d", c.Readers)
	}
	if c.MainWindow <= 0 {
		return fmt.Errorf("main window duration must be positive, got %v", c.MainWindow)
	}
	if c.SyncWindow <= 0 {
		return fmt.Errorf("sync window duration must be positive, got %v", c.SyncWindow)
	}
	if c.TargetRate < 0 {
		return fmt.Errorf("target rate must be non-negative, got %v", c.TargetRate)
	}
	if c.Realtime && c.TargetRate > 0 {
		return fmt.Errorf("realtime pacing and a target rate are mutually exclusive")
	}
	if c.MaxBytes < 0 {
		return fmt.Errorf("max bytes must be non-negative, got %d", c.MaxBytes)
	}
	if c.BaselineK <= 0 {
		return fmt.Errorf("baseline constant must be positive, got %d", c.BaselineK)
	}
	if c.SamplePeriod <= 0 {
		return fmt.Errorf("sample period must be positive, got %v", c.SamplePeriod)
	}
	return nil
}

// PaceMode derives the pacing mode from the configuration.
func (c Config) PaceMode() PaceMode {
	switch {
	case c.Realtime:
		return PaceRealtime
	case c.TargetRate > 0:
		return PaceFixedRate
	default:
		return PaceImmediate
	}
}
