package replay

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aurora-data/daq.replay/internal/daq"
	"github.com/aurora-data/daq.replay/internal/fsutil"
	"github.com/aurora-data/daq.replay/internal/monitoring"
)

// MetadataSink persists run metadata. PutRun is write-once per run id and
// is called before any chunk is published, so metadata is available even
// if the run is interrupted.
type MetadataSink interface {
	PutRun(runID string, meta map[string]string) error
}

// Controller owns the input source and drives the pipeline end to end:
// chunker, normalizer, partitioner, compressor, pacer, writer, and finally
// the terminal sentinel.
type Controller struct {
	cfg    Config
	src    daq.Source
	sink   MetadataSink
	writer *ChunkWriter
	pacer  *Pacer
	codec  Codec

	channels int
	lastTime int64
}

// publication is one window's compressed output, ready for the writer.
// During the fixed-rate pre-pass these are what is buffered: the raw
// record windows are dropped as soon as their blocks exist.
type publication struct {
	index    int
	blocks   [][]byte
	rawBytes int64
}

// NewController validates cfg and assembles the pipeline. All
// configuration errors surface here, before any output appears.
func NewController(cfg Config, src daq.Source, sink MetadataSink, fs fsutil.FileSystem) (*Controller, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	codec, err := LookupCodec(cfg.CodecName)
	if err != nil {
		return nil, err
	}

	channels := cfg.TotalChannels
	if channels == 0 {
		channels = src.Header().Channels
	}
	if channels <= 0 {
		return nil, fmt.Errorf("input run declares no channels and none were configured")
	}

	writer, err := NewChunkWriter(fs, cfg.OutputDir, cfg.Readers)
	if err != nil {
		return nil, err
	}

	return &Controller{
		cfg:      cfg,
		src:      src,
		sink:     sink,
		writer:   writer,
		pacer:    NewPacer(cfg.PaceMode(), cfg.MainWindow, cfg.SyncWindow, cfg.TargetRate),
		codec:    codec,
		channels: channels,
		lastTime: -1,
	}, nil
}

// Run replays the input run to completion, the configured size cap, or
// context cancellation. The terminal sentinel is written on both normal
// exhaustion and the size-cap early-termination path.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.putMetadata(); err != nil {
		return err
	}

	chunker := NewChunker(c.src, c.cfg.MainWindow, c.cfg.SyncWindow)
	mode := c.cfg.PaceMode()
	monitoring.Logf("replaying run %s: %d channels, %d readers, codec %s, pacing %s",
		c.cfg.OutputRunID, c.channels, c.cfg.Readers, c.codec.Name, mode)

	var err error
	if mode == PaceFixedRate {
		err = c.runFixedRate(ctx, chunker)
	} else {
		err = c.runStreaming(ctx, chunker)
	}
	if err != nil {
		return err
	}

	if err := c.writer.WriteEnd(); err != nil {
		return err
	}
	if misses := c.pacer.Misses(); misses > 0 {
		monitoring.Logf("run %s finished with %d pacing misses", c.cfg.OutputRunID, misses)
	}
	return nil
}

// runStreaming publishes windows one at a time (immediate and realtime
// modes).
func (c *Controller) runStreaming(ctx context.Context, chunker *Chunker) error {
	var total int64
	for {
		c.pacer.BeginWindow()

		w, err := chunker.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		pub, err := c.produce(w)
		if err != nil {
			return err
		}
		if err := c.pacer.WaitPublish(ctx, pub.index, pub.rawBytes); err != nil {
			return err
		}
		if err := c.writer.WriteWindow(pub.index, pub.blocks); err != nil {
			return err
		}

		total += pub.rawBytes
		if c.capReached(total) {
			return nil
		}
	}
}

// runFixedRate pulls the whole stream through the pipeline into memory
// first, reports the planned totals, then replays the buffered blocks at
// the target rate.
func (c *Controller) runFixedRate(ctx context.Context, chunker *Chunker) error {
	var pubs []publication
	var total int64
	for {
		w, err := chunker.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		pub, err := c.produce(w)
		if err != nil {
			return err
		}
		pubs = append(pubs, pub)
		total += pub.rawBytes
		if c.capReached(total) {
			break
		}
	}

	planned := time.Duration(float64(total) / c.cfg.TargetRate * float64(time.Second))
	monitoring.Logf("buffered %d windows, %d raw bytes; replay at %.0f B/s will take %v",
		len(pubs), total, c.cfg.TargetRate, planned.Round(time.Millisecond))

	for _, pub := range pubs {
		c.pacer.BeginWindow()
		if err := c.pacer.WaitPublish(ctx, pub.index, pub.rawBytes); err != nil {
			return err
		}
		if err := c.writer.WriteWindow(pub.index, pub.blocks); err != nil {
			return err
		}
	}
	return nil
}

// produce runs one window through normalize, partition, serialize and
// compress. Invariant checks run first, on the raw records: a misaligned
// or non-monotonic timestamp means the input data is defective and
// continuing would silently corrupt chunk boundaries.
func (c *Controller) produce(w *Window) (publication, error) {
	period := c.cfg.SamplePeriod.Nanoseconds()
	for i := range w.Records {
		r := &w.Records[i]
		if r.Time%period != 0 {
			return publication{}, fmt.Errorf(
				"record time %d (channel %d) is not aligned to the %dns sample period",
				r.Time, r.Channel, period)
		}
		if r.Time < c.lastTime {
			return publication{}, fmt.Errorf(
				"record time %d (channel %d) is out of order (previous %d)",
				r.Time, r.Channel, c.lastTime)
		}
		c.lastTime = r.Time
		if ch := int(r.Channel); ch < 0 || ch >= c.channels {
			return publication{}, fmt.Errorf(
				"record at %d has channel %d outside [0, %d)", r.Time, r.Channel, c.channels)
		}
	}

	NormalizeBaseline(w, c.cfg.BaselineK)

	parts := PartitionReaders(w, c.cfg.Readers, c.channels)
	blocks := make([][]byte, len(parts))
	var rawBytes int64
	for r, part := range parts {
		raw := daq.EncodeRecords(part)
		rawBytes += int64(len(raw))
		block, err := c.codec.Encode(raw)
		if err != nil {
			return publication{}, fmt.Errorf("window %d reader %d: %w", w.Index, r, err)
		}
		blocks[r] = block
	}
	return publication{index: w.Index, blocks: blocks, rawBytes: rawBytes}, nil
}

// capReached reports whether the cumulative-size stop condition fired.
// Reaching the cap is a normal early-termination path, not an error.
func (c *Controller) capReached(total int64) bool {
	if c.cfg.MaxBytes > 0 && total >= c.cfg.MaxBytes {
		monitoring.Logf("size cap reached (%d of %d bytes), stopping run", total, c.cfg.MaxBytes)
		return true
	}
	return false
}

// putMetadata copies the input run's descriptive metadata, augments it
// with the emission parameters, and hands it to the sink.
func (c *Controller) putMetadata() error {
	h := c.src.Header()
	meta := map[string]string{
		"source_run_id":  h.RunID,
		"start_ns":       strconv.FormatInt(h.StartNs, 10),
		"end_ns":         strconv.FormatInt(h.EndNs, 10),
		"channels":       strconv.Itoa(c.channels),
		"total_records":  strconv.FormatUint(h.TotalRecords, 10),
		"codec":          c.codec.Name,
		"readers":        strconv.Itoa(c.cfg.Readers),
		"pace_mode":      c.cfg.PaceMode().String(),
		"main_window_ns": strconv.FormatInt(c.cfg.MainWindow.Nanoseconds(), 10),
		"sync_window_ns": strconv.FormatInt(c.cfg.SyncWindow.Nanoseconds(), 10),
	}
	if c.cfg.TargetRate > 0 {
		meta["target_rate"] = strconv.FormatFloat(c.cfg.TargetRate, 'f', -1, 64)
	}
	if c.cfg.MaxBytes > 0 {
		meta["max_bytes"] = strconv.FormatInt(c.cfg.MaxBytes, 10)
	}
	if err := c.sink.PutRun(c.cfg.OutputRunID, meta); err != nil {
		return fmt.Errorf("failed to record run metadata: %w", err)
	}
	return nil
}
