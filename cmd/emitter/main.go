// Command emitter replays a recorded detector run through the chunked,
// compressed, paced filesystem handoff protocol, standing in for a live
// acquisition system.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/aurora-data/daq.replay/internal/config"
	"github.com/aurora-data/daq.replay/internal/daq"
	"github.com/aurora-data/daq.replay/internal/db"
	"github.com/aurora-data/daq.replay/internal/fsutil"
	"github.com/aurora-data/daq.replay/internal/replay"
)

var (
	inDir      = flag.String("in", "", "Input run directory (required)")
	outDir     = flag.String("out", "", "Output directory for emitted chunks (required)")
	runID      = flag.String("run", "", "Output run id (default: generated)")
	registry   = flag.String("registry", "", "Run registry database path (default: <out>/registry.db)")
	codec      = flag.String("codec", "zstd", "Compression codec")
	readers    = flag.Int("readers", 4, "Number of simulated readers")
	mainWindow = flag.Duration("main-window", time.Second, "Data window duration")
	syncWindow = flag.Duration("sync-window", 100*time.Millisecond, "Sync window duration")
	rate       = flag.Float64("rate", 0, "Target throughput in bytes/sec (0 = as fast as possible)")
	realtime   = flag.Bool("realtime", false, "Match the original acquisition cadence")
	maxBytes   = flag.Int64("max-bytes", 0, "Stop after this many raw bytes (0 = unlimited)")
	baseline   = flag.Int("baseline", replay.DefaultBaseline, "Baseline constant restored by normalization")
	configPath = flag.String("config", "", "JSON config file; overrides flag values it sets")
)

func main() {
	flag.Parse()

	if *inDir == "" || *outDir == "" {
		log.Fatal("-in and -out are required")
	}
	if *runID == "" {
		*runID = "replay-" + uuid.NewString()[:8]
	}
	if *registry == "" {
		*registry = filepath.Join(*outDir, "registry.db")
	}

	cfg := replay.Config{
		OutputDir:   *outDir,
		OutputRunID: *runID,
		CodecName:   *codec,
		Readers:     *readers,
		MainWindow:  *mainWindow,
		SyncWindow:  *syncWindow,
		TargetRate:  *rate,
		Realtime:    *realtime,
		MaxBytes:    *maxBytes,
		BaselineK:   int16(*baseline),
	}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		fileCfg.Apply(&cfg)
	}

	src, err := daq.OpenDirSource(*inDir)
	if err != nil {
		log.Fatalf("failed to open input run: %v", err)
	}

	reg, err := db.New(*registry)
	if err != nil {
		log.Fatalf("failed to open run registry: %v", err)
	}
	defer reg.Close()

	controller, err := replay.NewController(cfg, src, reg, fsutil.OSFileSystem{})
	if err != nil {
		log.Fatalf("failed to build replay pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := controller.Run(ctx); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	log.Printf("run %s complete", cfg.OutputRunID)
}
