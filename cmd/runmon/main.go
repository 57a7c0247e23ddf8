// Command runmon polls an emitter output directory and prints chunk
// counts, throughput and an ETA until the terminal sentinel appears.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/aurora-data/daq.replay/internal/db"
	"github.com/aurora-data/daq.replay/internal/replay"
)

// rateWindow is how many recent samples the smoothed throughput averages
// over.
const rateWindow = 10

var (
	dir      = flag.String("dir", "", "Emitter output directory (required)")
	interval = flag.Duration("interval", 2*time.Second, "Polling interval")
	registry = flag.String("registry", "", "Run registry database path (optional, enables ETA)")
	runID    = flag.String("run", "", "Run id to look up in the registry")
	chart    = flag.String("chart", "", "Write an HTML throughput chart to this path on exit")
)

func main() {
	flag.Parse()
	if *dir == "" {
		log.Fatal("-dir is required")
	}

	expectedDirs := loadExpectedDirs()

	var samples []float64 // MB/s per poll
	var labels []string
	lastBytes := int64(-1)
	lastPoll := time.Now()
	start := time.Now()

	for {
		bytes, dirs, done := scanOutput(*dir)
		now := time.Now()

		if lastBytes >= 0 {
			dt := now.Sub(lastPoll).Seconds()
			mbps := float64(bytes-lastBytes) / dt / 1e6
			samples = append(samples, mbps)
			labels = append(labels, now.Format("15:04:05"))

			recent := samples
			if len(recent) > rateWindow {
				recent = recent[len(recent)-rateWindow:]
			}
			smoothed := stat.Mean(recent, nil)

			line := fmt.Sprintf("%d chunk dirs, %.1f MB total, %.2f MB/s",
				dirs, float64(bytes)/1e6, smoothed)
			if expectedDirs > 0 && dirs > 0 {
				dirRate := float64(dirs) / now.Sub(start).Seconds()
				if dirRate > 0 {
					eta := time.Duration(float64(expectedDirs-dirs) / dirRate * float64(time.Second))
					line += fmt.Sprintf(", ETA %v", eta.Round(time.Second))
				}
			}
			log.Print(line)
		}
		lastBytes, lastPoll = bytes, now

		if done {
			log.Printf("sentinel found after %v; run complete", time.Since(start).Round(time.Second))
			break
		}
		time.Sleep(*interval)
	}

	if *chart != "" {
		if err := writeChart(*chart, labels, samples); err != nil {
			log.Fatalf("failed to write chart: %v", err)
		}
		log.Printf("throughput chart written to %s", *chart)
	}
}

// scanOutput walks the output tree once, returning the total published
// bytes, the number of published chunk directories, and whether the
// terminal sentinel is present. Staging (_temp) directories are invisible
// to consumers and are skipped.
func scanOutput(dir string) (bytes int64, dirs int, done bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, false
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasSuffix(e.Name(), "_temp") {
			continue
		}
		if e.Name() == replay.EndMarker {
			done = true
			continue
		}
		dirs++
		files, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if info, err := f.Info(); err == nil {
				bytes += info.Size()
			}
		}
	}
	return bytes, dirs, done
}

// loadExpectedDirs estimates the total number of chunk directories from
// the registry metadata, if a registry and run id were given. A main+sync
// window pair publishes three directories (one main, two sync aliases).
func loadExpectedDirs() int {
	if *registry == "" || *runID == "" {
		return 0
	}
	reg, err := db.New(*registry)
	if err != nil {
		log.Printf("registry unavailable, no ETA: %v", err)
		return 0
	}
	defer reg.Close()

	meta, err := reg.RunMetadata(*runID)
	if err != nil {
		log.Printf("run %s not in registry, no ETA: %v", *runID, err)
		return 0
	}

	startNs, err1 := strconv.ParseInt(meta["start_ns"], 10, 64)
	endNs, err2 := strconv.ParseInt(meta["end_ns"], 10, 64)
	mainNs, err3 := strconv.ParseInt(meta["main_window_ns"], 10, 64)
	syncNs, err4 := strconv.ParseInt(meta["sync_window_ns"], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || mainNs+syncNs == 0 {
		return 0
	}

	span := endNs - startNs
	pairs := span / (mainNs + syncNs)
	rem := span % (mainNs + syncNs)
	dirs := int(pairs) * 3
	if rem > 0 {
		dirs++ // trailing main window
		if rem > mainNs {
			dirs += 2 // and its sync boundary
		}
	}
	return dirs
}

// writeChart renders the collected throughput samples as a line chart.
func writeChart(path string, labels []string, samples []float64) error {
	data := make([]opts.LineData, len(samples))
	for i, s := range samples {
		data[i] = opts.LineData{Value: s}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Replay throughput", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Replay throughput", Subtitle: "MB/s per poll"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels).AddSeries("MB/s", data)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}
