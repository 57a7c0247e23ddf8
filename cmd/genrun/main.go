// Command genrun generates a synthetic detector run for testing the
// emitter: square-ish pulses riding on the raw baseline, one record per
// channel at a regular cadence.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/aurora-data/daq.replay/internal/daq"
	"github.com/aurora-data/daq.replay/internal/replay"
)

var (
	out      = flag.String("o", "sample-run", "Output run directory")
	runID    = flag.String("run", "", "Run id (default: generated)")
	channels = flag.Int("channels", 8, "Number of detector channels")
	duration = flag.Duration("duration", 10*time.Millisecond, "Span of generated data")
	cadence  = flag.Duration("cadence", 10*time.Microsecond, "Time between records per channel")
	samples  = flag.Int("samples", 64, "Waveform samples per record")
	seed     = flag.Int64("seed", 1, "PRNG seed")
)

func main() {
	flag.Parse()
	if *runID == "" {
		*runID = "gen-" + uuid.NewString()[:8]
	}

	// Record times must stay aligned to the digitizer sample period.
	step := (*cadence).Nanoseconds() / daq.SamplePeriodNanos * daq.SamplePeriodNanos
	if step <= 0 {
		log.Fatalf("cadence %v is below the %dns sample period", *cadence, daq.SamplePeriodNanos)
	}

	rec, err := daq.NewRecorder(*out, *runID, *channels)
	if err != nil {
		log.Fatalf("failed to create run: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	count := 0
	for ts := int64(0); ts < (*duration).Nanoseconds(); ts += step {
		for ch := 0; ch < *channels; ch++ {
			r := synthRecord(rng, ts, int32(ch), *samples)
			if err := rec.Record(&r); err != nil {
				log.Fatalf("failed to write record: %v", err)
			}
			count++
		}
	}
	if err := rec.Close(); err != nil {
		log.Fatalf("failed to finalise run: %v", err)
	}
	log.Printf("wrote %d records for %d channels to %s (run %s)", count, *channels, *out, *runID)
}

// synthRecord builds one waveform: baseline noise with a negative-going
// pulse in the middle, the way a PMT trace digitizes.
func synthRecord(rng *rand.Rand, ts int64, ch int32, n int) daq.Record {
	data := make([]int16, n)
	pulseAt := n / 3
	pulseWidth := n / 8
	amplitude := 200 + rng.Intn(1800)
	var area int32
	for i := range data {
		v := replay.DefaultBaseline + rng.Intn(7) - 3
		if i >= pulseAt && i < pulseAt+pulseWidth {
			decay := math.Exp(-float64(i-pulseAt) / float64(pulseWidth))
			v -= int(float64(amplitude) * decay)
		}
		data[i] = int16(v)
		area += int32(replay.DefaultBaseline - v)
	}
	return daq.Record{
		Time:     ts,
		Channel:  ch,
		Baseline: replay.DefaultBaseline + int32(rng.Intn(5)-2),
		Area:     area,
		Length:   int32(n),
		Data:     data,
	}
}
