// Command elementary-bench drives a Runtime synchronously end to end: it
// builds a small graph via applyInstructions, renders a fixed number of
// blocks, and reports the resulting metrics. It is a minimal, runnable
// example rather than a production tool.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	elementary "github.com/ehrlich-b/elementary"
	"github.com/ehrlich-b/elementary/internal/logging"
	"github.com/ehrlich-b/elementary/internal/value"
)

func main() {
	var (
		blocks     = flag.Int("blocks", 200, "number of blocks to render")
		blockSize  = flag.Int("blocksize", 512, "frames per block")
		sampleRate = flag.Float64("samplerate", 44100, "sample rate in Hz")
		verbose    = flag.Bool("v", false, "verbose logging")
		cpu        = flag.Int("cpu", -1, "pin the render loop to this CPU core (0 or -1 disables pinning)")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)

	rt := elementary.New(elementary.Config{
		SampleRate:     *sampleRate,
		BlockSize:      *blockSize,
		Logger:         logger,
		AudioThreadCPU: *cpu,
	})

	if err := rt.PinAudioThread(); err != nil {
		logger.Warnf("audio thread pinning disabled: %v", err)
	} else {
		defer rt.UnpinAudioThread()
	}

	batch := value.FromArray([]value.Value{
		value.FromArray([]value.Value{value.FromFloat(0), value.FromFloat(1), value.FromString("root")}),
		value.FromArray([]value.Value{value.FromFloat(0), value.FromFloat(2), value.FromString("phasor")}),
		value.FromArray([]value.Value{value.FromFloat(0), value.FromFloat(3), value.FromString("const")}),
		value.FromArray([]value.Value{value.FromFloat(3), value.FromFloat(3), value.FromString("value"), value.FromFloat(220.0)}),
		value.FromArray([]value.Value{value.FromFloat(2), value.FromFloat(2), value.FromFloat(3)}),
		value.FromArray([]value.Value{value.FromFloat(2), value.FromFloat(1), value.FromFloat(2)}),
		value.FromArray([]value.Value{value.FromFloat(4), value.FromArray([]value.Value{value.FromFloat(1)})}),
		value.FromArray([]value.Value{value.FromFloat(5)}),
	})

	if code := rt.ApplyInstructions(batch); code != 0 {
		fmt.Fprintf(os.Stderr, "applyInstructions failed: %s\n", code)
		os.Exit(1)
	}

	out := make([][]float32, 1)
	out[0] = make([]float32, *blockSize)

	start := time.Now()
	for i := 0; i < *blocks; i++ {
		rt.Process(nil, out, *blockSize)
	}
	elapsed := time.Since(start)

	snap := rt.Metrics().Snapshot()
	fmt.Printf("rendered %d blocks (%d frames) in %s\n", *blocks, (*blocks)*(*blockSize), elapsed)
	fmt.Printf("blocks_processed=%d nodes_visited=%d avg_block_ns=%d xruns=%d\n",
		snap.BlocksProcessed, snap.NodesVisited, snap.AvgBlockLatencyNs, snap.Xruns)
}
