// Command waldodemo drives a Pipeline with synthetically generated RGBA
// frames. Each significant mention is logged at info level and published
// onto a report bus; other frames are logged only with -debug. It
// exists to exercise the
// engine end to end without a real camera or video decoder — the
// demo generates its own noise, not a video source; decoding a real
// stream is a separate concern this command never touches.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	waldovision "github.com/TheGonzalezDesigns/waldo-vision"
	"github.com/TheGonzalezDesigns/waldo-vision/config"
	"github.com/TheGonzalezDesigns/waldo-vision/reportbus"
)

const version = "v0.1.0"

type demoConfig struct {
	ConfigPath string

	ImageWidth  int
	ImageHeight int
	ChunkWidth  int
	ChunkHeight int

	FrameCount int
	Seed       int64

	IntruderFrame int

	Debug bool
}

func main() {
	cfg := parseFlags()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	printBanner(cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, stopping after current frame")
		close(stop)
	}()

	if err := run(cfg, logger, stop); err != nil {
		logger.Error("demo run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("demo finished")
}

func parseFlags() demoConfig {
	var cfg demoConfig

	flag.StringVar(&cfg.ConfigPath, "config", "", "YAML PipelineConfig file (optional, overrides -width/-height/-chunk-width/-chunk-height)")
	flag.IntVar(&cfg.ImageWidth, "width", 320, "synthetic frame width in pixels")
	flag.IntVar(&cfg.ImageHeight, "height", 240, "synthetic frame height in pixels")
	flag.IntVar(&cfg.ChunkWidth, "chunk-width", 16, "chunk width in pixels")
	flag.IntVar(&cfg.ChunkHeight, "chunk-height", 16, "chunk height in pixels")
	flag.IntVar(&cfg.FrameCount, "frames", 200, "number of synthetic frames to generate")
	flag.Int64Var(&cfg.Seed, "seed", 1, "PRNG seed for synthetic noise")
	flag.IntVar(&cfg.IntruderFrame, "intruder-at", 120, "frame index at which a synthetic bright intruder blob appears (0 disables it)")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	flag.Parse()

	return cfg
}

func run(demo demoConfig, logger *slog.Logger, stop <-chan struct{}) error {
	pipelineCfg, err := loadPipelineConfig(demo)
	if err != nil {
		return fmt.Errorf("failed to build pipeline config: %w", err)
	}

	pipeline, err := waldovision.New(pipelineCfg)
	if err != nil {
		return fmt.Errorf("failed to construct pipeline: %w", err)
	}

	bus := reportbus.New()
	defer bus.Close()

	analyzerCh := make(chan reportbus.Report, 4)
	if err := bus.Subscribe("demo-analyzer", analyzerCh); err != nil {
		return fmt.Errorf("failed to subscribe demo analyzer: %w", err)
	}
	defer close(analyzerCh)
	go func() {
		for r := range analyzerCh {
			logger.Debug("demo analyzer received mention", "frame", r.Frame, "trace_id", r.Analysis.TraceID)
		}
	}()

	rng := rand.New(rand.NewSource(demo.Seed))
	frameSize := pipelineCfg.ImageWidth * pipelineCfg.ImageHeight * 4
	buf := make([]byte, frameSize)

	for i := 0; i < demo.FrameCount; i++ {
		select {
		case <-stop:
			return nil
		default:
		}

		fillSyntheticFrame(buf, pipelineCfg.ImageWidth, pipelineCfg.ImageHeight, rng, demo.IntruderFrame > 0 && i >= demo.IntruderFrame)

		analysis, err := pipeline.ProcessFrame(buf)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		if analysis.Report.Kind == waldovision.SignificantMention {
			logger.Info("significant mention",
				"frame", i,
				"trace_id", analysis.TraceID,
				"scene_state", analysis.SceneState.String(),
				"new_moments", len(analysis.Report.Mention.NewSignificantMoments),
				"completed_moments", len(analysis.Report.Mention.CompletedSignificantMoments),
				"global_disturbance", analysis.Report.Mention.IsGlobalDisturbance,
			)
			bus.Publish(reportbus.Report{Frame: uint64(i), Analysis: analysis})
		} else {
			logger.Debug("frame processed", "frame", i, "scene_state", analysis.SceneState.String(), "tracked_blobs", len(analysis.TrackedBlobs))
		}
	}

	return nil
}

func loadPipelineConfig(demo demoConfig) (waldovision.PipelineConfig, error) {
	if demo.ConfigPath != "" {
		return config.Load(demo.ConfigPath)
	}
	return waldovision.DefaultPipelineConfig(demo.ImageWidth, demo.ImageHeight, demo.ChunkWidth, demo.ChunkHeight), nil
}

// fillSyntheticFrame writes Gaussian luma noise around mid-gray into buf,
// optionally stamping a small bright square near the center to simulate
// an intruding object once the scene has calibrated.
func fillSyntheticFrame(buf []byte, width, height int, rng *rand.Rand, intruder bool) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := 128 + int(rng.NormFloat64()*6)
			base = clampByte(base)
			offset := (y*width + x) * 4
			buf[offset+0] = byte(base)
			buf[offset+1] = byte(base)
			buf[offset+2] = byte(base)
			buf[offset+3] = 255
		}
	}

	if !intruder {
		return
	}

	cx, cy := width/2, height/2
	radius := int(math.Max(4, float64(width)/32))
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			if x < 0 || y < 0 || x >= width || y >= height {
				continue
			}
			offset := (y*width + x) * 4
			buf[offset+0] = 240
			buf[offset+1] = 40
			buf[offset+2] = 40
			buf[offset+3] = 255
		}
	}
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func printBanner(cfg demoConfig) {
	fmt.Println("================================================================")
	fmt.Printf("  waldodemo %s — synthetic-frame pipeline driver\n", version)
	fmt.Println("================================================================")
	fmt.Printf("  Geometry:      %dx%d pixels, %dx%d chunks\n", cfg.ImageWidth, cfg.ImageHeight, cfg.ChunkWidth, cfg.ChunkHeight)
	fmt.Printf("  Frames:        %d (seed %d)\n", cfg.FrameCount, cfg.Seed)
	if cfg.IntruderFrame > 0 {
		fmt.Printf("  Intruder:      appears at frame %d\n", cfg.IntruderFrame)
	}
	if cfg.ConfigPath != "" {
		fmt.Printf("  Config file:   %s\n", cfg.ConfigPath)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop early")
	fmt.Println("================================================================")
	fmt.Println()
}
