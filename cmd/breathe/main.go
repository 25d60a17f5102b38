// breathe watches a chest through a webcam and logs the breathing phase.
//
// Usage:
//
//	breathe -device /dev/video0 -model models/chest_detector.onnx -web 8080
//
// Settings come from flags, then the environment and a .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-breathe/internal/config"
	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/camera"
	"github.com/teslashibe/go-breathe/pkg/detection"
	"github.com/teslashibe/go-breathe/pkg/overlay"
	"github.com/teslashibe/go-breathe/pkg/pipeline"
	"github.com/teslashibe/go-breathe/pkg/record"
	"github.com/teslashibe/go-breathe/pkg/web"
)

func main() {
	env, dotenv := config.Load()

	device := flag.String("device", env.Device, "Capture device index, path or name")
	preset := flag.String("preset", "", "Camera preset (default, webcam-test, 720p)")
	width := flag.Int("width", env.Width, "Capture width")
	height := flag.Int("height", env.Height, "Capture height")
	fps := flag.Int("fps", env.Framerate, "Capture frame rate")
	replay := flag.String("replay", env.ReplayDir, "Replay images from a directory instead of a camera")
	loop := flag.Bool("loop", false, "Loop the replay")

	model := flag.String("model", env.ModelPath, "Path to the ONNX chest model")
	backend := flag.String("backend", env.Backend, "Detector backend (onnxruntime, opencv, mock)")
	ortLib := flag.String("ort-lib", env.ORTLibPath, "Path to the onnxruntime shared library")
	channelMajor := flag.Bool("channel-major", false, "Model output is [1, stride, slots]")
	noFlip := flag.Bool("no-flip", false, "Feed rows top-down instead of bottom-up")

	accept := flag.Float64("accept", env.AcceptanceThreshold, "Minimum detection confidence (exclusive)")
	breathingT := flag.Float64("breathing-threshold", env.BreathingThreshold, "Relative change that flips the phase")
	statusT := flag.Float64("status-threshold", env.StatusThreshold, "Relative change reported as Inhale/Exhale")
	readyTimeout := flag.Duration("ready-timeout", env.ReadyTimeout, "How long to wait for the camera")

	webPort := flag.String("web", env.WebPort, "Dashboard port (empty to disable)")
	recordPath := flag.String("record", env.RecordPath, "CSV file to record results to (empty to disable)")
	logLevel := flag.String("log-level", env.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*logLevel)
	logger := log.L()
	if dotenv {
		logger.Debug("loaded .env")
	}

	camCfg := camera.DefaultConfig()
	if *preset != "" {
		p := camera.GetPreset(*preset)
		if p == nil {
			logger.Error("unknown camera preset", "preset", *preset, "available", camera.PresetNames())
			os.Exit(2)
		}
		camCfg = *p
	} else {
		camCfg.Width, camCfg.Height, camCfg.Framerate = *width, *height, *fps
	}
	camCfg.Device = *device
	camCfg.ReadyTimeout = *readyTimeout

	detCfg := detection.DefaultConfig()
	detCfg.Backend = *backend
	detCfg.ModelPath = *model
	detCfg.RuntimeLibPath = *ortLib
	detCfg.Grid.ChannelMajor = *channelMajor
	detCfg.FlipVertical = !*noFlip

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.AcceptanceThreshold = *accept
	pipeCfg.Breathing.BreathingThreshold = *breathingT
	pipeCfg.Breathing.StatusThreshold = *statusT
	pipeCfg.ReadyTimeout = camCfg.ReadyTimeout
	pipeCfg.ReadyPoll = camCfg.ReadyPoll
	pipeCfg.Interval = camCfg.FrameInterval()

	opts := options{
		camera:    camCfg,
		detector:  detCfg,
		pipeline:  pipeCfg,
		replayDir: *replay,
		loop:      *loop,
		webPort:   *webPort,
		record:    *recordPath,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
	}()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("breathe failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	camera    camera.Config
	detector  detection.Config
	pipeline  pipeline.Config
	replayDir string
	loop      bool
	webPort   string
	record    string
}

func run(ctx context.Context, opts options, logger *slog.Logger) (err error) {
	source, err := openSource(opts, logger)
	if err != nil {
		return err
	}

	detector, err := detection.New(opts.detector, logger)
	if err != nil {
		source.Close()
		var ie *detection.InitError
		if errors.As(err, &ie) {
			logger.Error("detector initialization failed",
				"backend", ie.Backend,
				"path", ie.Path,
				"kind", ie.Kind)
		}
		return err
	}
	defer func() {
		if shutdownErr := detection.ShutdownRuntime(); shutdownErr != nil {
			logger.Warn("onnxruntime shutdown failed", "error", shutdownErr)
		}
	}()

	info := detector.Info()
	logger.Info("detector ready",
		"backend", info.Backend,
		"inputs", info.InputNames(),
		"outputs", info.OutputNames())

	p, err := pipeline.New(opts.pipeline, source, detector, opts.detector.Labels, pipeline.WithLogger(logger))
	if err != nil {
		detector.Close()
		source.Close()
		return err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			logger.Warn("release failed", "error", closeErr)
		}
	}()

	drawers := overlay.Multi{overlay.NewLogDrawer(logger)}

	if opts.record != "" {
		rec, err := record.Create(opts.record, logger)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := rec.Close(); closeErr != nil {
				logger.Warn("recording incomplete", "error", closeErr)
			}
		}()
		p.AddSink(rec)
	}

	if opts.webPort != "" {
		server := web.NewServer(opts.webPort, p, logger)
		p.AddSink(server)
		drawers = append(drawers, overlay.NewRenderer(server.SendCameraFrame))
		server.StartAsync()
		defer server.Shutdown()
	}
	p.SetDrawer(drawers)

	if err := p.Start(ctx); err != nil {
		return err
	}

	if err := p.Run(ctx); err != nil {
		return err
	}

	st := p.Stats()
	sum := p.History().Summary()
	logger.Info("session finished",
		"frames", st.Frames,
		"processed", st.Processed,
		"skipped", st.Skipped(),
		"breaths_per_minute", fmt.Sprintf("%.1f", sum.BreathsPerMinute))
	return nil
}

func openSource(opts options, logger *slog.Logger) (camera.Source, error) {
	if opts.replayDir != "" {
		src, err := camera.NewReplaySource(opts.replayDir, opts.loop)
		if err != nil {
			return nil, err
		}
		logger.Info("replaying images", "dir", opts.replayDir, "images", src.Len())
		return src, nil
	}

	devices, err := camera.Devices()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = fmt.Sprintf("%d:%s", d.Index, d.Name)
	}
	logger.Info("capture devices", "devices", names)

	cam, err := camera.OpenWebcam(opts.camera, logger)
	if err != nil {
		return nil, err
	}
	return cam, nil
}
