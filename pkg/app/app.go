package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-camctl/internal/config"
	"github.com/teslashibe/go-camctl/internal/log"
	"github.com/teslashibe/go-camctl/pkg/camera"
	"github.com/teslashibe/go-camctl/pkg/debug"
	"github.com/teslashibe/go-camctl/pkg/detection"
	"github.com/teslashibe/go-camctl/pkg/exposure"
	"github.com/teslashibe/go-camctl/pkg/overlay"
	"github.com/teslashibe/go-camctl/pkg/pipeline"
)

// App is the main camctl application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config *config.Config
	opts   Options

	// Capture and control
	device     *camera.Device
	tap        *overlay.FrameTap
	controller *exposure.Controller
	manager    *camera.Manager

	// Detection
	aggregator *detection.Aggregator
	pipeline   *pipeline.Pipeline

	// Render sink
	window previewWindow

	loaders sync.WaitGroup
	logger  *slog.Logger
}

// previewWindow is the desktop sink the render loop drives.
type previewWindow interface {
	Show(img image.Image, snap pipeline.Snapshot) error
	WaitKey(ms int) int
	Close() error
}

// New creates the application from resolved configuration.
func New(cfg *config.Config, opts Options) *App {
	log.Init(cfg.Log.Level)
	debug.Enabled = cfg.Log.Debug

	return &App{
		config: cfg,
		opts:   opts,
		logger: log.Component("app"),
	}
}

// Init opens the camera and builds the pipeline.
// Call this after New() and before Run().
func (a *App) Init() error {
	fmt.Println("📷 camctl - closed-loop exposure and detection")
	fmt.Println("==============================================")
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	fmt.Printf("📹 Opening camera %d... ", a.config.Camera.DeviceID)
	dev, err := camera.Open(a.config.Camera)
	if err != nil {
		fmt.Println("❌")
		return fmt.Errorf("camera: %w", err)
	}
	a.device = dev
	fmt.Println("✅")

	if err := a.initCore(); err != nil {
		return fmt.Errorf("core init: %w", err)
	}

	if a.opts.Window {
		a.window = overlay.NewWindow("camctl")
	}
	return nil
}

// initCore builds the controller, window, manual settings and pipeline.
func (a *App) initCore() error {
	a.controller = exposure.NewController(a.config.Exposure, a.device)
	if err := a.controller.Seed(); err != nil {
		a.logger.Warn("could not seed exposure state", "error", err)
	}

	a.aggregator = detection.NewAggregator(a.config.Detection.Window)
	a.tap = overlay.NewFrameTap(a.device)

	a.manager = camera.NewManager()
	if preset := camera.GetPreset(a.config.Manual.Preset); preset != nil {
		if err := a.manager.Set(*preset); err != nil {
			return fmt.Errorf("manual preset: %w", err)
		}
	}

	p, err := pipeline.New(pipeline.Options{
		Source:     a.tap,
		Controller: a.controller,
		Aggregator: a.aggregator,
		Mode:       pipeline.NewModeController(startMode(a.config)),
		Config:     a.config.Pipeline,
		Manual:     a.manager,
	})
	if err != nil {
		return err
	}
	a.pipeline = p
	a.manager.OnApply = a.pipeline.ApplyManual

	return nil
}

// Run starts the pipeline and blocks until ctx is cancelled or the camera
// stops. With a window, rendering runs on the calling goroutine.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.Detection.Enabled {
		a.loadDetector(ctx)
	} else {
		fmt.Println("🔍 Object detection disabled")
	}

	if a.opts.Watch && a.config.Path() != "" {
		a.config.OnChange(a.applyConfig)
		if err := a.config.Watch(ctx); err != nil {
			a.logger.Warn("config watch disabled", "error", err)
		} else {
			fmt.Printf("👀 Watching %s for changes\n", a.config.Path())
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- a.pipeline.Run(ctx) }()

	if a.pipeline.Mode().Mode() == pipeline.ModeAlgo {
		if err := a.manager.Apply(); err != nil {
			a.logger.Warn("manual settings not applied", "error", err)
		}
	}

	fmt.Printf("\n🎬 Running in %s mode (Ctrl+C to exit)\n", a.pipeline.Mode().Mode())

	if a.window != nil {
		a.renderLoop(ctx, cancel)
	}

	err := <-errc
	if errors.Is(err, pipeline.ErrSourceClosed) {
		return fmt.Errorf("camera stopped delivering frames: %w", err)
	}
	return err
}

// loadDetector loads the model in the background; the pipeline reports not
// ready until it is attached.
func (a *App) loadDetector(ctx context.Context) {
	cfg := a.config.Detection.YOLO
	fmt.Printf("🔍 Loading object detection model %s in background\n", cfg.ModelPath)

	a.loaders.Add(1)
	go func() {
		defer a.loaders.Done()

		start := time.Now()
		det, err := detection.NewYOLO(cfg)
		if err != nil {
			a.logger.Warn("object detection disabled", "error", err)
			return
		}
		if ctx.Err() != nil {
			det.Close()
			return
		}
		a.pipeline.AttachDetector(det)
		a.logger.Info("object detection ready", "model", cfg.ModelPath, "load_time", time.Since(start))
	}()
}

// applyConfig pushes hot-reloadable settings into running components.
func (a *App) applyConfig(c *config.Config) {
	a.controller.SetTuning(c.ExposureTuning())
}

// renderLoop draws the latest frame with the latest snapshot until ctx is
// done, the pipeline stops, or the user quits.
func (a *App) renderLoop(ctx context.Context, cancel context.CancelFunc) {
	sub := a.pipeline.Subscribe("window")
	defer func() { a.pipeline.Unsubscribe(sub) }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.pipeline.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				if ctx.Err() != nil || a.pipelineStopped() {
					return
				}
				// Dropped for being slow; resubscribe
				sub = a.pipeline.Subscribe("window")
				continue
			}
			if err := a.window.Show(a.tap.Latest(), snap); err != nil {
				a.logger.Warn("render failed", "error", err)
			}
			if !a.handleKey(a.window.WaitKey(1)) {
				cancel()
				return
			}
		}
	}
}

func (a *App) pipelineStopped() bool {
	select {
	case <-a.pipeline.Done():
		return true
	default:
		return false
	}
}

// Keys understood by the preview window.
const (
	keyQuit   = 'q'
	keyEscape = 27
	keyMode   = 'm'
	keyApply  = 'a'
)

type adjustment struct {
	control camera.Control
	steps   int
}

// Manual control keys, algo mode only: lower case steps down, upper case up.
var adjustKeys = map[int]adjustment{
	'i': {camera.ControlISO, -1},
	'I': {camera.ControlISO, 1},
	'e': {camera.ControlExposure, -1},
	'E': {camera.ControlExposure, 1},
	't': {camera.ControlTemperature, -1},
	'T': {camera.ControlTemperature, 1},
	'n': {camera.ControlTint, -1},
	'N': {camera.ControlTint, 1},
}

// handleKey acts on a window key press. Returns false to quit.
func (a *App) handleKey(key int) bool {
	switch key {
	case keyQuit, keyEscape:
		return false
	case keyMode:
		mode := a.pipeline.Mode().Toggle()
		a.logger.Info("mode changed", "mode", mode)
	case keyApply:
		if a.pipeline.Mode().Mode() != pipeline.ModeAlgo {
			return true
		}
		if err := a.manager.Apply(); err != nil {
			a.logger.Warn("manual settings not applied", "error", err)
		}
	default:
		adj, ok := adjustKeys[key]
		if !ok || a.pipeline.Mode().Mode() != pipeline.ModeAlgo {
			return true
		}
		s, err := a.manager.Adjust(adj.control, adj.steps)
		if err != nil {
			a.logger.Warn("manual setting rejected", "control", adj.control, "error", err)
			return true
		}
		debug.Log("🎚️  %s -> ISO %.0f, %v, %.0fK, tint %+.0f\n",
			adj.control, s.ISO, s.ExposureDuration, s.Temperature, s.Tint)
	}
	return true
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	a.loaders.Wait()
	if a.pipeline != nil {
		s := a.pipeline.Stats()
		a.logger.Info("final stats",
			"frames", s.Frames,
			"dropped", s.FramesDropped,
			"step_errors", s.StepErrors,
			"detections", s.DetectLaunched,
			"boxes", s.BoxesIngested)
		if err := a.pipeline.Close(); err != nil {
			a.logger.Warn("closing detector", "error", err)
		}
	}
	if a.window != nil {
		a.window.Close()
	}
	if a.device != nil {
		a.device.Close()
	}
}
