package app

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-camctl/internal/config"
	"github.com/teslashibe/go-camctl/pkg/camera"
	"github.com/teslashibe/go-camctl/pkg/detection"
	"github.com/teslashibe/go-camctl/pkg/exposure"
	"github.com/teslashibe/go-camctl/pkg/overlay"
	"github.com/teslashibe/go-camctl/pkg/pipeline"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(Options{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != string(pipeline.ModeVision) {
		t.Errorf("Mode: got %q", cfg.Mode)
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camctl.yaml")
	if err := os.WriteFile(path, []byte("mode: vision\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(Options{
		ConfigPath: path,
		Mode:       "algo",
		ModelPath:  "/tmp/model.onnx",
		Debug:      true,
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != "algo" {
		t.Errorf("Mode: got %q, want algo", cfg.Mode)
	}
	if cfg.Detection.YOLO.ModelPath != "/tmp/model.onnx" {
		t.Errorf("ModelPath: got %q", cfg.Detection.YOLO.ModelPath)
	}
	if !cfg.Log.Debug {
		t.Error("Debug flag not applied")
	}
}

func TestLoadConfig_Responsive(t *testing.T) {
	cfg, err := LoadConfig(Options{Responsive: true})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Exposure != exposure.ResponsiveConfig() {
		t.Errorf("Exposure: got %+v, want responsive profile", cfg.Exposure)
	}

	cfg, err = LoadConfig(Options{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Exposure != exposure.DefaultConfig() {
		t.Errorf("Exposure without flag: got %+v", cfg.Exposure)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(Options{Mode: "turbo"})
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if len(cerr.Errors) != 1 {
		t.Errorf("Errors: got %v", cerr.Errors)
	}

	if _, err := LoadConfig(Options{ConfigPath: "/nonexistent/camctl.yaml"}); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestStartMode(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "algo"
	if got := startMode(cfg); got != pipeline.ModeAlgo {
		t.Errorf("startMode: got %q", got)
	}
	cfg.Mode = "bogus"
	if got := startMode(cfg); got != pipeline.ModeVision {
		t.Errorf("startMode fallback: got %q", got)
	}
}

type idleSource struct{}

func (idleSource) Frames(ctx context.Context) <-chan camera.Frame {
	return make(chan camera.Frame)
}

// closingSource delivers n gray frames, then ends as an unplugged camera would.
type closingSource struct {
	n int
}

func (s closingSource) Frames(ctx context.Context) <-chan camera.Frame {
	out := make(chan camera.Frame)
	go func() {
		defer close(out)
		for i := 0; i < s.n; i++ {
			f := camera.Frame{Image: image.NewGray(image.Rect(0, 0, 8, 8)), Seq: uint64(i + 1)}
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// fakeWindow records draws and never reports a key.
type fakeWindow struct {
	mu    sync.Mutex
	shown int
}

func (w *fakeWindow) Show(img image.Image, snap pipeline.Snapshot) error {
	w.mu.Lock()
	w.shown++
	w.mu.Unlock()
	return nil
}

func (w *fakeWindow) WaitKey(ms int) int { return -1 }

func (w *fakeWindow) Close() error { return nil }

func newTestApp(t *testing.T, src pipeline.FrameSource) (*App, *exposure.MockDevice) {
	t.Helper()
	dev := exposure.NewMockDevice(camera.DefaultRange(), 400, 10*time.Millisecond)
	ctrl := exposure.NewController(exposure.DefaultConfig(), dev)
	manager := camera.NewManager()
	tap := overlay.NewFrameTap(src)

	p, err := pipeline.New(pipeline.Options{
		Source:     tap,
		Controller: ctrl,
		Aggregator: detection.NewAggregator(detection.DefaultAggregatorConfig()),
		Manual:     manager,
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Detection.Enabled = false

	a := New(cfg, Options{})
	a.controller = ctrl
	a.tap = tap
	a.pipeline = p
	a.manager = manager
	a.manager.OnApply = p.ApplyManual
	return a, dev
}

func TestRun_ReturnsWhenCameraStops(t *testing.T) {
	a, _ := newTestApp(t, closingSource{n: 3})
	win := &fakeWindow{}
	a.window = win

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()

	select {
	case err := <-errc:
		if !errors.Is(err, pipeline.ErrSourceClosed) {
			t.Errorf("Run: got %v, want ErrSourceClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the camera stopped")
	}

	if ctx.Err() != nil {
		t.Error("caller context should still be live; the stop came from the camera")
	}
}

func TestRun_CancelStopsRenderLoop(t *testing.T) {
	a, _ := newTestApp(t, idleSource{})
	a.window = &fakeWindow{}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run after cancel: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandleKey(t *testing.T) {
	a, dev := newTestApp(t, idleSource{})

	if a.handleKey('q') || a.handleKey(keyEscape) {
		t.Error("quit keys should return false")
	}
	if !a.handleKey(-1) {
		t.Error("no key should keep running")
	}

	// Apply is ignored outside algo mode
	a.handleKey(keyApply)
	if len(dev.Writes()) != 0 {
		t.Fatalf("apply in vision mode wrote %d times", len(dev.Writes()))
	}

	a.handleKey(keyMode)
	if got := a.pipeline.Mode().Mode(); got != pipeline.ModeAlgo {
		t.Fatalf("mode after toggle: got %q", got)
	}

	if !a.handleKey(keyApply) {
		t.Error("apply should keep running")
	}
	if len(dev.Writes()) != 2 {
		t.Errorf("apply should write exposure and white balance, got %d writes", len(dev.Writes()))
	}
	if a.pipeline.Mode().AutoExposure() {
		t.Error("manual apply should disable auto exposure")
	}

	state := a.controller.State()
	want := camera.DefaultManualSettings()
	if state.ISO != want.ISO || state.ExposureDuration != want.ExposureDuration {
		t.Errorf("state after apply: got %+v, want %+v", state, want)
	}
}

func TestHandleKey_AdjustManual(t *testing.T) {
	a, dev := newTestApp(t, idleSource{})
	defaults := camera.DefaultManualSettings()

	// Slider keys are ignored outside algo mode
	a.handleKey('I')
	if got := a.manager.Settings(); got != defaults {
		t.Fatalf("adjust in vision mode changed settings to %+v", got)
	}

	a.handleKey(keyMode)

	tests := []struct {
		key  int
		want func(s *camera.ManualSettings)
	}{
		{'I', func(s *camera.ManualSettings) { s.ISO += camera.ISOStep }},
		{'i', func(s *camera.ManualSettings) { s.ISO -= camera.ISOStep }},
		{'E', func(s *camera.ManualSettings) { s.ExposureDuration += camera.ExposureStep }},
		{'e', func(s *camera.ManualSettings) { s.ExposureDuration -= camera.ExposureStep }},
		{'T', func(s *camera.ManualSettings) { s.Temperature += camera.TemperatureStep }},
		{'t', func(s *camera.ManualSettings) { s.Temperature -= camera.TemperatureStep }},
		{'N', func(s *camera.ManualSettings) { s.Tint += camera.TintStep }},
		{'n', func(s *camera.ManualSettings) { s.Tint -= camera.TintStep }},
	}

	for _, tc := range tests {
		want := a.manager.Settings()
		tc.want(&want)
		if !a.handleKey(tc.key) {
			t.Fatalf("key %q should keep running", rune(tc.key))
		}
		if got := a.manager.Settings(); got != want {
			t.Errorf("key %q: got %+v, want %+v", rune(tc.key), got, want)
		}
	}

	if len(dev.Writes()) != 0 {
		t.Errorf("adjusting should not write the device, got %d writes", len(dev.Writes()))
	}

	// The pending settings show up in snapshots before they are applied
	a.handleKey('I')
	a.handleKey('T')
	snap := a.pipeline.Snapshot()
	if snap.Manual == nil || snap.Manual.ISO != defaults.ISO+camera.ISOStep {
		t.Fatalf("snapshot manual: got %+v", snap.Manual)
	}

	a.handleKey(keyApply)
	state := a.controller.State()
	if state.ISO != defaults.ISO+camera.ISOStep {
		t.Errorf("applied ISO: got %g, want %g", state.ISO, defaults.ISO+camera.ISOStep)
	}
}

func TestApplyConfig(t *testing.T) {
	a, _ := newTestApp(t, idleSource{})

	cfg := config.Default()
	cfg.Exposure.Smoothing = 0.3
	a.applyConfig(cfg)

	if got := a.controller.Tuning().Smoothing; got != 0.3 {
		t.Errorf("Smoothing: got %v, want 0.3", got)
	}
}
