package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-camctl/pkg/camera"
	"github.com/teslashibe/go-camctl/pkg/exposure"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config should be valid, got %v", errs)
	}
	if cfg.Exposure != exposure.DefaultConfig() {
		t.Errorf("Exposure: got %+v, want defaults", cfg.Exposure)
	}
	if cfg.Detection.Window.Capacity != 10 || cfg.Detection.Window.Retention != 3*time.Second {
		t.Errorf("Window: got %+v", cfg.Detection.Window)
	}
}

func TestLoad_PartialOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camctl.yaml")
	writeFile(t, path, `
mode: algo
camera:
  device_id: 2
  width: 1280
  height: 720
exposure:
  smoothing: 0.1
detection:
  enabled: false
  window:
    retention: 5s
pipeline:
  decay_interval: 100ms
manual:
  preset: tungsten
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "algo" {
		t.Errorf("Mode: got %q", cfg.Mode)
	}
	if cfg.Camera.DeviceID != 2 || cfg.Camera.Width != 1280 || cfg.Camera.Height != 720 {
		t.Errorf("Camera: got %+v", cfg.Camera)
	}
	if cfg.Camera.FPS != camera.DefaultConfig().FPS {
		t.Errorf("Camera.FPS should keep default, got %d", cfg.Camera.FPS)
	}
	if cfg.Exposure.Smoothing != 0.1 || cfg.Exposure.Target != 0.5 {
		t.Errorf("Exposure: got %+v", cfg.Exposure)
	}
	if cfg.Detection.Enabled {
		t.Error("Detection.Enabled should be false")
	}
	if cfg.Detection.Window.Retention != 5*time.Second || cfg.Detection.Window.Capacity != 10 {
		t.Errorf("Window: got %+v", cfg.Detection.Window)
	}
	if cfg.Pipeline.DecayInterval != 100*time.Millisecond {
		t.Errorf("DecayInterval: got %v", cfg.Pipeline.DecayInterval)
	}
	if cfg.Manual.Preset != camera.PresetTungsten {
		t.Errorf("Manual.Preset: got %q", cfg.Manual.Preset)
	}
	if cfg.Path() != path {
		t.Errorf("Path: got %q", cfg.Path())
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Validate: %v", errs)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "camera: [not, a, map")
	if _, err := Load(bad); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camctl.yaml")
	writeFile(t, path, "camera:\n  device_id: 1\nlog:\n  level: warn\n")

	t.Setenv(EnvDevice, "3")
	t.Setenv(EnvModel, "/models/custom.onnx")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Camera.DeviceID != 3 {
		t.Errorf("DeviceID: got %d, want 3", cfg.Camera.DeviceID)
	}
	if cfg.Detection.YOLO.ModelPath != "/models/custom.onnx" {
		t.Errorf("ModelPath: got %q", cfg.Detection.YOLO.ModelPath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
}

func TestEnvHelpers(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
		check func(t *testing.T)
	}{
		{"device unset", EnvDevice, "", func(t *testing.T) {
			if got := DeviceID(4); got != 4 {
				t.Errorf("DeviceID: got %d, want 4", got)
			}
		}},
		{"device not a number", EnvDevice, "front", func(t *testing.T) {
			if got := DeviceID(4); got != 4 {
				t.Errorf("DeviceID: got %d, want 4", got)
			}
		}},
		{"model unset", EnvModel, "", func(t *testing.T) {
			if got := ModelPath("a.onnx"); got != "a.onnx" {
				t.Errorf("ModelPath: got %q", got)
			}
		}},
		{"log level set", EnvLogLevel, "error", func(t *testing.T) {
			if got := LogLevel("info"); got != "error" {
				t.Errorf("LogLevel: got %q", got)
			}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.env, tc.value)
			tc.check(t)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   []string
	}{
		{"valid", func(c *Config) {}, nil},
		{"bad mode", func(c *Config) { c.Mode = "auto" }, []string{"mode:"}},
		{"bad camera", func(c *Config) { c.Camera.FPS = 0 }, []string{"camera: fps"}},
		{"bad exposure", func(c *Config) { c.Exposure.Target = 1.5 }, []string{"exposure: target"}},
		{"bad detector", func(c *Config) { c.Detection.YOLO.ModelPath = "" }, []string{"detection: model_path"}},
		{"detector disabled skips yolo", func(c *Config) {
			c.Detection.Enabled = false
			c.Detection.YOLO.ModelPath = ""
		}, nil},
		{"bad pipeline", func(c *Config) { c.Pipeline.DetectEvery = 0 }, []string{"pipeline: detect_every"}},
		{"bad preset", func(c *Config) { c.Manual.Preset = "moon" }, []string{"manual: unknown preset"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			errs := cfg.Validate()
			if len(errs) != len(tc.want) {
				t.Fatalf("Validate: got %v, want %d errors", errs, len(tc.want))
			}
			for i, prefix := range tc.want {
				if !strings.HasPrefix(errs[i], prefix) {
					t.Errorf("error %d: got %q, want prefix %q", i, errs[i], prefix)
				}
			}
		})
	}
}

func TestExposureTuning(t *testing.T) {
	cfg := Default()
	cfg.Exposure.Smoothing = 0.2

	got := cfg.ExposureTuning()
	want := exposure.TuningParams{Target: 0.5, BaseGain: 100, Smoothing: 0.2}
	if got != want {
		t.Errorf("ExposureTuning: got %+v, want %+v", got, want)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camctl.yaml")
	writeFile(t, path, "exposure:\n  smoothing: 0.05\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	changed := make(chan exposure.TuningParams, 4)
	cfg.OnChange(func(c *Config) { changed <- c.ExposureTuning() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cfg.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	writeFile(t, path, "exposure:\n  smoothing: 0.25\n")

	select {
	case tuning := <-changed:
		if tuning.Smoothing != 0.25 {
			t.Errorf("Smoothing after reload: got %v, want 0.25", tuning.Smoothing)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("OnChange not called after write")
	}
}

func TestReload_KeepsPreviousOnInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camctl.yaml")
	writeFile(t, path, "exposure:\n  smoothing: 0.05\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	called := false
	cfg.OnChange(func(*Config) { called = true })

	writeFile(t, path, "exposure:\n  smoothing: 7\n")
	cfg.reload()

	if called {
		t.Error("OnChange should not run for an invalid file")
	}
	if cfg.Exposure.Smoothing != 0.05 {
		t.Errorf("Smoothing: got %v, want 0.05", cfg.Exposure.Smoothing)
	}
}

func TestWatch_RequiresPath(t *testing.T) {
	if err := Default().Watch(context.Background()); err == nil {
		t.Error("expected error watching a config with no file")
	}
}
