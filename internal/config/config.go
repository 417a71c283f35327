// Package config loads camctl configuration from YAML with environment
// overrides and optional hot reload.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-camctl/internal/log"
	"github.com/teslashibe/go-camctl/pkg/camera"
	"github.com/teslashibe/go-camctl/pkg/detection"
	"github.com/teslashibe/go-camctl/pkg/exposure"
	"github.com/teslashibe/go-camctl/pkg/pipeline"
)

// Environment overrides.
const (
	EnvDevice   = "CAMCTL_DEVICE"
	EnvModel    = "CAMCTL_MODEL"
	EnvLogLevel = "CAMCTL_LOG_LEVEL"
)

// Config is the complete camctl configuration.
type Config struct {
	Mode      string          `yaml:"mode"`
	Camera    camera.Config   `yaml:"camera"`
	Exposure  exposure.Config `yaml:"exposure"`
	Detection DetectionConfig `yaml:"detection"`
	Pipeline  pipeline.Config `yaml:"pipeline"`
	Manual    ManualConfig    `yaml:"manual"`
	Log       LogConfig       `yaml:"log"`

	// Internal fields
	mu       sync.RWMutex    `yaml:"-"`
	path     string          `yaml:"-"`
	watchers []func(*Config) `yaml:"-"`
}

// DetectionConfig holds detector and window settings.
type DetectionConfig struct {
	Enabled bool                       `yaml:"enabled"`
	YOLO    detection.YOLOConfig       `yaml:"yolo"`
	Window  detection.AggregatorConfig `yaml:"window"`
}

// ManualConfig selects the manual settings loaded at startup.
type ManualConfig struct {
	Preset string `yaml:"preset"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"` // verbose per-frame trace
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:     string(pipeline.ModeVision),
		Camera:   camera.DefaultConfig(),
		Exposure: exposure.DefaultConfig(),
		Detection: DetectionConfig{
			Enabled: true,
			YOLO:    detection.DefaultYOLOConfig(),
			Window:  detection.DefaultAggregatorConfig(),
		},
		Pipeline: pipeline.DefaultConfig(),
		Manual:   ManualConfig{Preset: camera.PresetDefault},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.path = path
	cfg.setDefaults()
	cfg.applyEnv()

	return cfg, nil
}

// FromEnv returns the defaults with environment overrides, for running
// without a config file.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// setDefaults sets default values for unset fields
func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = string(pipeline.ModeVision)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Manual.Preset == "" {
		c.Manual.Preset = camera.PresetDefault
	}
	if c.Detection.Window.Retention <= 0 {
		c.Detection.Window.Retention = detection.DefaultRetention
	}
	if c.Detection.Window.Capacity <= 0 {
		c.Detection.Window.Capacity = detection.DefaultCapacity
	}
}

func (c *Config) applyEnv() {
	c.Camera.DeviceID = DeviceID(c.Camera.DeviceID)
	c.Detection.YOLO.ModelPath = ModelPath(c.Detection.YOLO.ModelPath)
	c.Log.Level = LogLevel(c.Log.Level)
}

// DeviceID returns the camera index from CAMCTL_DEVICE.
// Falls back to the provided default if unset or not a number.
func DeviceID(defaultID int) int {
	if v := os.Getenv(EnvDevice); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			return id
		}
	}
	return defaultID
}

// ModelPath returns the detector model path from CAMCTL_MODEL.
// Falls back to the provided default if not set.
func ModelPath(defaultPath string) string {
	if p := os.Getenv(EnvModel); p != "" {
		return p
	}
	return defaultPath
}

// LogLevel returns the log level from CAMCTL_LOG_LEVEL.
// Falls back to the provided default if not set.
func LogLevel(defaultLevel string) string {
	if l := os.Getenv(EnvLogLevel); l != "" {
		return l
	}
	return defaultLevel
}

// Validate checks every section. Returns a list of validation errors,
// or nil if valid.
func (c *Config) Validate() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errors []string
	prefix := func(section string, errs []string) {
		for _, e := range errs {
			errors = append(errors, section+": "+e)
		}
	}

	if _, err := pipeline.ParseMode(c.Mode); err != nil {
		errors = append(errors, "mode: "+err.Error())
	}
	prefix("camera", c.Camera.Validate())
	prefix("exposure", c.Exposure.Validate())
	if c.Detection.Enabled {
		prefix("detection", c.Detection.YOLO.Validate())
	}
	prefix("pipeline", c.Pipeline.Validate())
	if camera.GetPreset(c.Manual.Preset) == nil {
		errors = append(errors, fmt.Sprintf("manual: unknown preset %q", c.Manual.Preset))
	}

	return errors
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// ExposureTuning returns the hot-reloadable control-loop parameters.
func (c *Config) ExposureTuning() exposure.TuningParams {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return exposure.TuningParams{
		Target:    c.Exposure.Target,
		BaseGain:  c.Exposure.BaseGain,
		Smoothing: c.Exposure.Smoothing,
	}
}

// OnChange registers a callback for config changes
func (c *Config) OnChange(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}

// Watch reloads the config whenever its file is written, until ctx is done.
// The parent directory is watched so editors that replace the file are
// picked up too.
func (c *Config) Watch(ctx context.Context) error {
	path := c.Path()
	if path == "" {
		return fmt.Errorf("config was not loaded from a file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	logger := log.Component("config")
	name := filepath.Clean(path)

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					time.Sleep(100 * time.Millisecond) // Debounce
					c.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config watch error", "error", err)
			}
		}
	}()

	return nil
}

// reload reloads the configuration from disk. An invalid file is logged and
// the running config kept.
func (c *Config) reload() {
	logger := log.Component("config")

	newCfg, err := Load(c.Path())
	if err != nil {
		logger.Error("failed to reload config", "error", err)
		return
	}
	if errs := newCfg.Validate(); len(errs) > 0 {
		logger.Error("reloaded config is invalid, keeping previous", "errors", errs)
		return
	}

	c.mu.Lock()
	// Copy fields individually to avoid copying the mutex
	c.Mode = newCfg.Mode
	c.Camera = newCfg.Camera
	c.Exposure = newCfg.Exposure
	c.Detection = newCfg.Detection
	c.Pipeline = newCfg.Pipeline
	c.Manual = newCfg.Manual
	c.Log = newCfg.Log
	watchers := append([]func(*Config){}, c.watchers...)
	c.mu.Unlock()

	logger.Info("configuration reloaded")

	for _, fn := range watchers {
		fn(c)
	}
}
