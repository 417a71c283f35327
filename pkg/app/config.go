// Package app wires the camera, exposure controller, detector, pipeline and
// render sink into the camctl application.
package app

import (
	"github.com/teslashibe/go-camctl/internal/config"
	"github.com/teslashibe/go-camctl/pkg/exposure"
	"github.com/teslashibe/go-camctl/pkg/pipeline"
)

// Options holds command-line choices layered over the file config.
// Flag parsing is done in cmd/camctl/main.go; this struct is data only.
type Options struct {
	// ConfigPath is the YAML file to load. Empty means defaults plus env.
	ConfigPath string

	// Debug enables verbose per-frame trace output.
	Debug bool

	// Window opens a desktop preview with the overlay.
	Window bool

	// Mode overrides the configured start mode when set.
	Mode string

	// ModelPath overrides the detector model when set.
	ModelPath string

	// Watch reloads exposure tuning when the config file changes.
	Watch bool

	// Responsive swaps in exposure.ResponsiveConfig for quicker settling.
	Responsive bool
}

// LoadConfig resolves the effective configuration for opts.
func LoadConfig(opts Options) (*config.Config, error) {
	var cfg *config.Config
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	} else {
		cfg = config.FromEnv()
	}

	if opts.Mode != "" {
		cfg.Mode = opts.Mode
	}
	if opts.ModelPath != "" {
		cfg.Detection.YOLO.ModelPath = opts.ModelPath
	}
	if opts.Debug {
		cfg.Log.Debug = true
	}
	if opts.Responsive {
		cfg.Exposure = exposure.ResponsiveConfig()
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Errors: errs}
	}
	return cfg, nil
}

// ConfigError lists every validation failure.
type ConfigError struct {
	Errors []string
}

func (e *ConfigError) Error() string {
	msg := "invalid configuration:"
	for _, s := range e.Errors {
		msg += "\n  - " + s
	}
	return msg
}

// startMode parses the configured mode, defaulting to vision.
func startMode(cfg *config.Config) pipeline.Mode {
	if m, err := pipeline.ParseMode(cfg.Mode); err == nil {
		return m
	}
	return pipeline.ModeVision
}
