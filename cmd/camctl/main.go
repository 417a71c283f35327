// camctl - closed-loop camera exposure control with smoothed object detection
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-camctl/pkg/app"
)

func main() {
	opts := parseFlags()

	cfg, err := app.LoadConfig(opts)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	a := app.New(cfg, opts)
	if err := a.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Printf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags into app options.
func parseFlags() app.Options {
	var opts app.Options

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config (defaults plus CAMCTL_* env when empty)")
	flag.BoolVar(&opts.Debug, "debug", false, "Enable verbose per-frame trace output")
	flag.StringVar(&opts.Mode, "mode", "", "Start mode: vision or algo (overrides config)")
	flag.BoolVar(&opts.Window, "window", true, "Show preview window with overlay")
	flag.StringVar(&opts.ModelPath, "model", "", "YOLO ONNX model path (overrides config and CAMCTL_MODEL)")
	flag.BoolVar(&opts.Watch, "watch", true, "Reload exposure tuning when the config file changes")
	flag.BoolVar(&opts.Responsive, "responsive", false, "Use the faster-settling exposure profile (replaces the config's exposure section)")
	flag.Parse()

	return opts
}
