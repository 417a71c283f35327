// Package pipeline runs the frame loop: per-frame brightness estimation and
// exposure control, sampled asynchronous detection feeding the detection
// window, and snapshot fan-out to render sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-camctl/internal/log"
	"github.com/teslashibe/go-camctl/pkg/brightness"
	"github.com/teslashibe/go-camctl/pkg/camera"
	"github.com/teslashibe/go-camctl/pkg/debug"
	"github.com/teslashibe/go-camctl/pkg/detection"
	"github.com/teslashibe/go-camctl/pkg/exposure"
	"github.com/teslashibe/go-camctl/pkg/hub"
	"golang.org/x/sync/semaphore"
)

// ErrSourceClosed is returned by Run when the frame source ends while the
// context is still live.
var ErrSourceClosed = errors.New("pipeline: frame source closed")

// ErrAlreadyStarted is returned by Run on every call after the first.
var ErrAlreadyStarted = errors.New("pipeline: already started")

// FrameSource delivers frames until ctx is done. It may drop frames.
type FrameSource interface {
	Frames(ctx context.Context) <-chan camera.Frame
}

// dropCounter is implemented by sources that count their own drops.
type dropCounter interface {
	Dropped() uint64
}

// Options configures a Pipeline.
type Options struct {
	Source     FrameSource
	Controller *exposure.Controller
	Aggregator *detection.Aggregator

	// Optional
	Estimator brightness.Estimator
	Detector  detection.Detector
	Mode      *ModeController
	Clock     func() time.Time
	Config    Config

	// Manual, when set, has its pending settings rendered in snapshots.
	Manual *camera.Manager
}

// Pipeline wires the exposure and detection paths to one frame source.
// The two paths share no lock.
type Pipeline struct {
	source     FrameSource
	estimator  brightness.Estimator
	controller *exposure.Controller
	aggregator *detection.Aggregator
	mode       *ModeController
	manual     *camera.Manager
	clock      func() time.Time
	config     Config

	detMu    sync.RWMutex
	detector detection.Detector

	sem      *semaphore.Weighted
	inflight sync.WaitGroup
	hub      *hub.Hub[Snapshot]

	started   atomic.Bool
	session   string
	seq       atomic.Uint64
	luminance atomic.Uint64 // math.Float64bits
	scene     atomic.Pointer[SceneColor]
	stats     counters
	lastErr   atomic.Value // string, to log each distinct step error once

	logger *slog.Logger
}

// New creates a pipeline. Source, Controller and Aggregator are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("pipeline: source is required")
	}
	if opts.Controller == nil {
		return nil, fmt.Errorf("pipeline: controller is required")
	}
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("pipeline: aggregator is required")
	}

	cfg := opts.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("pipeline: invalid config: %v", errs)
	}

	if opts.Estimator.Stride < 1 {
		opts.Estimator = brightness.Default
	}
	if opts.Mode == nil {
		opts.Mode = NewModeController(ModeVision)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	session := uuid.NewString()
	p := &Pipeline{
		source:     opts.Source,
		estimator:  opts.Estimator,
		controller: opts.Controller,
		aggregator: opts.Aggregator,
		mode:       opts.Mode,
		manual:     opts.Manual,
		clock:      opts.Clock,
		config:     cfg,
		detector:   opts.Detector,
		sem:        semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		hub:        hub.New[Snapshot]("snapshots"),
		session:    session,
		logger:     log.Component("pipeline").With("session", session),
	}
	p.lastErr.Store("")
	return p, nil
}

// Run consumes frames until ctx is done or the source closes. It waits for
// in-flight detections before returning. Exposure errors are counted and
// logged; they never stop the loop. A pipeline runs once.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hubDone := make(chan struct{})
	go func() {
		p.hub.Run(ctx)
		close(hubDone)
	}()
	defer func() {
		cancel()
		p.inflight.Wait()
		<-hubDone
	}()

	ticker := time.NewTicker(p.config.DecayInterval)
	defer ticker.Stop()

	frames := p.source.Frames(ctx)
	p.logger.Info("pipeline started",
		"mode", p.mode.Mode(),
		"detect_every", p.config.DetectEvery,
		"max_in_flight", p.config.MaxInFlight)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopped", "frames", p.stats.frames.Load())
			return nil

		case <-ticker.C:
			p.aggregator.Evict(p.clock())
			p.publish()

		case frame, ok := <-frames:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSourceClosed
			}
			p.processFrame(ctx, frame)
		}
	}
}

// processFrame runs the synchronous exposure step and samples detection.
func (p *Pipeline) processFrame(ctx context.Context, frame camera.Frame) {
	n := p.stats.frames.Add(1)

	lum := p.estimator.Estimate(frame.Image)
	p.luminance.Store(math.Float64bits(lum))

	// Scene color guides manual white balance
	if p.mode.Mode() == ModeAlgo {
		if r, g, b, ok := brightness.MeanRGB(frame.Image); ok {
			p.scene.Store(&SceneColor{Red: r, Green: g, Blue: b})
		}
	}

	if p.mode.AutoExposure() {
		if _, err := p.controller.Step(lum); err != nil {
			p.reportStepError(err)
		} else {
			p.lastErr.Store("")
		}
	}

	if n%uint64(p.config.DetectEvery) == 0 {
		p.launchDetection(ctx, frame)
	}

	p.publish()

	if p.config.LogEvery > 0 && n%uint64(p.config.LogEvery) == 0 {
		s := p.Stats()
		p.logger.Info("pipeline stats",
			"frames", s.Frames,
			"dropped", s.FramesDropped,
			"luminance", lum,
			"iso", p.controller.State().ISO,
			"boxes", p.aggregator.Len(),
			"step_errors", s.StepErrors,
			"detect_skipped", s.DetectSkipped)
	}
}

func (p *Pipeline) reportStepError(err error) {
	p.stats.stepErrors.Add(1)

	// Lock contention is retried on the next frame and is not worth a log line
	if errors.Is(err, exposure.ErrConfigurationLock) {
		p.logger.Debug("exposure step skipped", "error", err)
		return
	}
	msg := err.Error()
	if prev, _ := p.lastErr.Load().(string); prev == msg {
		return
	}
	p.lastErr.Store(msg)
	p.logger.Warn("exposure step failed", "error", err)
}

// launchDetection starts an asynchronous detector call for frame unless the
// in-flight bound is reached. The result is stamped with its arrival time.
func (p *Pipeline) launchDetection(ctx context.Context, frame camera.Frame) {
	p.detMu.RLock()
	det := p.detector
	p.detMu.RUnlock()
	if det == nil || frame.Image == nil {
		return
	}

	if !p.sem.TryAcquire(1) {
		p.stats.detectSkipped.Add(1)
		return
	}
	p.stats.detectLaunched.Add(1)

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer p.sem.Release(1)

		dets, err := det.Detect(ctx, frame.Image)
		if err != nil {
			if ctx.Err() == nil {
				p.stats.detectErrors.Add(1)
				p.logger.Warn("detection failed", "seq", frame.Seq, "error", err)
			}
			return
		}

		p.aggregator.Ingest(detection.Rects(dets), p.clock())
		p.stats.boxesIngested.Add(uint64(len(dets)))
		debug.DetectionLog("🎯 frame %d: %d detection(s), window %d\n", frame.Seq, len(dets), p.aggregator.Len())
		p.publish()
	}()
}

// AttachDetector installs a detector and marks the pipeline ready.
// Any previously attached detector is closed.
func (p *Pipeline) AttachDetector(d detection.Detector) {
	p.detMu.Lock()
	prev := p.detector
	p.detector = d
	p.detMu.Unlock()

	if prev != nil && prev != d {
		if err := prev.Close(); err != nil {
			p.logger.Warn("closing previous detector", "error", err)
		}
	}
	p.logger.Info("detector attached")
	p.publish()
}

// Ready reports whether a detector is attached.
func (p *Pipeline) Ready() bool {
	p.detMu.RLock()
	defer p.detMu.RUnlock()
	return p.detector != nil
}

// ApplyManual disables auto exposure and writes s to the device: exposure
// and ISO first, then white balance. Each write is all-or-nothing; both are
// attempted and their errors joined.
func (p *Pipeline) ApplyManual(s camera.ManualSettings) error {
	p.mode.SetAutoExposure(false)

	var errs []error
	if _, _, err := p.controller.SetManual(s.ExposureDuration, s.ISO); err != nil {
		errs = append(errs, fmt.Errorf("set exposure: %w", err))
	}
	if _, err := p.controller.SetWhiteBalance(s.Temperature, s.Tint); err != nil {
		errs = append(errs, fmt.Errorf("set white balance: %w", err))
	}

	p.publish()
	return errors.Join(errs...)
}

// Mode returns the mode controller.
func (p *Pipeline) Mode() *ModeController {
	return p.mode
}

// Session returns the pipeline's session ID.
func (p *Pipeline) Session() string {
	return p.session
}

// Stats returns the cumulative counters.
func (p *Pipeline) Stats() Stats {
	s := p.stats.snapshot()
	if dc, ok := p.source.(dropCounter); ok {
		s.FramesDropped = dc.Dropped()
	}
	return s
}

// Snapshot returns the current render state.
func (p *Pipeline) Snapshot() Snapshot {
	state := p.controller.State()
	snap := Snapshot{
		Session:          p.session,
		Seq:              p.seq.Add(1),
		Timestamp:        p.clock(),
		ISO:              state.ISO,
		ExposureDuration: state.ExposureDuration,
		WhiteBalance:     state.WhiteBalance,
		Luminance:        math.Float64frombits(p.luminance.Load()),
		Boxes:            p.aggregator.CurrentBoxes(),
		Ready:            p.Ready(),
		Mode:             p.mode.Mode(),
		AutoExposure:     p.mode.AutoExposure(),
		Stats:            p.Stats(),
	}
	if sc := p.scene.Load(); sc != nil {
		snap.Scene = *sc
	}
	if p.manual != nil {
		m := p.manual.Settings()
		snap.Manual = &m
	}
	return snap
}

// Subscribe returns a channel of snapshots pushed after every frame,
// detection and decay tick. Slow subscribers are dropped and their channel
// closed. Call after Run has started.
func (p *Pipeline) Subscribe(name string) *hub.Subscription[Snapshot] {
	return p.hub.Subscribe(name, p.config.SubscriberBuffer)
}

// Done is closed once Run has stopped publishing. Subscriptions made after
// that get an already-closed channel.
func (p *Pipeline) Done() <-chan struct{} {
	return p.hub.Done()
}

// Unsubscribe removes a subscriber.
func (p *Pipeline) Unsubscribe(sub *hub.Subscription[Snapshot]) {
	p.hub.Unsubscribe(sub)
}

// Close releases the attached detector.
func (p *Pipeline) Close() error {
	p.detMu.Lock()
	det := p.detector
	p.detector = nil
	p.detMu.Unlock()

	if det != nil {
		return det.Close()
	}
	return nil
}

func (p *Pipeline) publish() {
	if p.hub.Count() == 0 {
		return
	}
	p.hub.Publish(p.Snapshot())
}
