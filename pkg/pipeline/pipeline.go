package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/camera"
	"github.com/teslashibe/go-breathe/pkg/detection"
	"github.com/teslashibe/go-breathe/pkg/overlay"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDrawer sets the overlay for accepted frames.
func WithDrawer(d overlay.Drawer) Option {
	return func(p *Pipeline) { p.drawer = d }
}

// WithSink adds a result sink.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, s) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline owns a frame source, a detector and the breathing estimator.
// ProcessFrame, Tick and Run must be called from one goroutine.
type Pipeline struct {
	cfg      Config
	source   camera.Source
	detector detection.Detector
	labels   []string

	estimator *breathing.Estimator
	history   *breathing.History
	drawer    overlay.Drawer
	sinks     []Sink
	logger    *slog.Logger
	now       func() time.Time

	resetPending atomic.Bool

	mu    sync.RWMutex
	stats Stats
	last  Result

	closeOnce sync.Once
	closeErr  error
}

// New creates a pipeline. labels name the detector classes and may be nil.
func New(cfg Config, source camera.Source, detector detection.Detector, labels []string, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || detector == nil {
		return nil, fmt.Errorf("pipeline: source and detector are required")
	}
	if labels == nil {
		labels = detection.DefaultConfig().Labels
	}

	p := &Pipeline{
		cfg:       cfg,
		source:    source,
		detector:  detector,
		labels:    labels,
		estimator: breathing.NewEstimator(cfg.Breathing),
		history:   breathing.NewHistory(cfg.HistorySize),
		logger:    log.L(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// History returns the accepted-sample history.
func (p *Pipeline) History() *breathing.History {
	return p.history
}

// AddSink registers another sink. Call it before Run.
func (p *Pipeline) AddSink(s Sink) {
	p.sinks = append(p.sinks, s)
}

// SetDrawer replaces the overlay. Call it before Run.
func (p *Pipeline) SetDrawer(d overlay.Drawer) {
	p.drawer = d
}

// Start blocks until the source delivers a ready frame or ReadyTimeout
// elapses, in which case the error wraps camera.ErrDeviceNotReady. The
// ready frame is processed like any other.
func (p *Pipeline) Start(ctx context.Context) error {
	p.logger.Info("waiting for camera", "source", p.source.Name(), "timeout", p.cfg.ReadyTimeout)

	frame, err := camera.WaitReady(ctx, p.source, p.cfg.ReadyTimeout, p.cfg.ReadyPoll)
	if err != nil {
		return err
	}

	p.logger.Info("camera ready",
		"source", p.source.Name(),
		"width", frame.Width,
		"height", frame.Height)

	if _, err := p.ProcessFrame(frame); err != nil {
		p.logger.Error("first frame failed", "error", err)
	}
	return nil
}

// Tick captures one frame and processes it. A source that is not ready
// yields a NotReady result, not an error.
func (p *Pipeline) Tick() (Result, error) {
	frame, err := p.source.Capture()
	if errors.Is(err, camera.ErrNotReady) {
		return p.finish(Result{Time: p.now(), Outcome: NotReady}), nil
	}
	if err != nil {
		if !errors.Is(err, camera.ErrExhausted) {
			p.countError()
		}
		return Result{}, fmt.Errorf("pipeline: capture: %w", err)
	}
	return p.ProcessFrame(frame)
}

// ProcessFrame runs one frame through detection and estimation.
func (p *Pipeline) ProcessFrame(frame *camera.Frame) (Result, error) {
	if p.resetPending.Swap(false) {
		p.estimator.Reset()
		p.history.Reset()
		p.logger.Info("estimator reset")
	}

	res := Result{Time: p.now()}
	if frame == nil || !frame.Ready() {
		res.Outcome = NotReady
		return p.finish(res), nil
	}
	res.Seq = frame.Seq
	res.FrameWidth, res.FrameHeight = frame.Width, frame.Height

	cands, err := p.detector.Detect(frame)
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) {
			res.Outcome = NotReady
			return p.finish(res), nil
		}
		p.countError()
		return Result{}, fmt.Errorf("pipeline: detect: %w", err)
	}

	best, ok := detection.SelectBest(cands)
	if !ok {
		res.Outcome = NoCandidates
		p.logger.Info("no chest detected")
		return p.finish(res), nil
	}

	res.Best = best
	res.Label = best.Label(p.labels)
	res.Confidence = best.Confidence

	if !(best.Confidence > p.cfg.AcceptanceThreshold) {
		res.Outcome = BelowThreshold
		p.logger.Info("no chest detected with high confidence", "confidence", best.Confidence)
		return p.finish(res), nil
	}

	size, err := breathing.ChestSize(best.W, best.H, p.cfg.Breathing.Weights)
	if err != nil {
		res.Outcome = Degenerate
		p.logger.Warn("skipping degenerate box", "slot", best.Index, "w", best.W, "h", best.H, "error", err)
		return p.finish(res), nil
	}
	res.ChestSize = size

	p.logger.Info("chest detected",
		"confidence", best.Confidence,
		"label", res.Label,
		"chest_size", size)

	reading, err := p.estimator.Update(size)
	if err != nil {
		res.Outcome = Degenerate
		p.logger.Warn("skipping invalid chest size", "chest_size", size, "error", err)
		return p.finish(res), nil
	}
	res.Reading = reading
	res.Outcome = Processed
	p.logReading(reading)

	res.Box = overlay.ToScreen(best, frame.Width, frame.Height)
	if p.drawer != nil {
		if err := p.drawer.DrawBox(frame, res.Box, res.Label); err != nil {
			p.logger.Warn("overlay failed", "error", err)
		}
	}

	p.history.Add(breathing.Sample{
		Time:       res.Time,
		Size:       size,
		Confidence: best.Confidence,
		Status:     reading.Status,
		Phase:      reading.Phase,
		Transition: reading.Transition,
	})

	return p.finish(res), nil
}

func (p *Pipeline) logReading(r breathing.Reading) {
	if r.Baseline {
		p.logger.Info("baseline set", "current", r.Size)
		return
	}

	p.logger.Info("chest size change",
		"current", r.Size,
		"last", r.Last,
		"relative_change", r.RelativeChange,
		"status", string(r.Status))

	if r.Transition {
		p.logger.Info("breathing phase changed", "phase", string(r.Phase))
	}
}

// finish updates stats and publishes res.
func (p *Pipeline) finish(res Result) Result {
	p.mu.Lock()
	p.stats.Frames++
	switch res.Outcome {
	case Processed:
		p.stats.Processed++
		p.stats.ConsecutiveMisses = 0
		if res.Reading.Transition {
			p.stats.Transitions++
		}
	case BelowThreshold:
		p.stats.BelowThreshold++
	case NoCandidates:
		p.stats.NoCandidates++
	case Degenerate:
		p.stats.Degenerate++
	case NotReady:
		p.stats.NotReady++
	}
	if res.Outcome == BelowThreshold || res.Outcome == NoCandidates {
		p.stats.ConsecutiveMisses++
	}
	misses := p.stats.ConsecutiveMisses
	p.last = res
	p.mu.Unlock()

	if p.cfg.MissLogThreshold > 0 && misses == p.cfg.MissLogThreshold {
		p.logger.Warn("chest lost", "consecutive_misses", misses)
	}

	for _, s := range p.sinks {
		s.Publish(res)
	}
	return res
}

func (p *Pipeline) countError() {
	p.mu.Lock()
	p.stats.Errors++
	p.mu.Unlock()
}

// Run ticks every interval until ctx is done. Tick errors are logged and
// the loop moves on to the next frame. An exhausted source ends the loop
// with a nil error; a closed source or detector ends it with that error.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.logger.Info("pipeline started",
		"interval", p.cfg.Interval,
		"acceptance_threshold", p.cfg.AcceptanceThreshold,
		"breathing_threshold", p.cfg.Breathing.BreathingThreshold)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopped", "frames", p.Stats().Frames)
			return nil

		case <-ticker.C:
			if _, err := p.Tick(); err != nil {
				if errors.Is(err, camera.ErrExhausted) {
					p.logger.Info("source exhausted", "source", p.source.Name(), "frames", p.Stats().Frames)
					return nil
				}
				if errors.Is(err, camera.ErrClosed) || errors.Is(err, detection.ErrClosed) {
					return err
				}
				p.logger.Error("tick failed", "error", err)
			}
		}
	}
}

// Stats returns a snapshot of the frame counters.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Last returns the most recent result.
func (p *Pipeline) Last() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Reset asks the loop to clear the estimator and the history before the
// next frame, so a frame already in flight is measured and recorded
// against the old baseline. It is safe to call from any goroutine.
func (p *Pipeline) Reset() {
	p.resetPending.Store(true)
}

// Close releases the detector, then the source. Later calls return the
// first result.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		if err := p.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
		if err := p.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}
