package pipeline

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/camera"
	"github.com/teslashibe/go-breathe/pkg/detection"
	"github.com/teslashibe/go-breathe/pkg/overlay"
)

func chest(conf, w, h float64) []detection.Candidate {
	return []detection.Candidate{
		{X: 0.5, Y: 0.5, W: w * 0.5, H: h * 0.5, Confidence: conf / 2, Classes: []float64{0.1, 0.9}, Index: 0},
		{X: 0.5, Y: 0.5, W: w, H: h, Confidence: conf, Classes: []float64{0.9, 0.1}, Index: 1},
	}
}

type recordingSink struct {
	mu      sync.Mutex
	results []Result
}

func (s *recordingSink) Publish(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type countingDrawer struct{ boxes []overlay.Box }

func (d *countingDrawer) DrawBox(_ *camera.Frame, b overlay.Box, _ string) error {
	d.boxes = append(d.boxes, b)
	return nil
}

func newTestPipeline(t *testing.T, det detection.Detector, opts ...Option) (*Pipeline, *camera.MockSource) {
	t.Helper()
	src := camera.NewMockSource()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	p, err := New(DefaultConfig(), src, det, nil, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p, src
}

func TestPipeline_AcceptanceGate(t *testing.T) {
	det := detection.NewMockDetector(
		chest(0.02, 0.3, 0.4),
		chest(0.06, 0.3, 0.4),
		chest(0.90, 0.3, 0.42),
	)
	p, _ := newTestPipeline(t, det)

	var outcomes []Outcome
	for i := 0; i < 3; i++ {
		res, err := p.Tick()
		if err != nil {
			t.Fatalf("Tick %d failed: %v", i, err)
		}
		outcomes = append(outcomes, res.Outcome)
	}

	want := []Outcome{BelowThreshold, Processed, Processed}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("frame %d: got %q, want %q", i, outcomes[i], want[i])
		}
	}

	if got := p.History().Len(); got != 2 {
		t.Errorf("estimator should see 2 frames, history has %d", got)
	}

	st := p.Stats()
	if st.Frames != 3 || st.Processed != 2 || st.BelowThreshold != 1 || st.Skipped() != 1 {
		t.Errorf("stats: got %+v", st)
	}
}

func TestPipeline_ExactThresholdIsRejected(t *testing.T) {
	det := detection.NewMockDetector(chest(DefaultAcceptanceThreshold, 0.3, 0.4))
	p, _ := newTestPipeline(t, det)

	res, _ := p.Tick()
	if res.Outcome != BelowThreshold {
		t.Errorf("confidence equal to the threshold must be rejected, got %q", res.Outcome)
	}
}

func TestPipeline_SelectsBestCandidate(t *testing.T) {
	det := detection.NewMockDetector(chest(0.8, 0.3, 0.4))
	p, _ := newTestPipeline(t, det)

	res, _ := p.Tick()
	if res.Best.Index != 1 {
		t.Errorf("selected slot: got %d, want 1", res.Best.Index)
	}
	if res.Label != detection.LabelChest {
		t.Errorf("label: got %q", res.Label)
	}
	if !res.Reading.Baseline {
		t.Error("first accepted frame should be a baseline")
	}
}

func TestPipeline_BreathingSequence(t *testing.T) {
	// Chest sizes grow then shrink by more than 1%.
	det := detection.NewMockDetector(
		chest(0.9, 0.30, 0.40),
		chest(0.9, 0.33, 0.44),
		chest(0.9, 0.30, 0.40),
	)
	p, _ := newTestPipeline(t, det)

	var phases []breathing.Phase
	for i := 0; i < 3; i++ {
		res, _ := p.Tick()
		phases = append(phases, res.Reading.Phase)
	}

	want := []breathing.Phase{breathing.PhaseExhaling, breathing.PhaseInhaling, breathing.PhaseExhaling}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("frame %d phase: got %q, want %q", i, phases[i], want[i])
		}
	}
	if p.Stats().Transitions != 2 {
		t.Errorf("transitions: got %d, want 2", p.Stats().Transitions)
	}
}

func TestPipeline_DegenerateBox(t *testing.T) {
	det := detection.NewMockDetector(chest(0.9, 0.3, 0), chest(0.9, 0.3, 0.4))
	p, _ := newTestPipeline(t, det)

	res, err := p.Tick()
	if err != nil {
		t.Fatalf("degenerate box should not be an error: %v", err)
	}
	if res.Outcome != Degenerate {
		t.Errorf("outcome: got %q, want %q", res.Outcome, Degenerate)
	}

	res, _ = p.Tick()
	if res.Outcome != Processed || !res.Reading.Baseline {
		t.Errorf("next frame should become the baseline, got %+v", res)
	}
}

func TestPipeline_NoCandidates(t *testing.T) {
	det := detection.NewMockDetector([]detection.Candidate{})
	p, _ := newTestPipeline(t, det)

	res, _ := p.Tick()
	if res.Outcome != NoCandidates {
		t.Errorf("outcome: got %q", res.Outcome)
	}
	if p.Stats().ConsecutiveMisses != 1 {
		t.Errorf("misses: got %d", p.Stats().ConsecutiveMisses)
	}
}

func TestPipeline_NotReady(t *testing.T) {
	det := detection.NewMockDetector(chest(0.9, 0.3, 0.4))
	p, src := newTestPipeline(t, det)
	src.NotReadyFor = 2

	for i := 0; i < 2; i++ {
		res, err := p.Tick()
		if err != nil || res.Outcome != NotReady {
			t.Fatalf("tick %d: got %q, %v", i, res.Outcome, err)
		}
	}
	if det.Calls() != 0 {
		t.Error("detector must not run before the source is ready")
	}

	if res, _ := p.ProcessFrame(camera.NewFrame(16, 16)); res.Outcome != NotReady {
		t.Errorf("16x16 frame: got %q", res.Outcome)
	}
}

func TestPipeline_DetectorError(t *testing.T) {
	det := detection.NewMockDetector()
	det.Err = errors.New("inference failed")
	p, _ := newTestPipeline(t, det)

	if _, err := p.Tick(); !errors.Is(err, det.Err) {
		t.Errorf("expected detector error, got %v", err)
	}
	if p.Stats().Errors != 1 {
		t.Errorf("errors: got %d", p.Stats().Errors)
	}
}

func TestPipeline_SinksAndDrawer(t *testing.T) {
	det := detection.NewMockDetector(chest(0.02, 0.3, 0.4), chest(0.9, 0.5, 0.5))
	sink := &recordingSink{}
	drawer := &countingDrawer{}
	p, _ := newTestPipeline(t, det, WithSink(sink), WithDrawer(drawer))

	p.Tick()
	p.Tick()

	if sink.len() != 2 {
		t.Errorf("sink should see every frame, got %d", sink.len())
	}
	if len(drawer.boxes) != 1 {
		t.Fatalf("drawer should only see accepted frames, got %d", len(drawer.boxes))
	}

	// 64x48 mock frame, centered half-size box.
	b := drawer.boxes[0]
	if b.X != 16 || b.Y != 12 || b.W != 32 || b.H != 24 {
		t.Errorf("box: got %+v", b)
	}
}

func TestPipeline_Reset(t *testing.T) {
	det := detection.NewMockDetector(chest(0.9, 0.3, 0.4), chest(0.9, 0.35, 0.45), chest(0.9, 0.3, 0.4))
	p, _ := newTestPipeline(t, det)

	p.Tick()
	p.Tick()
	p.Reset()

	res, _ := p.Tick()
	if !res.Reading.Baseline {
		t.Error("first frame after Reset should be a baseline")
	}
	if res.Reading.Inhaling() {
		t.Error("Reset should return to exhaling")
	}
	if n := p.History().Len(); n != 1 {
		t.Errorf("history after Reset: got %d samples, want only the new baseline", n)
	}
}

func TestPipeline_ResetAppliesAtNextFrame(t *testing.T) {
	det := detection.NewMockDetector(chest(0.9, 0.3, 0.4), chest(0.9, 0.35, 0.45))
	p, _ := newTestPipeline(t, det)

	p.Tick()
	p.Reset()

	// Nothing changes until the loop picks the request up.
	if n := p.History().Len(); n != 1 {
		t.Errorf("history before next frame: got %d, want 1", n)
	}
	if _, ok := p.estimator.Last(); !ok {
		t.Error("estimator should keep its baseline until the next frame")
	}

	res, _ := p.Tick()
	if !res.Reading.Baseline || res.Reading.Transition {
		t.Errorf("frame after Reset: got %+v, want a fresh baseline", res.Reading)
	}
	samples := p.History().Samples()
	if len(samples) != 1 || samples[0].Size != res.ChestSize {
		t.Errorf("history after next frame: got %+v", samples)
	}
}

func TestPipeline_Start(t *testing.T) {
	det := detection.NewMockDetector()
	src := camera.NewMockSource()
	src.NotReadyFor = 2

	cfg := DefaultConfig()
	cfg.ReadyPoll = time.Millisecond
	p, err := New(cfg, src, det, nil, WithLogger(log.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if st := p.Stats(); st.Frames != 1 || st.NoCandidates != 1 {
		t.Errorf("Start should process the ready frame, stats %+v", st)
	}
}

func TestPipeline_StartTimeout(t *testing.T) {
	src := camera.NewMockSource()
	src.NotReadyFor = 1 << 30

	cfg := DefaultConfig()
	cfg.ReadyTimeout = 20 * time.Millisecond
	cfg.ReadyPoll = 2 * time.Millisecond
	p, _ := New(cfg, src, detection.NewMockDetector(), nil, WithLogger(log.Discard()))

	if err := p.Start(context.Background()); !errors.Is(err, camera.ErrDeviceNotReady) {
		t.Errorf("Expected ErrDeviceNotReady, got %v", err)
	}
}

func TestPipeline_Run(t *testing.T) {
	det := detection.NewMockDetector(chest(0.9, 0.3, 0.4))
	sink := &recordingSink{}

	cfg := DefaultConfig()
	cfg.Interval = time.Millisecond
	p, err := New(cfg, camera.NewMockSource(), det, nil, WithLogger(log.Discard()), WithSink(sink))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if sink.len() == 0 {
		t.Error("Run should process frames")
	}
}

func TestPipeline_RunStopsOnClosedSource(t *testing.T) {
	src := camera.NewMockSource()
	cfg := DefaultConfig()
	cfg.Interval = time.Millisecond
	p, _ := New(cfg, src, detection.NewMockDetector(), nil, WithLogger(log.Discard()))
	src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := p.Run(ctx); !errors.Is(err, camera.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestPipeline_RunEndsWhenReplayIsExhausted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000.png", "001.png"} {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	src, err := camera.NewReplaySource(dir, false)
	if err != nil {
		t.Fatalf("NewReplaySource failed: %v", err)
	}

	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Interval = time.Millisecond
	p, err := New(cfg, src, detection.NewMockDetector(chest(0.9, 0.3, 0.4)), nil,
		WithLogger(log.Discard()), WithSink(sink))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Run should return on its own once the replay ends")
	}

	st := p.Stats()
	if st.Processed != 2 || sink.len() != 2 {
		t.Errorf("processed %d frames, published %d, want 2 and 2", st.Processed, sink.len())
	}
	if st.Errors != 0 {
		t.Errorf("exhaustion should not count as an error, got %d", st.Errors)
	}
}

func TestPipeline_Close(t *testing.T) {
	det := detection.NewMockDetector()
	p, src := newTestPipeline(t, det)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !det.Closed() || !src.Closed() {
		t.Error("Close should release detector and source")
	}
}

func TestNew_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AcceptanceThreshold = 2
	if _, err := New(cfg, camera.NewMockSource(), detection.NewMockDetector(), nil); err == nil {
		t.Error("Expected error for invalid threshold")
	}

	if _, err := New(DefaultConfig(), nil, detection.NewMockDetector(), nil); err == nil {
		t.Error("Expected error for nil source")
	}
}
