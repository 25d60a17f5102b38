package record

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/detection"
	"github.com/teslashibe/go-breathe/pkg/pipeline"
)

func results(start time.Time) []pipeline.Result {
	return []pipeline.Result{
		{
			Seq: 1, Time: start, Outcome: pipeline.BelowThreshold,
			Confidence: 0.02, Label: "chest",
		},
		{
			Seq: 2, Time: start.Add(time.Second), Outcome: pipeline.Processed,
			Best:       detection.Candidate{X: 0.5, Y: 0.5, W: 0.3, H: 0.4, Confidence: 0.9},
			Confidence: 0.9, Label: "chest", ChestSize: 0.502,
			Reading: breathing.Reading{Size: 0.502, Baseline: true, Phase: breathing.PhaseExhaling},
		},
		{
			Seq: 3, Time: start.Add(2 * time.Second), Outcome: pipeline.Processed,
			Best:       detection.Candidate{X: 0.5, Y: 0.5, W: 0.33, H: 0.44, Confidence: 0.8},
			Confidence: 0.8, Label: "chest", ChestSize: 0.545,
			Reading: breathing.Reading{
				Size: 0.545, Last: 0.502, RelativeChange: 0.0857,
				Status: breathing.StatusInhale, Phase: breathing.PhaseInhaling, Transition: true,
			},
		},
	}
}

func TestRecorder_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "session.csv")

	rec, err := Create(path, log.Discard())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := uuid.Parse(rec.ID()); err != nil {
		t.Errorf("session ID is not a UUID: %q", rec.ID())
	}

	start := time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC)
	for _, r := range results(start) {
		rec.Publish(r)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if rec.Rows() != 3 {
		t.Errorf("Rows: got %d, want 3", rec.Rows())
	}

	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "session,seq"); n != 1 {
		t.Errorf("header should appear once, found %d", n)
	}

	rows, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	r := rows[2]
	if r.Session != rec.ID() || r.Seq != 3 || r.Outcome != "processed" {
		t.Errorf("row 3: got %+v", r)
	}
	if r.Status != "Inhale" || r.Phase != "inhaling" || !r.Transition {
		t.Errorf("row 3 reading: got %+v", r)
	}
	if rows[0].ChestSize != 0 || rows[0].Status != "" {
		t.Errorf("skipped row should carry no reading: %+v", rows[0])
	}

	samples, err := Samples(rows)
	if err != nil {
		t.Fatalf("Samples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if !samples[1].Time.Equal(start.Add(2 * time.Second)) {
		t.Errorf("sample time: got %v", samples[1].Time)
	}
}

func TestRecorder_SessionSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.csv")

	rec, err := Create(path, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results(time.Now()) {
		rec.Publish(r)
	}
	rec.Close()

	sess, err := LoadSession(SessionPath(path))
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if sess.ID != rec.ID() || sess.Rows != 3 {
		t.Errorf("session: got %+v", sess)
	}
	if sess.Summary.Count != 2 || sess.Summary.Inhales != 1 {
		t.Errorf("summary: got %+v", sess.Summary)
	}
}

func TestRecorder_SummaryCoversWholeSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.csv")
	rec, err := Create(path, log.Discard())
	if err != nil {
		t.Fatal(err)
	}

	start := time.Unix(1700000000, 0)
	const frames = 3000
	for i := 0; i < frames; i++ {
		size := 0.5 + 0.05*math.Sin(float64(i)/15)
		phase := breathing.PhaseExhaling
		if math.Cos(float64(i)/15) > 0 {
			phase = breathing.PhaseInhaling
		}
		rec.Publish(pipeline.Result{
			Seq: uint64(i + 1), Time: start.Add(time.Duration(i) * 33 * time.Millisecond),
			Outcome: pipeline.Processed, Confidence: 0.9, Label: "chest", ChestSize: size,
			Reading: breathing.Reading{Size: size, Phase: phase, Transition: i%94 == 0},
		})
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sess, err := LoadSession(SessionPath(path))
	if err != nil {
		t.Fatal(err)
	}
	rows, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	samples, err := Samples(rows)
	if err != nil {
		t.Fatal(err)
	}
	want := breathing.Summarize(samples)

	if sess.Summary.Count != frames || sess.Summary.Inhales != want.Inhales {
		t.Errorf("summary counts: got %+v, want %+v", sess.Summary, want)
	}
	if math.Abs(sess.Summary.Mean-want.Mean) > 1e-9 || math.Abs(sess.Summary.StdDev-want.StdDev) > 1e-9 {
		t.Errorf("summary stats: got mean %v sd %v, want %v %v",
			sess.Summary.Mean, sess.Summary.StdDev, want.Mean, want.StdDev)
	}
}

func TestRecorder_PublishAfterClose(t *testing.T) {
	rec, err := Create(filepath.Join(t.TempDir(), "a.csv"), log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	rec.Close()
	rec.Publish(pipeline.Result{Outcome: pipeline.NotReady})

	if rec.Rows() != 0 {
		t.Errorf("Publish after Close should be dropped, rows=%d", rec.Rows())
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSessionPath(t *testing.T) {
	if got := SessionPath("/tmp/run.csv"); got != "/tmp/run.session.json" {
		t.Errorf("SessionPath: got %q", got)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load("/nonexistent/run.csv"); err == nil {
		t.Error("Expected error for missing file")
	}
}
