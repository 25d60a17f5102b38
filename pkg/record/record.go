// Package record writes per-frame pipeline results to CSV.
//
// Each Recorder stamps its rows with a session ID. On Close it also writes
// a JSON session summary next to the CSV file.
package record

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/pipeline"
)

// Row is one CSV line.
type Row struct {
	Session        string  `csv:"session"`
	Seq            uint64  `csv:"seq"`
	Time           string  `csv:"time"` // RFC 3339, nanoseconds
	Outcome        string  `csv:"outcome"`
	Label          string  `csv:"label"`
	Confidence     float64 `csv:"confidence"`
	X              float64 `csv:"x"`
	Y              float64 `csv:"y"`
	W              float64 `csv:"w"`
	H              float64 `csv:"h"`
	ChestSize      float64 `csv:"chest_size"`
	RelativeChange float64 `csv:"relative_change"`
	Status         string  `csv:"status"`
	Phase          string  `csv:"phase"`
	Transition     bool    `csv:"transition"`
	Baseline       bool    `csv:"baseline"`
}

// FromResult converts a pipeline result into a row.
func FromResult(session string, r pipeline.Result) Row {
	row := Row{
		Session:    session,
		Seq:        r.Seq,
		Time:       r.Time.UTC().Format(time.RFC3339Nano),
		Outcome:    string(r.Outcome),
		Label:      r.Label,
		Confidence: r.Confidence,
		X:          r.Best.X,
		Y:          r.Best.Y,
		W:          r.Best.W,
		H:          r.Best.H,
	}
	if r.Accepted() {
		row.ChestSize = r.ChestSize
		row.RelativeChange = r.Reading.RelativeChange
		row.Status = string(r.Reading.Status)
		row.Phase = string(r.Reading.Phase)
		row.Transition = r.Reading.Transition
		row.Baseline = r.Reading.Baseline
	}
	return row
}

// Sample converts an accepted row back into a history sample.
func (r Row) Sample() (breathing.Sample, error) {
	t, err := time.Parse(time.RFC3339Nano, r.Time)
	if err != nil {
		return breathing.Sample{}, fmt.Errorf("record: row %d time: %w", r.Seq, err)
	}
	return breathing.Sample{
		Time:       t,
		Size:       r.ChestSize,
		Confidence: r.Confidence,
		Status:     breathing.Status(r.Status),
		Phase:      breathing.Phase(r.Phase),
		Transition: r.Transition,
	}, nil
}

// Session is the JSON summary written on Close.
type Session struct {
	ID      string            `json:"id"`
	CSV     string            `json:"csv"`
	Started time.Time         `json:"started"`
	Ended   time.Time         `json:"ended"`
	Rows    int               `json:"rows"`
	Summary breathing.Summary `json:"summary"`
}

// Recorder is a pipeline.Sink writing rows to a CSV file.
type Recorder struct {
	id     string
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	file     *os.File
	header   bool
	rows     int
	started  time.Time
	summary  breathing.Accumulator
	firstErr error
	closed   bool
}

// Create opens path for writing and starts a new session.
func Create(path string, logger *slog.Logger) (*Recorder, error) {
	logger = log.Or(logger)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("record: create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("record: create %s: %w", path, err)
	}

	r := &Recorder{
		id:      uuid.NewString(),
		path:    path,
		file:    f,
		started: time.Now(),
	}
	r.logger = logger.With("component", "record", "session", r.id)
	r.logger.Info("recording started", "path", path)
	return r, nil
}

// ID returns the session ID.
func (r *Recorder) ID() string {
	return r.id
}

// Publish implements pipeline.Sink. Write failures are kept and reported
// by Err and Close.
func (r *Recorder) Publish(res pipeline.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.firstErr != nil {
		return
	}

	rows := []Row{FromResult(r.id, res)}

	var err error
	if r.header {
		err = gocsv.MarshalWithoutHeaders(rows, r.file)
	} else {
		err = gocsv.Marshal(rows, r.file)
		r.header = err == nil
	}
	if err != nil {
		r.firstErr = fmt.Errorf("record: write row: %w", err)
		r.logger.Error("recording failed", "error", err)
		return
	}

	r.rows++
	if res.Accepted() {
		if s, err := rows[0].Sample(); err == nil {
			r.summary.Add(s)
		}
	}
}

// Rows returns the number of rows written.
func (r *Recorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstErr
}

// Close flushes the CSV and writes the session summary.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return r.firstErr
	}
	r.closed = true

	if err := r.file.Close(); err != nil && r.firstErr == nil {
		r.firstErr = fmt.Errorf("record: close: %w", err)
	}

	sess := Session{
		ID:      r.id,
		CSV:     r.path,
		Started: r.started,
		Ended:   time.Now(),
		Rows:    r.rows,
		Summary: r.summary.Summary(),
	}
	if err := SaveSession(SessionPath(r.path), sess); err != nil && r.firstErr == nil {
		r.firstErr = err
	}

	r.logger.Info("recording stopped",
		"rows", r.rows,
		"breaths_per_minute", sess.Summary.BreathsPerMinute)
	return r.firstErr
}

// SessionPath returns the summary path for a CSV path.
func SessionPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".session.json"
}

// SaveSession writes sess as indented JSON.
func SaveSession(path string, sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("record: marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("record: write session: %w", err)
	}
	return nil
}

// LoadSession reads a summary written by Close.
func LoadSession(path string) (Session, error) {
	var sess Session
	data, err := os.ReadFile(path)
	if err != nil {
		return sess, fmt.Errorf("record: read session: %w", err)
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return sess, fmt.Errorf("record: parse session: %w", err)
	}
	return sess, nil
}

// Load reads every row of a recording.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}
	defer f.Close()

	var rows []Row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("record: parse %s: %w", path, err)
	}
	return rows, nil
}

// Samples returns the accepted rows of a recording as history samples.
func Samples(rows []Row) ([]breathing.Sample, error) {
	var out []breathing.Sample
	for _, row := range rows {
		if row.Outcome != string(pipeline.Processed) {
			continue
		}
		s, err := row.Sample()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

var _ pipeline.Sink = (*Recorder)(nil)
