// Package web serves the breathing dashboard: a JSON API over the live
// pipeline plus websocket feeds for status and annotated camera frames.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/hub"
	"github.com/teslashibe/go-breathe/pkg/pipeline"
)

// maxEvents is the number of phase changes kept for /api/events.
const maxEvents = 500

// Pipeline is the view of the running pipeline the dashboard needs.
type Pipeline interface {
	Last() pipeline.Result
	Stats() pipeline.Stats
	History() *breathing.History
	Config() pipeline.Config
	Reset()
}

// Status is the dashboard's per-frame payload.
type Status struct {
	Seq            uint64           `json:"seq"`
	Time           string           `json:"time"`
	Outcome        pipeline.Outcome `json:"outcome"`
	Label          string           `json:"label,omitempty"`
	Confidence     float64          `json:"confidence"`
	ChestSize      float64          `json:"chest_size"`
	RelativeChange float64          `json:"relative_change"`
	Status         breathing.Status `json:"status,omitempty"`
	Phase          breathing.Phase  `json:"phase,omitempty"`
	Transition     bool             `json:"transition"`
	Stats          pipeline.Stats   `json:"stats"`
}

// Event is one breathing phase change.
type Event struct {
	Time      string          `json:"time"`
	Phase     breathing.Phase `json:"phase"`
	ChestSize float64         `json:"chest_size"`
}

// Server is the dashboard HTTP server. It implements pipeline.Sink.
type Server struct {
	app      *fiber.App
	port     string
	pipeline Pipeline
	logger   *slog.Logger

	mu     sync.RWMutex
	status Status
	events []Event

	statusHub *hub.Hub
	cameraHub *hub.Hub

	hubsOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates the dashboard for p, listening on port when started.
func NewServer(port string, p Pipeline, logger *slog.Logger) *Server {
	logger = log.Or(logger)
	logger = logger.With("component", "web")

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:       ctx,
		cancel:    cancel,
		port:      port,
		pipeline:  p,
		logger:    logger,
		events:    make([]Event, 0, maxEvents),
		statusHub: hub.New("status", logger),
		cameraHub: hub.NewRetained("camera", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-breathe dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/history", s.handleHistory)
	api.Get("/summary", s.handleSummary)
	api.Get("/config", s.handleConfig)
	api.Get("/events", s.handleEvents)
	api.Post("/reset", s.handleReset)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured port and blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve runs the dashboard on ln and blocks until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.startHubs()
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

func (s *Server) startHubs() {
	s.hubsOnce.Do(func() {
		go s.statusHub.Run(s.ctx)
		go s.cameraHub.Run(s.ctx)
	})
}

// Shutdown stops the hubs and the HTTP server.
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// Publish implements pipeline.Sink.
func (s *Server) Publish(res pipeline.Result) {
	st := newStatus(res, s.pipeline.Stats())

	s.mu.Lock()
	s.status = st
	if res.Reading.Transition {
		s.events = append(s.events, Event{Time: st.Time, Phase: res.Reading.Phase, ChestSize: res.ChestSize})
		if len(s.events) > maxEvents {
			s.events = s.events[1:]
		}
	}
	s.mu.Unlock()

	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("status broadcast failed", "error", err)
	}
}

// SendCameraFrame broadcasts a JPEG frame to camera clients.
func (s *Server) SendCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// StatusHub returns the status hub.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// CameraHub returns the camera hub.
func (s *Server) CameraHub() *hub.Hub {
	return s.cameraHub
}

func newStatus(res pipeline.Result, stats pipeline.Stats) Status {
	st := Status{
		Seq:        res.Seq,
		Time:       res.Time.Format(time.RFC3339Nano),
		Outcome:    res.Outcome,
		Label:      res.Label,
		Confidence: res.Confidence,
		Stats:      stats,
	}
	if res.Accepted() {
		st.ChestSize = res.ChestSize
		st.RelativeChange = res.Reading.RelativeChange
		st.Status = res.Reading.Status
		st.Phase = res.Reading.Phase
		st.Transition = res.Reading.Transition
	}
	return st
}

var _ pipeline.Sink = (*Server)(nil)
