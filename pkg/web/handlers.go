package web

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-breathe/pkg/hub"
)

// handleStatus returns the latest frame status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	if st.Time == "" {
		st = newStatus(s.pipeline.Last(), s.pipeline.Stats())
	}
	return c.JSON(st)
}

// handleHistory returns accepted samples, oldest first.
// ?limit=N keeps only the newest N.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	samples := s.pipeline.History().Samples()

	if limit := c.QueryInt("limit", 0); limit > 0 && limit < len(samples) {
		samples = samples[len(samples)-limit:]
	}
	return c.JSON(samples)
}

// handleSummary returns statistics over the history.
func (s *Server) handleSummary(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.History().Summary())
}

// handleConfig returns the pipeline configuration.
func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Config())
}

// handleEvents returns recent breathing phase changes.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.events)
}

// handleReset clears history and restarts estimation.
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.pipeline.Reset()

	s.mu.Lock()
	s.events = s.events[:0]
	s.mu.Unlock()

	s.logger.Info("reset requested", "remote", c.IP())
	return c.JSON(fiber.Map{"reset": true})
}

// handleStatusWS streams a Status per frame, starting with the latest.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)

	s.mu.RLock()
	msg, err := hub.Encode(s.status)
	s.mu.RUnlock()
	if err == nil {
		client.Send(msg)
	}

	client.Run()
}

// handleCameraWS streams annotated JPEG frames.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
