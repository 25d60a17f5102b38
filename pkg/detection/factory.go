package detection

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-breathe/internal/log"
)

// New creates the detector named by cfg.Backend.
//
// Setup failures are returned as *InitError; use errors.Is with
// ErrModelNotFound, ErrModelLoad or ErrSessionCreate to tell them apart.
func New(cfg Config, logger *slog.Logger) (Detector, error) {
	logger = log.Or(logger)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detection: invalid config: %w", err)
	}

	logger = logger.With("component", "detection", "backend", cfg.Backend)

	switch cfg.Backend {
	case BackendORT:
		d, err := NewORT(cfg, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendOpenCV:
		d, err := NewOpenCV(cfg, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case BackendMock:
		logger.Warn("using mock detector")
		return NewMockDetector(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
