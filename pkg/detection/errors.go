package detection

import (
	"errors"
	"fmt"
)

// Sentinel errors for detector setup and use.
var (
	ErrModelNotFound  = errors.New("detection: model file not found")
	ErrModelLoad      = errors.New("detection: failed to load model")
	ErrSessionCreate  = errors.New("detection: failed to create inference session")
	ErrUnknownBackend = errors.New("detection: unknown backend")
	ErrShortOutput    = errors.New("detection: output buffer shorter than grid")
	ErrClosed         = errors.New("detection: detector closed")
)

// InitError reports a detector that could not be brought up.
// errors.Is matches both Kind and the underlying cause.
type InitError struct {
	Backend string
	Path    string
	Kind    error // One of ErrModelNotFound, ErrModelLoad, ErrSessionCreate
	Err     error
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (%s, %s)", e.Kind, e.Backend, e.Path)
	}
	return fmt.Sprintf("%v (%s, %s): %v", e.Kind, e.Backend, e.Path, e.Err)
}

func (e *InitError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func initErr(backend, path string, kind, err error) *InitError {
	return &InitError{Backend: backend, Path: path, Kind: kind, Err: err}
}
