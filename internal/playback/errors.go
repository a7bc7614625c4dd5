package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrPreparationTimeout is reported when a source is not ready within the bound.
	ErrPreparationTimeout = errors.New("source preparation timed out")
	// ErrStopped is returned by Realize when Stop or a newer Realize superseded it.
	ErrStopped = errors.New("playback stopped")
	// ErrSourceUnavailable is returned by sources that are not configured.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNotPrepared is returned by Play before a successful Prepare.
	ErrNotPrepared = errors.New("source not prepared")
	// ErrUnsupportedPreference is returned when a source cannot handle a preference.
	ErrUnsupportedPreference = errors.New("unsupported audio preference")
)

// SourceError is a failure reported by a source operation.
type SourceError struct {
	// Source is the name of the failing source.
	Source string
	// Op is the failing operation: prepare, play or stop.
	Op string
	// Err is the cause, opaque to the controller.
	Err error
}

// Error implements error.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source %s: %v", e.Source, e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *SourceError) Unwrap() error {
	return e.Err
}

func sourceError(src Source, op string, err error) error {
	var serr *SourceError
	if errors.As(err, &serr) {
		return err
	}

	return &SourceError{Source: src.Name(), Op: op, Err: err}
}
