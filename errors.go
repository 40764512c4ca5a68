package markers

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-markers/pkg/document"
	"github.com/goliatone/go-markers/pkg/state"
)

var (
	// ErrInvalidWorld reports a world name outside the configured registry.
	ErrInvalidWorld = errors.New("markers: invalid world")
	// ErrInvalidCoordinates reports a coordinate that is not a whole number.
	ErrInvalidCoordinates = errors.New("markers: coordinates must be whole numbers")
	// ErrEmptyLabel reports a label that is blank after trimming.
	ErrEmptyLabel = errors.New("markers: label is required")
	// ErrDocumentParse reports an unreadable or structurally unusable document.
	ErrDocumentParse = document.ErrParse
	// ErrIO reports a storage failure; nothing was persisted.
	ErrIO = state.ErrIO
)

// MarkerError captures the operation and world alongside the originating error.
type MarkerError struct {
	Op    string
	World string
	Err   error
}

func (e *MarkerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.World == "" {
		return fmt.Sprintf("markers: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("markers: %s %s: %v", e.Op, e.World, e.Err)
}

func (e *MarkerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapMarkerError(op, world string, err error) error {
	if err == nil {
		return nil
	}
	var markerErr *MarkerError
	if errors.As(err, &markerErr) {
		return err
	}
	return &MarkerError{Op: op, World: world, Err: err}
}
