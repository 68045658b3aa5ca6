package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/maps-harvester/browser"
)

// ErrStaleListing is returned when a listing is used with a session other
// than the one that discovered it.
var ErrStaleListing = errors.New("listing belongs to another session")

var errListingPanic = errors.New("listing processing panicked")

// ListingError is a failure confined to one listing. The listing is skipped
// and the batch continues.
type ListingError struct {
	Index int
	Name  string
	Err   error
}

func (e *ListingError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("listing %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("listing %d: %v", e.Index, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// BatchError aborts a whole harvest. Run returns no records alongside it.
type BatchError struct {
	Stage string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("harvest failed during %s: %v", e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func failureLabel(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, errListingPanic):
		return "panic"
	case errors.Is(err, ErrStaleListing):
		return "stale_listing"
	case errors.Is(err, browser.ErrNoElement):
		return "missing_element"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
