package ocean

import (
	"context"
	"errors"
	"net"
)

// Fetch failure classes. Data sources wrap one of these so the orchestrator
// can decide whether a widened retry is worth attempting.
var (
	ErrFetchTimeout   = errors.New("data source timed out")
	ErrNoData         = errors.New("no data in the requested region")
	ErrFetchTransport = errors.New("data source transport failure")
)

// ErrSelection marks a selection that violates the structured contract:
// wrong function name, box mode without a box, points mode without points,
// or out-of-range bounds.
var ErrSelection = errors.New("invalid selection")

// FailureKind names the class of a fetch error.
type FailureKind string

const (
	FailureTimeout      FailureKind = "timeout"
	FailureNoData       FailureKind = "no_data"
	FailureTransport    FailureKind = "transport"
	FailureUnclassified FailureKind = "unclassified"
)

// ClassifyFetchError maps an error to its failure class. Context deadlines and
// network timeouts count as timeouts even when the source did not wrap them.
func ClassifyFetchError(err error) FailureKind {
	if err == nil {
		return ""
	}
	var netErr net.Error
	switch {
	case errors.Is(err, ErrFetchTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return FailureTimeout
	case errors.Is(err, ErrNoData):
		return FailureNoData
	case errors.Is(err, ErrFetchTransport):
		return FailureTransport
	default:
		return FailureUnclassified
	}
}

// IsTransient reports whether err belongs to the retryable timeout / no-data /
// transport class.
func IsTransient(err error) bool {
	k := ClassifyFetchError(err)
	return k != "" && k != FailureUnclassified
}
