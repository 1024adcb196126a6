package position

import (
	"errors"
	"fmt"
	"math"
	"time"

	"walk-navigation/internal/geo"
)

// Options are forwarded to the underlying location capability.
type Options struct {
	// HighAccuracy trades battery and latency for precision.
	HighAccuracy bool `json:"enableHighAccuracy"`
	// MaxSampleAge lets the capability reuse a cached fix no older than this.
	MaxSampleAge time.Duration `json:"-"`
	// Timeout reports ReasonTimeout when no fix is obtained within this window.
	Timeout time.Duration `json:"-"`
}

func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		MaxSampleAge: time.Second,
		Timeout:      10 * time.Second,
	}
}

// Sample is one location fix.
type Sample struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	Heading     *float64       `json:"heading,omitempty"`
	TimestampMs int64          `json:"timestamp"`
}

// ReportedHeading returns the device heading when it is present and finite.
func (s Sample) ReportedHeading() (float64, bool) {
	if s.Heading == nil || math.IsNaN(*s.Heading) || math.IsInf(*s.Heading, 0) {
		return 0, false
	}
	return *s.Heading, true
}

var ErrPositionUnavailable = errors.New("position unavailable")

type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonTimeout          Reason = "timeout"
	ReasonUnavailable      Reason = "position_unavailable"
)

func (r Reason) IsValid() bool {
	switch r {
	case ReasonPermissionDenied, ReasonTimeout, ReasonUnavailable:
		return true
	}
	return false
}

// Error is the only error type a Subscription reports. It matches
// ErrPositionUnavailable with errors.Is.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrPositionUnavailable, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", ErrPositionUnavailable, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrPositionUnavailable }

// AsError normalises any capability error into an *Error.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Reason: ReasonUnavailable, Err: err}
}
