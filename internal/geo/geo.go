// Package geo models the device geolocation collaborator. Positions are
// reported by the browser and kept per session; the planner queries the
// last report whenever it needs a start location.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"roamfree/internal/models"
)

// ErrorKind classifies why a position could not be obtained.
type ErrorKind string

const (
	PermissionDenied    ErrorKind = "permission_denied"
	PositionUnavailable ErrorKind = "position_unavailable"
	Timeout             ErrorKind = "timeout"
	Unsupported         ErrorKind = "unsupported"
)

// Sentinels for errors.Is matching against a *PositionError.
var (
	ErrPermissionDenied    = &PositionError{Kind: PermissionDenied}
	ErrPositionUnavailable = &PositionError{Kind: PositionUnavailable}
	ErrTimeout             = &PositionError{Kind: Timeout}
	ErrUnsupported         = &PositionError{Kind: Unsupported}
)

var defaultMessages = map[ErrorKind]string{
	PermissionDenied:    "User denied the request for Geolocation.",
	PositionUnavailable: "Location information is unavailable.",
	Timeout:             "The request to get user location timed out.",
	Unsupported:         "Geolocation is not supported by this browser.",
}

// PositionError is returned when the device could not report a position.
type PositionError struct {
	Kind    ErrorKind
	Message string
}

// NewPositionError creates an error of kind with an optional browser-supplied message.
func NewPositionError(kind ErrorKind, message string) *PositionError {
	return &PositionError{Kind: kind, Message: message}
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := defaultMessages[e.Kind]; ok {
		return msg
	}
	return "Could not fetch your location."
}

// Is matches any PositionError of the same kind.
func (e *PositionError) Is(target error) bool {
	var t *PositionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// ParseErrorKind maps a kind name or a W3C GeolocationPositionError code
// ("1", "2", "3") to an ErrorKind.
func ParseErrorKind(s string) (ErrorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "permission_denied", "permissiondenied", "1":
		return PermissionDenied, nil
	case "position_unavailable", "positionunavailable", "2":
		return PositionUnavailable, nil
	case "timeout", "3":
		return Timeout, nil
	case "unsupported":
		return Unsupported, nil
	default:
		return "", fmt.Errorf("unknown geolocation error kind %q", s)
	}
}

// Source is a one-shot "get current position" capability.
type Source interface {
	CurrentPosition(ctx context.Context) (models.Coordinates, error)
}

var _ Source = (*ReportedSource)(nil)

// ReportedSource answers with whatever the browser last reported. Until the
// first report it answers PositionUnavailable.
type ReportedSource struct {
	mu       sync.RWMutex
	position *models.Coordinates
	err      *PositionError
}

// NewReportedSource creates a source with nothing reported yet
func NewReportedSource() *ReportedSource {
	return &ReportedSource{}
}

// CurrentPosition returns the last reported position or error.
func (s *ReportedSource) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.position != nil {
		return *s.position, nil
	}
	if s.err != nil {
		return models.Coordinates{}, s.err
	}
	return models.Coordinates{}, NewPositionError(PositionUnavailable, "")
}

// Report records a successful fix and clears any previous error.
func (s *ReportedSource) Report(pos models.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = &pos
	s.err = nil
}

// ReportError records a failure. A previously known position is forgotten
// so the planner does not keep using a fix the device has withdrawn.
func (s *ReportedSource) ReportError(err *PositionError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = nil
	s.err = err
}

// LastError returns the last reported error, if any.
func (s *ReportedSource) LastError() *PositionError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Position returns the last reported position, if any.
func (s *ReportedSource) Position() (models.Coordinates, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.position == nil {
		return models.Coordinates{}, false
	}
	return *s.position, true
}
