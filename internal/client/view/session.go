package view

import (
	"context"
	"fmt"
	"sync"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/geo"
)

// Session holds per-session UI state for the submission form: whether the
// map is in pick-a-point mode, the pending marker position, and the handle
// to any in-flight geolocation attempt. At most one position acquisition
// runs at a time; entering selection mode or starting a new acquisition
// cancels the previous one.
type Session struct {
	boundary *geo.Boundary

	mu        sync.Mutex
	selecting bool
	lat, lng  float64
	hasPos    bool
	cancel    context.CancelFunc
}

func NewSession(boundary *geo.Boundary) *Session {
	return &Session{boundary: boundary}
}

// EnterSelection switches the map into manual point selection and aborts
// any geolocation attempt still running.
func (s *Session) EnterSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selecting = true
	s.cancelLocked()
}

func (s *Session) LeaveSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selecting = false
}

func (s *Session) Selecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selecting
}

// SetPosition records a manually picked or resolved position. Points
// outside the covered region are rejected and the pending position is
// left unchanged.
func (s *Session) SetPosition(lat, lng float64) error {
	if !s.boundary.Contains(lat, lng) {
		return fmt.Errorf("position %.4f,%.4f: %w", lat, lng, apperrors.ErrOutsideBoundary)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lat, s.lng = lat, lng
	s.hasPos = true
	return nil
}

// Position returns the pending marker position, if any.
func (s *Session) Position() (lat, lng float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lat, s.lng, s.hasPos
}

// TrackLocate registers the cancel handle of a newly started geolocation
// attempt, aborting the previous one.
func (s *Session) TrackLocate(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.cancel = cancel
}

// Reset clears the form state: pending position, selection mode, and any
// running geolocation attempt.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selecting = false
	s.hasPos = false
	s.cancelLocked()
}

func (s *Session) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
