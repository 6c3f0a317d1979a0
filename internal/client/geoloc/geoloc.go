// Package geoloc resolves the user's position through a cascade of
// acquisition strategies: a high-accuracy single fix first, then a
// high-accuracy watch, then a cached-friendly low-accuracy fix. A denied
// permission aborts the cascade immediately; any accepted fix is checked
// against the covered region before it is reported.
package geoloc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/geo"
)

// Options mirror the knobs a position provider exposes per attempt.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge allows the provider to satisfy the request from a fix
	// cached no longer than this ago.
	MaximumAge time.Duration
}

var (
	// FixOptions drives the initial single-fix attempt.
	FixOptions = Options{HighAccuracy: true, Timeout: 25 * time.Second, MaximumAge: 30 * time.Second}
	// WatchOptions drives the continuous-watch fallback.
	WatchOptions = Options{HighAccuracy: true, Timeout: 60 * time.Second}
	// LowAccuracyOptions drives the last-resort attempt and tolerates a
	// ten minute old cached fix.
	LowAccuracyOptions = Options{Timeout: 15 * time.Second, MaximumAge: 10 * time.Minute}
)

// Position is a resolved fix.
type Position struct {
	Lat      float64
	Lng      float64
	Accuracy float64
}

// PositionSource abstracts the platform position provider.
type PositionSource interface {
	// CurrentPosition blocks until a single fix, an error, or ctx cancels.
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
	// WatchPosition streams fixes until ctx cancels. Exactly one value on
	// either channel settles the attempt; the resolver cancels ctx after.
	WatchPosition(ctx context.Context, opts Options) (<-chan Position, <-chan error)
}

type State int

const (
	Idle State = iota
	FixRequested
	Watching
	LowAccuracyFallback
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FixRequested:
		return "fix_requested"
	case Watching:
		return "watching"
	case LowAccuracyFallback:
		return "low_accuracy_fallback"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolver runs the acquisition cascade. Starting a new acquisition
// cancels the previous one.
type Resolver struct {
	source   PositionSource
	boundary *geo.Boundary

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func NewResolver(source PositionSource, boundary *geo.Boundary) *Resolver {
	return &Resolver{source: source, boundary: boundary}
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Cancel aborts the acquisition in flight, if any.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Acquire resolves a position through the cascade. It returns
// ErrPermissionDenied without falling back when the user denied access,
// and ErrOutsideBoundary when the resolved fix lies outside the covered
// region.
func (r *Resolver) Acquire(ctx context.Context) (Position, error) {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.state = FixRequested
	r.mu.Unlock()

	pos, err := r.source.CurrentPosition(opCtx, FixOptions)
	if err == nil {
		return r.accept(pos)
	}
	if terminal(err) {
		return Position{}, r.fail(err)
	}

	log.Printf("[Geoloc] Single fix failed (%v), falling back to watch", err)
	r.setState(Watching)
	pos, err = r.watch(opCtx)
	if err == nil {
		return r.accept(pos)
	}
	if terminal(err) {
		return Position{}, r.fail(err)
	}

	log.Printf("[Geoloc] Watch failed (%v), trying low accuracy", err)
	r.setState(LowAccuracyFallback)
	pos, err = r.source.CurrentPosition(opCtx, LowAccuracyOptions)
	if err != nil {
		return Position{}, r.fail(err)
	}
	return r.accept(pos)
}

func (r *Resolver) watch(ctx context.Context) (Position, error) {
	watchCtx, cancel := context.WithTimeout(ctx, WatchOptions.Timeout)
	defer cancel()

	positions, errs := r.source.WatchPosition(watchCtx, WatchOptions)
	select {
	case pos := <-positions:
		return pos, nil
	case err := <-errs:
		return Position{}, err
	case <-watchCtx.Done():
		if ctx.Err() != nil {
			return Position{}, ctx.Err()
		}
		return Position{}, apperrors.ErrTimeout
	}
}

func (r *Resolver) accept(pos Position) (Position, error) {
	if !r.boundary.Contains(pos.Lat, pos.Lng) {
		err := fmt.Errorf("position %.4f,%.4f: %w", pos.Lat, pos.Lng, apperrors.ErrOutsideBoundary)
		return Position{}, r.fail(err)
	}
	r.setState(Resolved)
	return pos, nil
}

func (r *Resolver) fail(err error) error {
	r.setState(Failed)
	return err
}

func (r *Resolver) setState(s State) {
	r.mu.Lock()
	r.state = s
	if s == Resolved || s == Failed {
		r.cancel = nil
	}
	r.mu.Unlock()
}

// terminal reports whether the cascade must stop instead of falling back.
func terminal(err error) bool {
	return errors.Is(err, apperrors.ErrPermissionDenied) ||
		errors.Is(err, context.Canceled)
}
