package geoloc

import (
	"context"
	"errors"
	"testing"

	apperrors "greenalgeria-api/internal/errors"
	"greenalgeria-api/internal/geo"
)

var algiers = Position{Lat: 36.75, Lng: 3.06, Accuracy: 10}

// scriptedSource replays canned answers: fix results in order for each
// CurrentPosition call, and one watch outcome.
type scriptedSource struct {
	fixes    []fixResult
	fixCalls int
	fixOpts  []Options

	watchPos   *Position
	watchErr   error
	watchCalls int
}

type fixResult struct {
	pos Position
	err error
}

func (s *scriptedSource) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	s.fixOpts = append(s.fixOpts, opts)
	if s.fixCalls >= len(s.fixes) {
		return Position{}, apperrors.ErrPositionUnavailable
	}
	r := s.fixes[s.fixCalls]
	s.fixCalls++
	return r.pos, r.err
}

func (s *scriptedSource) WatchPosition(ctx context.Context, opts Options) (<-chan Position, <-chan error) {
	s.watchCalls++
	positions := make(chan Position, 1)
	errs := make(chan error, 1)
	if s.watchPos != nil {
		positions <- *s.watchPos
	} else if s.watchErr != nil {
		errs <- s.watchErr
	}
	return positions, errs
}

func newTestResolver(source PositionSource) *Resolver {
	return NewResolver(source, geo.Approximate())
}

func TestAcquireFirstFixSucceeds(t *testing.T) {
	source := &scriptedSource{fixes: []fixResult{{pos: algiers}}}
	r := newTestResolver(source)

	pos, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pos != algiers {
		t.Errorf("pos = %+v, want %+v", pos, algiers)
	}
	if r.State() != Resolved {
		t.Errorf("state = %v, want resolved", r.State())
	}
	if source.watchCalls != 0 {
		t.Error("watch started although the first fix succeeded")
	}
	if !source.fixOpts[0].HighAccuracy {
		t.Error("first fix must request high accuracy")
	}
}

func TestAcquirePermissionDeniedIsTerminal(t *testing.T) {
	source := &scriptedSource{fixes: []fixResult{{err: apperrors.ErrPermissionDenied}}}
	r := newTestResolver(source)

	_, err := r.Acquire(context.Background())
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if r.State() != Failed {
		t.Errorf("state = %v, want failed", r.State())
	}
	// No fallback of any kind after a denial.
	if source.fixCalls != 1 || source.watchCalls != 0 {
		t.Errorf("fallbacks ran after a denial: fixes=%d watches=%d", source.fixCalls, source.watchCalls)
	}
}

func TestAcquireFallsBackToWatch(t *testing.T) {
	source := &scriptedSource{
		fixes:    []fixResult{{err: apperrors.ErrTimeout}},
		watchPos: &algiers,
	}
	r := newTestResolver(source)

	pos, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pos != algiers {
		t.Errorf("pos = %+v, want %+v", pos, algiers)
	}
	if source.watchCalls != 1 {
		t.Errorf("watchCalls = %d, want 1", source.watchCalls)
	}
	if r.State() != Resolved {
		t.Errorf("state = %v, want resolved", r.State())
	}
}

func TestAcquireFallsBackToLowAccuracy(t *testing.T) {
	source := &scriptedSource{
		fixes: []fixResult{
			{err: apperrors.ErrTimeout},
			{pos: algiers},
		},
		watchErr: apperrors.ErrPositionUnavailable,
	}
	r := newTestResolver(source)

	pos, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pos != algiers {
		t.Errorf("pos = %+v, want %+v", pos, algiers)
	}
	if len(source.fixOpts) != 2 {
		t.Fatalf("fix attempts = %d, want 2", len(source.fixOpts))
	}
	last := source.fixOpts[1]
	if last.HighAccuracy {
		t.Error("last-resort fix must not request high accuracy")
	}
	if last.MaximumAge != LowAccuracyOptions.MaximumAge {
		t.Errorf("last-resort MaximumAge = %v, want %v", last.MaximumAge, LowAccuracyOptions.MaximumAge)
	}
}

func TestAcquireAllStrategiesFail(t *testing.T) {
	source := &scriptedSource{
		fixes: []fixResult{
			{err: apperrors.ErrTimeout},
			{err: apperrors.ErrPositionUnavailable},
		},
		watchErr: apperrors.ErrPositionUnavailable,
	}
	r := newTestResolver(source)

	if _, err := r.Acquire(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if r.State() != Failed {
		t.Errorf("state = %v, want failed", r.State())
	}
}

func TestAcquireRejectsOutOfRegionFix(t *testing.T) {
	paris := Position{Lat: 48.85, Lng: 2.35}
	source := &scriptedSource{fixes: []fixResult{{pos: paris}}}
	r := newTestResolver(source)

	_, err := r.Acquire(context.Background())
	if !errors.Is(err, apperrors.ErrOutsideBoundary) {
		t.Fatalf("err = %v, want ErrOutsideBoundary", err)
	}
	if r.State() != Failed {
		t.Errorf("state = %v, want failed", r.State())
	}
}

func TestAcquireHonoursCancellation(t *testing.T) {
	source := &scriptedSource{fixes: []fixResult{{err: context.Canceled}}}
	r := newTestResolver(source)

	_, err := r.Acquire(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if source.watchCalls != 0 {
		t.Error("watch started after cancellation")
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		Idle:                "idle",
		FixRequested:        "fix_requested",
		Watching:            "watching",
		LowAccuracyFallback: "low_accuracy_fallback",
		Resolved:            "resolved",
		Failed:              "failed",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
