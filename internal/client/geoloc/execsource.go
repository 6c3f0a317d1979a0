package geoloc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/goccy/go-json"

	apperrors "greenalgeria-api/internal/errors"
)

// ExecSource acquires positions by running an external locator command
// (termux-location, CoreLocationCLI, a gpsd wrapper) that prints one JSON
// object {"lat": .., "lng": .., "accuracy": ..} on stdout.
type ExecSource struct {
	Command string
	Args    []string
	// PollInterval spaces out runs during a watch. Zero means one second.
	PollInterval time.Duration
}

func (s *ExecSource) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(runCtx, s.Command, s.Args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return Position{}, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Position{}, apperrors.ErrTimeout
		}
		return Position{}, fmt.Errorf("%w: %s: %v", apperrors.ErrPositionUnavailable, s.Command, err)
	}

	var pos Position
	if err := json.Unmarshal(out, &pos); err != nil {
		return Position{}, fmt.Errorf("%w: unparseable locator output: %v", apperrors.ErrPositionUnavailable, err)
	}
	if pos.Lat == 0 && pos.Lng == 0 {
		return Position{}, fmt.Errorf("%w: locator reported no fix", apperrors.ErrPositionUnavailable)
	}
	return pos, nil
}

// WatchPosition polls the locator command until a fix lands or ctx is
// cancelled.
func (s *ExecSource) WatchPosition(ctx context.Context, opts Options) (<-chan Position, <-chan error) {
	positions := make(chan Position, 1)
	errs := make(chan error, 1)

	interval := s.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		poll := Options{HighAccuracy: opts.HighAccuracy, Timeout: interval}
		for {
			pos, err := s.CurrentPosition(ctx, poll)
			if err == nil {
				positions <- pos
				return
			}
			if ctx.Err() != nil {
				errs <- ctx.Err()
				return
			}
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return positions, errs
}
