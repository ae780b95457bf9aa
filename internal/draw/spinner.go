package draw

import (
	"context"
	"errors"
	"time"

	"hrtoolkit/internal/models"
)

var errInvalidSpinner = errors.New("spin interval must be positive and no longer than the duration")

// Spinner produces the "rolling names" frames shown before a draw.
// Frames are cosmetic: the winner is drawn separately once the spin ends.
type Spinner struct {
	Interval time.Duration
	Duration time.Duration
	Rand     Rand
}

// NewSpinner returns a spinner using the global random source.
func NewSpinner(interval, duration time.Duration) *Spinner {
	return &Spinner{Interval: interval, Duration: duration, Rand: globalRand{}}
}

// Frames returns how many frames a full spin shows.
func (s *Spinner) Frames() int {
	if s.Interval <= 0 {
		return 0
	}
	return int((s.Duration + s.Interval - 1) / s.Interval)
}

// Run emits one random candidate per tick until Duration has elapsed.
// candidates is consulted on every tick so roster edits during the spin are
// seen. Run returns ctx.Err() if cancelled and ErrEmptyPool if the pool
// empties; in both cases the caller must not draw.
func (s *Spinner) Run(ctx context.Context, candidates func() []models.Participant, onFrame func(models.Participant)) error {
	if s.Interval <= 0 || s.Duration < s.Interval {
		return errInvalidSpinner
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rng := s.Rand
	if rng == nil {
		rng = globalRand{}
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for frame := 0; frame < s.Frames(); frame++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		pool := candidates()
		if len(pool) == 0 {
			return ErrEmptyPool
		}
		onFrame(pool[rng.IntN(len(pool))])
	}
	return nil
}
