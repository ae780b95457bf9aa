package draw

import (
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"hrtoolkit/internal/models"

	"github.com/samber/lo"
)

// ErrEmptyPool is returned when nobody is eligible for a draw.
var ErrEmptyPool = errors.New("沒有剩餘的可參與者了")

// DefaultPrize is the prize label a new engine starts with.
const DefaultPrize = "特獎"

// Rand is the source of randomness used for selection.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Roster is the read side of the participant list the engine draws from.
type Roster interface {
	Participants() []models.Participant
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Engine performs lucky draws over a roster and keeps the winner history.
// Like the roster it is owned by a single session and not safe for
// concurrent use.
type Engine struct {
	roster      Roster
	rng         Rand
	now         func() time.Time
	prize       string
	allowRepeat bool
	history     []models.Winner // most recent first
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand replaces the default random source.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock replaces time.Now for winner timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine that draws from roster.
func NewEngine(roster Roster, opts ...Option) *Engine {
	e := &Engine{
		roster: roster,
		rng:    globalRand{},
		now:    time.Now,
		prize:  DefaultPrize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prize returns the label recorded with the next winner.
func (e *Engine) Prize() string { return e.prize }

// SetPrize changes the label for subsequent draws. Empty labels are kept as is.
func (e *Engine) SetPrize(label string) { e.prize = label }

// AllowRepeat reports whether past winners can be drawn again.
func (e *Engine) AllowRepeat() bool { return e.allowRepeat }

// SetAllowRepeat toggles whether past winners stay in the eligible set.
func (e *Engine) SetAllowRepeat(v bool) { e.allowRepeat = v }

// History returns the winners, most recent first.
func (e *Engine) History() []models.Winner {
	return slices.Clone(e.history)
}

// EligibleSet returns the participants that can currently be drawn, in
// roster order. Past winners are excluded unless repeats are allowed.
func (e *Engine) EligibleSet() []models.Participant {
	all := e.roster.Participants()
	if e.allowRepeat || len(e.history) == 0 {
		return all
	}
	won := make(map[string]struct{}, len(e.history))
	for _, w := range e.history {
		won[w.Participant.ID] = struct{}{}
	}
	return lo.Filter(all, func(p models.Participant, _ int) bool {
		_, ok := won[p.ID]
		return !ok
	})
}

// Draw picks one eligible participant uniformly at random and records the
// win under the current prize label.
func (e *Engine) Draw() (models.Winner, error) {
	pool := e.EligibleSet()
	if len(pool) == 0 {
		return models.Winner{}, ErrEmptyPool
	}
	w := models.Winner{
		Participant: pool[e.rng.IntN(len(pool))],
		Prize:       e.prize,
		Timestamp:   e.now(),
	}
	e.history = slices.Insert(e.history, 0, w)
	return w, nil
}

// ResetHistory forgets every winner. The roster is untouched.
func (e *Engine) ResetHistory() {
	e.history = nil
}
