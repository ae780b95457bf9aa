package grouping

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"hrtoolkit/internal/models"
)

var (
	ErrEmptyRoster = errors.New("請先在名單管理頁面加入參與者")
	ErrInvalidSize = errors.New("分組數值必須為正整數")
	ErrInvalidMode = errors.New("未知的分組方式")
)

// DefaultSize is the parameter preselected in the UI.
const DefaultSize = 4

// Shuffler permutes n elements in place. *rand.Rand from math/rand/v2
// satisfies it; its Shuffle is a Fisher-Yates shuffle.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Engine partitions a roster into randomly composed groups.
type Engine struct {
	rng Shuffler
}

// NewEngine returns an engine using rng, or the global source when rng is nil.
func NewEngine(rng Shuffler) *Engine {
	if rng == nil {
		rng = globalShuffler{}
	}
	return &Engine{rng: rng}
}

// Validate checks mode and size before any work is done.
func Validate(mode models.GroupMode, size int) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if size < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return nil
}

// Partition shuffles participants and splits them into groups.
//
// ByGroupSize fills groups of size members one after another, so only the
// last group may be short. ByGroupCount deals members round-robin into
// exactly size groups; sizes differ by at most one and, when there are more
// groups than participants, the trailing groups are empty.
//
// The input slice is not modified.
func (e *Engine) Partition(participants []models.Participant, mode models.GroupMode, size int) ([]models.Group, error) {
	if err := Validate(mode, size); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrEmptyRoster
	}

	shuffled := slices.Clone(participants)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	count := size
	if mode == models.ByGroupSize {
		count = (len(shuffled) + size - 1) / size
	}

	groups := make([]models.Group, count)
	for i := range groups {
		groups[i] = models.Group{
			ID:      i + 1,
			Name:    models.GroupName(i + 1),
			Members: []models.Participant{},
		}
	}

	for i, p := range shuffled {
		idx := i % count
		if mode == models.ByGroupSize {
			idx = i / size
		}
		groups[idx].Members = append(groups[idx].Members, p)
	}
	return groups, nil
}
