package roster

import (
	"slices"
	"strings"

	"hrtoolkit/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Store holds the ordered participant list for one workspace.
// It is not safe for concurrent use; the owning session serializes access.
type Store struct {
	participants []models.Participant
	newID        func() string
}

// NewStore creates an empty roster that assigns random UUIDs.
func NewStore() *Store {
	return &Store{newID: uuid.NewString}
}

// Participants returns a copy of the roster in insertion order.
func (s *Store) Participants() []models.Participant {
	return slices.Clone(s.participants)
}

// Len returns the number of participants.
func (s *Store) Len() int {
	return len(s.participants)
}

// AddText splits raw on newlines and commas and appends the resulting names.
func (s *Store) AddText(raw string) []models.Participant {
	return s.AddBatch(ParseNames(raw))
}

// AddBatch trims each name, drops empty ones and appends the rest with fresh IDs.
// It returns the participants that were added.
func (s *Store) AddBatch(names []string) []models.Participant {
	added := lo.FilterMap(names, func(name string, _ int) (models.Participant, bool) {
		name = strings.TrimSpace(name)
		if name == "" {
			return models.Participant{}, false
		}
		return models.Participant{ID: s.newID(), Name: name}, true
	})
	s.participants = append(s.participants, added...)
	return added
}

// Remove deletes the participant with the given id. Unknown ids are ignored.
func (s *Store) Remove(id string) bool {
	idx := slices.IndexFunc(s.participants, func(p models.Participant) bool {
		return p.ID == id
	})
	if idx < 0 {
		return false
	}
	s.participants = slices.Delete(s.participants, idx, idx+1)
	return true
}

// ReplaceAll swaps the whole roster for list.
func (s *Store) ReplaceAll(list []models.Participant) {
	s.participants = slices.Clone(list)
}

// Clear empties the roster. Confirmation is the caller's job.
func (s *Store) Clear() {
	s.participants = nil
}

// DetectDuplicates returns every name that occurs more than once, ordered by
// its first appearance in the roster.
func (s *Store) DetectDuplicates() []string {
	counts := lo.CountValuesBy(s.participants, func(p models.Participant) string {
		return p.Name
	})
	dups := lo.FilterMap(s.participants, func(p models.Participant, _ int) (string, bool) {
		return p.Name, counts[p.Name] > 1
	})
	return lo.Uniq(dups)
}

// DeduplicateInPlace keeps the first participant for each name and returns
// how many were dropped.
func (s *Store) DeduplicateInPlace() int {
	before := len(s.participants)
	s.ReplaceAll(lo.UniqBy(s.participants, func(p models.Participant) string {
		return p.Name
	}))
	return before - len(s.participants)
}
