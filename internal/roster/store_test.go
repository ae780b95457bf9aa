package roster

import (
	"bytes"
	"strings"
	"testing"

	"hrtoolkit/internal/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func names(ps []models.Participant) []string {
	return lo.Map(ps, func(p models.Participant, _ int) string { return p.Name })
}

func TestParseNames(t *testing.T) {
	got := ParseNames("Alice, Bob\n\n  Carol  ,,\r\nDave\n , ")
	require.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, got)
	require.Empty(t, ParseNames(" \n,\n "))
}

func TestStore_AddText(t *testing.T) {
	s := NewStore()

	added := s.AddText("Alice\nBob,Alice\n\n , Carol")
	require.Len(t, added, 4)
	require.Equal(t, []string{"Alice", "Bob", "Alice", "Carol"}, names(s.Participants()))

	s.AddBatch([]string{"  Dave ", "", "   "})
	require.Equal(t, 5, s.Len())

	ids := lo.Map(s.Participants(), func(p models.Participant, _ int) string { return p.ID })
	require.Len(t, lo.Uniq(ids), 5, "every participant gets a distinct id")
	for _, p := range s.Participants() {
		require.NotEmpty(t, p.Name)
		require.NotEmpty(t, p.ID)
	}
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	s.AddText("A,B,C")
	ps := s.Participants()

	require.True(t, s.Remove(ps[1].ID))
	require.Equal(t, []string{"A", "C"}, names(s.Participants()))

	t.Run("unknown id is a no-op", func(t *testing.T) {
		require.False(t, s.Remove("missing"))
		require.Equal(t, 2, s.Len())
	})
}

func TestStore_ParticipantsReturnsCopy(t *testing.T) {
	s := NewStore()
	s.AddText("A")
	ps := s.Participants()
	ps[0].Name = "changed"
	require.Equal(t, "A", s.Participants()[0].Name)
}

func TestStore_ClearAndReplace(t *testing.T) {
	s := NewStore()
	s.AddText("A,B")
	s.Clear()
	require.Zero(t, s.Len())

	s.ReplaceAll([]models.Participant{{ID: "1", Name: "X"}})
	require.Equal(t, []string{"X"}, names(s.Participants()))
}

func TestStore_Duplicates(t *testing.T) {
	s := NewStore()
	s.AddText("B,A,C,A,B,B,D")

	dups := s.DetectDuplicates()
	require.Equal(t, []string{"B", "A"}, dups)
	require.Equal(t, dups, s.DetectDuplicates(), "detection is idempotent")

	firstIDs := []string{}
	seen := map[string]bool{}
	for _, p := range s.Participants() {
		if !seen[p.Name] {
			seen[p.Name] = true
			firstIDs = append(firstIDs, p.ID)
		}
	}

	removed := s.DeduplicateInPlace()
	require.Equal(t, 3, removed)
	require.Equal(t, []string{"B", "A", "C", "D"}, names(s.Participants()))
	require.Equal(t, firstIDs, lo.Map(s.Participants(), func(p models.Participant, _ int) string { return p.ID }))
	require.Empty(t, s.DetectDuplicates())
}

func TestReadNames(t *testing.T) {
	t.Run("utf-8 with bom", func(t *testing.T) {
		got, err := ReadNames(strings.NewReader("\ufeff王小明\n李四,張三\n"))
		require.NoError(t, err)
		require.Equal(t, []string{"王小明", "李四", "張三"}, got)
	})

	t.Run("utf-16 with bom", func(t *testing.T) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		raw, err := enc.Bytes([]byte("Alice\r\nBob"))
		require.NoError(t, err)

		got, err := ReadNames(bytes.NewReader(raw))
		require.NoError(t, err)
		require.Equal(t, []string{"Alice", "Bob"}, got)
	})
}

func TestSampleNamesContainDuplicates(t *testing.T) {
	s := NewStore()
	s.AddBatch(SampleNames)
	require.Equal(t, 20, s.Len())
	require.ElementsMatch(t, []string{"陳小明", "林大華"}, s.DetectDuplicates())
}
