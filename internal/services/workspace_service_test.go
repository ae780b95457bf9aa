package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hrtoolkit/internal/draw"
	"hrtoolkit/internal/grouping"
	"hrtoolkit/internal/models"

	"github.com/stretchr/testify/require"
)

const testTenantID = "test-tenant"

func newTestService() *WorkspaceService {
	return NewWorkspaceService(Options{
		Spinner: draw.NewSpinner(time.Millisecond, 3*time.Millisecond),
	})
}

func TestWorkspaceService_Roster(t *testing.T) {
	service := newTestService()

	require.Equal(t, 4, service.AddNames(testTenantID, "Alice\nBob, Alice\nCarol"))
	snap := service.Snapshot(testTenantID)
	require.Len(t, snap.Participants, 4)
	require.Equal(t, []string{"Alice"}, snap.Duplicates)
	require.True(t, snap.IsDuplicate("Alice"))
	require.False(t, snap.IsDuplicate("Bob"))

	t.Run("dedupe keeps first occurrence", func(t *testing.T) {
		require.Equal(t, 1, service.Deduplicate(testTenantID))
		snap := service.Snapshot(testTenantID)
		require.Len(t, snap.Participants, 3)
		require.Empty(t, snap.Duplicates)
	})

	t.Run("remove", func(t *testing.T) {
		id := service.Snapshot(testTenantID).Participants[0].ID
		require.True(t, service.RemoveParticipant(testTenantID, id))
		require.False(t, service.RemoveParticipant(testTenantID, id))
		require.Len(t, service.Snapshot(testTenantID).Participants, 2)
	})

	t.Run("clear requires confirmation", func(t *testing.T) {
		require.ErrorIs(t, service.ClearRoster(testTenantID, false), ErrNotConfirmed)
		require.Len(t, service.Snapshot(testTenantID).Participants, 2)

		require.NoError(t, service.ClearRoster(testTenantID, true))
		require.Empty(t, service.Snapshot(testTenantID).Participants)
	})
}

func TestWorkspaceService_ImportAndSample(t *testing.T) {
	service := newTestService()

	n, err := service.ImportFile(testTenantID, strings.NewReader("\ufeffA,B\nC\n"))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, 20, service.AddSample(testTenantID))
	require.Len(t, service.Snapshot(testTenantID).Participants, 23)
}

func TestWorkspaceService_Draw(t *testing.T) {
	service := newTestService()
	service.AddNames(testTenantID, "A,B,C")
	service.SetDrawSettings(testTenantID, "頭獎", false)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		w, err := service.Draw(testTenantID)
		require.NoError(t, err)
		require.Equal(t, "頭獎", w.Prize)
		require.False(t, seen[w.Participant.Name])
		seen[w.Participant.Name] = true
	}

	_, err := service.Draw(testTenantID)
	require.ErrorIs(t, err, draw.ErrEmptyPool)

	snap := service.Snapshot(testTenantID)
	require.Len(t, snap.Winners, 3)
	require.Zero(t, snap.Eligible)

	t.Run("reset requires confirmation", func(t *testing.T) {
		require.ErrorIs(t, service.ResetWinners(testTenantID, false), ErrNotConfirmed)
		require.Len(t, service.Snapshot(testTenantID).Winners, 3)

		require.NoError(t, service.ResetWinners(testTenantID, true))
		snap := service.Snapshot(testTenantID)
		require.Empty(t, snap.Winners)
		require.Equal(t, 3, snap.Eligible)
		require.Len(t, snap.Participants, 3)
	})

	t.Run("repeat allowed never exhausts", func(t *testing.T) {
		service.SetDrawSettings(testTenantID, "安慰獎", true)
		for i := 0; i < 10; i++ {
			_, err := service.Draw(testTenantID)
			require.NoError(t, err)
		}
	})
}

func TestWorkspaceService_Spin(t *testing.T) {
	service := newTestService()
	service.AddNames(testTenantID, "A,B,C")

	var frames []models.Participant
	w, err := service.Spin(context.Background(), testTenantID, func(p models.Participant) {
		frames = append(frames, p)
	})
	require.NoError(t, err)
	require.Len(t, frames, 3)
	require.Equal(t, []models.Winner{w}, service.Snapshot(testTenantID).Winners)

	t.Run("cancelled spin records nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := service.Spin(ctx, testTenantID, func(models.Participant) {})
		require.ErrorIs(t, err, context.Canceled)
		require.Len(t, service.Snapshot(testTenantID).Winners, 1)
	})

	t.Run("cancel during the last frame records nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		frames := 0
		_, err := service.Spin(ctx, testTenantID, func(models.Participant) {
			frames++
			if frames == 3 {
				cancel()
			}
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 3, frames)
		require.Len(t, service.Snapshot(testTenantID).Winners, 1)
	})

	t.Run("empty pool", func(t *testing.T) {
		_, err := service.Spin(context.Background(), "empty-tenant", func(models.Participant) {})
		require.ErrorIs(t, err, draw.ErrEmptyPool)
	})
}

func TestWorkspaceService_Partition(t *testing.T) {
	service := newTestService()

	_, err := service.Partition(testTenantID, models.ByGroupSize, 2)
	require.ErrorIs(t, err, grouping.ErrEmptyRoster)

	service.AddNames(testTenantID, "A,B,C,D,E")
	groups, err := service.Partition(testTenantID, models.ByGroupSize, 2)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	require.Equal(t, groups, service.Snapshot(testTenantID).Groups)

	t.Run("failed partition keeps previous result", func(t *testing.T) {
		_, err := service.Partition(testTenantID, models.ByGroupCount, 0)
		require.ErrorIs(t, err, grouping.ErrInvalidSize)
		require.Equal(t, groups, service.Snapshot(testTenantID).Groups)
	})

	t.Run("new partition replaces previous result", func(t *testing.T) {
		next, err := service.Partition(testTenantID, models.ByGroupCount, 5)
		require.NoError(t, err)
		require.Len(t, service.Snapshot(testTenantID).Groups, 5)
		require.Equal(t, next, service.Snapshot(testTenantID).Groups)
	})
}

func TestWorkspaceService_TenantsAreIsolated(t *testing.T) {
	service := newTestService()
	service.AddNames("tenant-a", "A")
	service.AddNames("tenant-b", "B,C")

	require.Len(t, service.Snapshot("tenant-a").Participants, 1)
	require.Len(t, service.Snapshot("tenant-b").Participants, 2)
}

func TestWorkspaceService_CleanUpInactiveSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	service := NewWorkspaceService(Options{Clock: func() time.Time { return now }})

	service.AddNames("old", "A")
	now = now.Add(2 * time.Hour)
	service.AddNames("fresh", "B")

	require.Equal(t, 1, service.CleanUpInactiveSessions(time.Hour))
	require.Len(t, service.Snapshot("fresh").Participants, 1)
	require.Empty(t, service.Snapshot("old").Participants, "expired workspace starts over")

	service.ClearSession("fresh")
	require.Empty(t, service.Snapshot("fresh").Participants)
}

func TestWorkspaceService_ConcurrentAccess(t *testing.T) {
	service := newTestService()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				service.AddNames(testTenantID, "X")
				_, _ = service.Draw(testTenantID)
				_, _ = service.Partition(testTenantID, models.ByGroupCount, 3)
				service.Snapshot(testTenantID)
			}
		}()
	}
	wg.Wait()
	snap := service.Snapshot(testTenantID)
	require.Len(t, snap.Participants, 400)
	require.Len(t, snap.Winners, 400)
}
