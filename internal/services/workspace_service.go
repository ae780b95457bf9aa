package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"hrtoolkit/internal/draw"
	"hrtoolkit/internal/grouping"
	"hrtoolkit/internal/models"
	"hrtoolkit/internal/roster"

	"github.com/google/logger"
)

// ErrNotConfirmed is returned by destructive operations called without the
// user's explicit confirmation. State is left unchanged.
var ErrNotConfirmed = errors.New("此操作需要確認")

// Workspace is the state of one browser session: the roster, the draw
// engine reading from it and the latest grouping result.
type Workspace struct {
	mu           sync.Mutex
	roster       *roster.Store
	draw         *draw.Engine
	groups       []models.Group
	lastActivity time.Time // guarded by WorkspaceService.mu
}

// Snapshot is a read-only copy of a workspace for rendering.
type Snapshot struct {
	Participants []models.Participant `json:"participants"`
	Duplicates   []string             `json:"duplicates"`
	Winners      []models.Winner      `json:"winners"`
	Eligible     int                  `json:"eligible"`
	Prize        string               `json:"prize"`
	AllowRepeat  bool                 `json:"allowRepeat"`
	Groups       []models.Group       `json:"groups"`
}

// IsDuplicate reports whether name appears more than once in the roster.
func (s Snapshot) IsDuplicate(name string) bool {
	for _, d := range s.Duplicates {
		if d == name {
			return true
		}
	}
	return false
}

// Options tunes a WorkspaceService. Zero values fall back to defaults.
type Options struct {
	DefaultPrize string
	Spinner      *draw.Spinner
	Grouping     *grouping.Engine
	Clock        func() time.Time
}

// WorkspaceService owns one Workspace per tenant. Workspaces are created on
// first use and dropped after a period of inactivity.
type WorkspaceService struct {
	mu       sync.Mutex
	sessions map[string]*Workspace // key: tenantID
	opts     Options
}

// NewWorkspaceService creates an empty service.
func NewWorkspaceService(opts Options) *WorkspaceService {
	if opts.DefaultPrize == "" {
		opts.DefaultPrize = draw.DefaultPrize
	}
	if opts.Spinner == nil {
		opts.Spinner = draw.NewSpinner(80*time.Millisecond, 2*time.Second)
	}
	if opts.Grouping == nil {
		opts.Grouping = grouping.NewEngine(nil)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &WorkspaceService{
		sessions: make(map[string]*Workspace),
		opts:     opts,
	}
}

// getWorkspace returns the workspace for a tenant, creating one if needed.
func (s *WorkspaceService) getWorkspace(tenantID string) *Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, exists := s.sessions[tenantID]
	if !exists {
		store := roster.NewStore()
		engine := draw.NewEngine(store, draw.WithClock(s.opts.Clock))
		engine.SetPrize(s.opts.DefaultPrize)
		ws = &Workspace{roster: store, draw: engine}
		s.sessions[tenantID] = ws
	}
	ws.lastActivity = s.opts.Clock()
	return ws
}

// with runs fn while holding the tenant's workspace lock, so every operation
// on a workspace is serialized.
func (s *WorkspaceService) with(tenantID string, fn func(ws *Workspace)) {
	ws := s.getWorkspace(tenantID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	fn(ws)
}

// Snapshot returns the current state of a tenant's workspace.
func (s *WorkspaceService) Snapshot(tenantID string) Snapshot {
	var snap Snapshot
	s.with(tenantID, func(ws *Workspace) {
		snap = Snapshot{
			Participants: ws.roster.Participants(),
			Duplicates:   ws.roster.DetectDuplicates(),
			Winners:      ws.draw.History(),
			Eligible:     len(ws.draw.EligibleSet()),
			Prize:        ws.draw.Prize(),
			AllowRepeat:  ws.draw.AllowRepeat(),
			Groups:       ws.groups,
		}
	})
	return snap
}

// AddNames parses free text and appends the names. It returns how many
// participants were added.
func (s *WorkspaceService) AddNames(tenantID, text string) int {
	var n int
	s.with(tenantID, func(ws *Workspace) {
		n = len(ws.roster.AddText(text))
	})
	return n
}

// ImportFile reads an uploaded text file and appends its names. Nothing is
// added if the file cannot be read.
func (s *WorkspaceService) ImportFile(tenantID string, r io.Reader) (int, error) {
	names, err := roster.ReadNames(r)
	if err != nil {
		return 0, fmt.Errorf("import roster: %w", err)
	}
	var n int
	s.with(tenantID, func(ws *Workspace) {
		n = len(ws.roster.AddBatch(names))
	})
	return n, nil
}

// AddSample appends the demo roster.
func (s *WorkspaceService) AddSample(tenantID string) int {
	var n int
	s.with(tenantID, func(ws *Workspace) {
		n = len(ws.roster.AddBatch(roster.SampleNames))
	})
	return n
}

// RemoveParticipant deletes one participant. Unknown ids are ignored.
func (s *WorkspaceService) RemoveParticipant(tenantID, id string) bool {
	var removed bool
	s.with(tenantID, func(ws *Workspace) {
		removed = ws.roster.Remove(id)
	})
	return removed
}

// Deduplicate keeps the first participant of every name.
func (s *WorkspaceService) Deduplicate(tenantID string) int {
	var n int
	s.with(tenantID, func(ws *Workspace) {
		n = ws.roster.DeduplicateInPlace()
	})
	if n > 0 {
		logger.Infof("Removed %d duplicate participants for tenant %s", n, tenantID)
	}
	return n
}

// ClearRoster empties the roster once the user has confirmed.
func (s *WorkspaceService) ClearRoster(tenantID string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	s.with(tenantID, func(ws *Workspace) {
		ws.roster.Clear()
	})
	return nil
}

// SetDrawSettings updates the prize label and the repeat-winner flag.
func (s *WorkspaceService) SetDrawSettings(tenantID, prize string, allowRepeat bool) {
	s.with(tenantID, func(ws *Workspace) {
		ws.draw.SetPrize(prize)
		ws.draw.SetAllowRepeat(allowRepeat)
	})
}

// Draw picks a winner immediately.
func (s *WorkspaceService) Draw(tenantID string) (models.Winner, error) {
	var (
		w   models.Winner
		err error
	)
	s.with(tenantID, func(ws *Workspace) {
		w, err = ws.draw.Draw()
	})
	if err != nil {
		return models.Winner{}, err
	}
	logger.Infof("Tenant %s drew %s for %q", tenantID, w.Participant.Name, w.Prize)
	return w, nil
}

// Spin plays the rolling-name animation through onFrame and then draws.
// The winner is sampled after the last frame, independently of what was
// shown. If ctx ends first nothing is recorded.
func (s *WorkspaceService) Spin(ctx context.Context, tenantID string, onFrame func(models.Participant)) (models.Winner, error) {
	ws := s.getWorkspace(tenantID)
	ws.mu.Lock()
	empty := len(ws.draw.EligibleSet()) == 0
	ws.mu.Unlock()
	if empty {
		return models.Winner{}, draw.ErrEmptyPool
	}

	candidates := func() []models.Participant {
		ws.mu.Lock()
		defer ws.mu.Unlock()
		return ws.draw.EligibleSet()
	}
	if err := s.opts.Spinner.Run(ctx, candidates, onFrame); err != nil {
		return models.Winner{}, err
	}

	ws.mu.Lock()
	// The client may have gone away during the last frame.
	if err := ctx.Err(); err != nil {
		ws.mu.Unlock()
		return models.Winner{}, err
	}
	w, err := ws.draw.Draw()
	ws.mu.Unlock()
	if err != nil {
		return models.Winner{}, err
	}
	logger.Infof("Tenant %s drew %s for %q after spin", tenantID, w.Participant.Name, w.Prize)
	return w, nil
}

// ResetWinners clears the winner history once the user has confirmed.
func (s *WorkspaceService) ResetWinners(tenantID string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	s.with(tenantID, func(ws *Workspace) {
		ws.draw.ResetHistory()
	})
	return nil
}

// Partition groups the current roster and replaces any previous result.
// On error the previous result is kept.
func (s *WorkspaceService) Partition(tenantID string, mode models.GroupMode, size int) ([]models.Group, error) {
	var (
		groups []models.Group
		err    error
	)
	s.with(tenantID, func(ws *Workspace) {
		groups, err = s.opts.Grouping.Partition(ws.roster.Participants(), mode, size)
		if err == nil {
			ws.groups = groups
		}
	})
	return groups, err
}

// CleanUpInactiveSessions removes workspaces idle for longer than ttl and
// returns how many were removed.
func (s *WorkspaceService) CleanUpInactiveSessions(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock()
	removed := 0
	for tenantID, ws := range s.sessions {
		if now.Sub(ws.lastActivity) > ttl {
			delete(s.sessions, tenantID)
			removed++
		}
	}
	return removed
}

// ClearSession removes all data associated with a specific tenant.
func (s *WorkspaceService) ClearSession(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tenantID)
	logger.Infof("Cleared session for tenant: %s", tenantID)
}
