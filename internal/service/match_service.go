package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/logger"
	"github.com/freeeve/flagstrike/internal/model"
	"github.com/freeeve/flagstrike/internal/repository"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

// Event types published to the Broadcaster.
const (
	EventMatchStarted   = "match_started"
	EventActionResolved = "action_resolved"
	EventRoundComplete  = "round_complete"
	EventGameOver       = "game_over"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrNoGame        = errors.New("match options carry no game")
)

// MatchOptions configures a new match.
type MatchOptions struct {
	ID    string // generated when empty
	Name  string
	Game  *ctf.GameState
	Seed  int64
	First ctf.Team
	// Sides maps a team to its strategy. A team without one is human-controlled.
	Sides map[ctf.Team]ctf.Strategy
	// MaxRounds ends the match as a draw once that many rounds complete
	// without a winner. Zero means no limit.
	MaxRounds int
}

// Match is one running session.
type Match struct {
	ID        string
	Name      string
	Seed      int64
	First     ctf.Team
	StartedAt time.Time

	mu        sync.Mutex
	ctrl      *ctf.Controller
	sides     map[ctf.Team]string
	maxRounds int
	perTeam   int
	draw      bool
	record    *model.MatchRecord
}

// Controller exposes the match's turn controller for read access. Callers
// must not drive it directly; use MatchService.Submit and Advance.
func (m *Match) Controller() *ctf.Controller { return m.ctrl }

// Side returns the controller label of a team: a strategy name or "human".
func (m *Match) Side(team ctf.Team) string { return m.sides[team] }

// Done reports whether the match is over, by a win or by the round limit.
func (m *Match) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record != nil
}

// Record returns the archived summary once the match is over, or nil.
func (m *Match) Record() *model.MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record
}

// MatchService runs matches: it drives the turn controller, publishes
// every resolved action and archives finished matches.
type MatchService struct {
	matches     repository.MatchRepository // optional
	leaderboard repository.Leaderboard     // optional
	broadcaster Broadcaster

	mu   sync.RWMutex
	live map[string]*Match
}

// NewMatchService creates a MatchService. Either repository may be nil.
func NewMatchService(matches repository.MatchRepository, leaderboard repository.Leaderboard, broadcaster Broadcaster) *MatchService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &MatchService{
		matches:     matches,
		leaderboard: leaderboard,
		broadcaster: broadcaster,
		live:        make(map[string]*Match),
	}
}

// Start registers a new match and announces it.
func (s *MatchService) Start(ctx context.Context, opts MatchOptions) (*Match, error) {
	if opts.Game == nil {
		return nil, ErrNoGame
	}
	ctrl, err := ctf.NewController(opts.Game, ctf.ControllerConfig{First: opts.First, Sides: opts.Sides})
	if err != nil {
		return nil, fmt.Errorf("new controller: %w", err)
	}
	if opts.ID == "" {
		opts.ID = logger.NewMatchID()
	}

	m := &Match{
		ID:        opts.ID,
		Name:      opts.Name,
		Seed:      opts.Seed,
		First:     opts.First,
		StartedAt: time.Now().UTC(),
		ctrl:      ctrl,
		sides:     make(map[ctf.Team]string, 2),
		maxRounds: opts.MaxRounds,
	}
	for _, team := range ctf.AllTeams() {
		m.sides[team] = model.SideHuman
		if st := opts.Sides[team]; st != nil {
			m.sides[team] = st.Name()
		}
		if n := len(opts.Game.UnitsOf(team)); n > m.perTeam {
			m.perTeam = n
		}
	}

	s.mu.Lock()
	if _, dup := s.live[m.ID]; dup {
		s.mu.Unlock()
		return nil, fmt.Errorf("match %s already running", m.ID)
	}
	s.live[m.ID] = m
	s.mu.Unlock()

	ctx = logger.WithMatchID(ctx, m.ID)
	l := logger.ForMatch(ctx)
	l.Info().
		Str("name", m.Name).
		Str("sideA", m.sides[ctf.TeamA]).
		Str("sideB", m.sides[ctf.TeamB]).
		Str("first", string(m.First)).
		Int64("seed", m.Seed).
		Msg("Match started")

	s.broadcaster.BroadcastGameEvent(m.ID, EventMatchStarted, snapshotOf(m))
	return m, nil
}

// Get returns a running or recently finished match.
func (s *MatchService) Get(id string) (*Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.live[id]
	return m, ok
}

// LiveMatches returns the IDs of every match in the registry, sorted.
func (s *MatchService) LiveMatches() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Forget drops a match from the live registry.
func (s *MatchService) Forget(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// Submit resolves a human intent for the match. A rejected intent leaves the
// turn with the human and is returned with Acted false.
func (s *MatchService) Submit(ctx context.Context, id string, in ctf.Intent) (ctf.Turn, error) {
	m, ok := s.Get(id)
	if !ok {
		return ctf.Turn{}, ErrMatchNotFound
	}
	ctx = logger.WithMatchID(ctx, m.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := s.openRound(ctx, m); err != nil {
		return ctf.Turn{}, err
	}
	turn, err := m.ctrl.SubmitHuman(in)
	if err != nil {
		return turn, err
	}
	if !turn.Acted {
		l := logger.ForMatch(ctx)
		l.Debug().
			Str("intent", in.String()).
			Str("reason", turn.Outcome.Reason.String()).
			Msg("Human intent rejected")
		return turn, nil
	}
	s.afterTurn(ctx, m, turn)
	return turn, nil
}

// Advance plays strategy turns until a human must act or the match is over.
func (s *MatchService) Advance(ctx context.Context, id string) ([]ctf.Turn, error) {
	m, ok := s.Get(id)
	if !ok {
		return nil, ErrMatchNotFound
	}
	ctx = logger.WithMatchID(ctx, m.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	var turns []ctf.Turn
	for {
		if err := ctx.Err(); err != nil {
			return turns, err
		}
		if err := s.openRound(ctx, m); err != nil {
			if errors.Is(err, ctf.ErrGameOver) {
				return turns, nil
			}
			return turns, err
		}
		if m.ctrl.State() != ctf.AwaitingOpponentAction {
			return turns, nil
		}
		turn, err := m.ctrl.PlayOpponent()
		if err != nil {
			return turns, err
		}
		turns = append(turns, turn)
		s.afterTurn(ctx, m, turn)
	}
}

// Step plays a single strategy turn. It returns ctf.ErrAwaitingHuman when a
// human must act and ctf.ErrGameOver once the match is over.
func (s *MatchService) Step(ctx context.Context, id string) (ctf.Turn, error) {
	m, ok := s.Get(id)
	if !ok {
		return ctf.Turn{}, ErrMatchNotFound
	}
	ctx = logger.WithMatchID(ctx, m.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := s.openRound(ctx, m); err != nil {
		return ctf.Turn{}, err
	}
	if m.ctrl.State() == ctf.AwaitingHumanAction {
		return ctf.Turn{}, ctf.ErrAwaitingHuman
	}
	turn, err := m.ctrl.PlayOpponent()
	if err != nil {
		return turn, err
	}
	s.afterTurn(ctx, m, turn)
	return turn, nil
}

// Run plays a strategy-only match to the end and returns its record.
func (s *MatchService) Run(ctx context.Context, id string) (*model.MatchRecord, error) {
	if _, err := s.Advance(ctx, id); err != nil {
		return nil, err
	}
	m, _ := s.Get(id)
	if rec := m.Record(); rec != nil {
		return rec, nil
	}
	return nil, ctf.ErrAwaitingHuman
}

// openRound starts the next round once the previous one is complete, or
// closes the match as a draw when the round limit is reached. It returns
// ctf.ErrGameOver once the match is over.
func (s *MatchService) openRound(ctx context.Context, m *Match) error {
	if m.record != nil {
		return ctf.ErrGameOver
	}
	if m.ctrl.State() == ctf.GameOver {
		s.finish(ctx, m)
		return ctf.ErrGameOver
	}
	if m.ctrl.State() != ctf.RoundComplete {
		return nil
	}
	if m.maxRounds > 0 && m.ctrl.Game().Round >= m.maxRounds {
		m.draw = true
		s.finish(ctx, m)
		return ctf.ErrGameOver
	}
	return m.ctrl.BeginRound()
}

func (s *MatchService) afterTurn(ctx context.Context, m *Match, turn ctf.Turn) {
	l := logger.ForMatch(ctx)
	ev := l.Debug().
		Str("team", string(turn.Team)).
		Int("round", turn.Round).
		Int("attempts", turn.Attempts).
		Bool("acted", turn.Acted)
	if turn.Acted {
		ev = ev.Str("outcome", turn.Outcome.Describe())
	}
	ev.Msg("Turn resolved")

	s.broadcaster.BroadcastGameEvent(m.ID, EventActionResolved, turnEvent{
		Team:    turn.Team,
		Round:   turn.Round,
		Acted:   turn.Acted,
		Outcome: turn.Outcome,
	})

	switch m.ctrl.State() {
	case ctf.RoundComplete:
		s.broadcaster.BroadcastGameEvent(m.ID, EventRoundComplete, snapshotOf(m))
	case ctf.GameOver:
		s.finish(ctx, m)
	}
}

// finish archives the match and announces the result. Storage failures are
// logged; the match still ends.
func (s *MatchService) finish(ctx context.Context, m *Match) {
	gs := m.ctrl.Game()
	l := logger.ForMatch(ctx)
	rec := &model.MatchRecord{
		ID:           m.ID,
		Name:         m.Name,
		Rows:         gs.Board.Rows(),
		Cols:         gs.Board.Cols(),
		UnitsPerTeam: m.perTeam,
		Seed:         m.Seed,
		FirstTeam:    string(m.First),
		SideA:        m.sides[ctf.TeamA],
		SideB:        m.sides[ctf.TeamB],
		Rounds:       m.ctrl.RoundsPlayed(),
		SurvivorsA:   len(gs.Survivors(ctf.TeamA)),
		SurvivorsB:   len(gs.Survivors(ctf.TeamB)),
		StartedAt:    m.StartedAt,
		FinishedAt:   time.Now().UTC(),
	}
	if res, ok := m.ctrl.Result(); ok {
		rec.Winner = string(res.Winner)
		rec.Condition = string(res.Condition)
	} else {
		gs.Record(ctf.NoTeam, fmt.Sprintf("No winner after %d rounds.", gs.Round))
	}
	logJSON, err := json.Marshal(gs.Log())
	if err != nil {
		l.Error().Err(err).Msg("Failed to marshal action log")
		logJSON = json.RawMessage("[]")
	}
	rec.Log = logJSON
	m.record = rec

	l.Info().
		Str("winner", rec.Winner).
		Str("condition", rec.Condition).
		Int("rounds", rec.Rounds).
		Int("survivorsA", rec.SurvivorsA).
		Int("survivorsB", rec.SurvivorsB).
		Msg("Match over")

	if s.matches != nil {
		if err := s.matches.SaveMatch(ctx, rec); err != nil {
			l.Error().Err(err).Msg("Failed to archive match")
		}
	}
	if s.leaderboard != nil {
		for _, team := range ctf.AllTeams() {
			side := m.sides[team]
			if side == model.SideHuman {
				continue
			}
			won := rec.Winner == string(team)
			if err := s.leaderboard.RecordResult(ctx, side, won, rec.Condition); err != nil {
				l.Error().Err(err).Str("strategy", side).Msg("Failed to record leaderboard result")
			}
		}
	}

	s.broadcaster.BroadcastGameEvent(m.ID, EventGameOver, snapshotOf(m))
}

// ArchivedMatch returns a finished match from the archive, or nil when it is
// unknown or no archive is configured.
func (s *MatchService) ArchivedMatch(ctx context.Context, id string) (*model.MatchRecord, error) {
	if s.matches == nil {
		return nil, nil
	}
	return s.matches.FindMatch(ctx, id)
}

// RecentMatches lists archived matches, newest first.
func (s *MatchService) RecentMatches(ctx context.Context, limit int) ([]model.MatchRecord, error) {
	if s.matches == nil {
		return nil, nil
	}
	return s.matches.ListRecent(ctx, limit)
}

// Standings returns the leaderboard, or nil when none is configured.
func (s *MatchService) Standings(ctx context.Context) ([]model.Standing, error) {
	if s.leaderboard == nil {
		return nil, nil
	}
	st, err := s.leaderboard.Standings(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read standings")
		return nil, err
	}
	return st, nil
}

type turnEvent struct {
	Team    ctf.Team          `json:"team"`
	Round   int               `json:"round"`
	Acted   bool              `json:"acted"`
	Outcome ctf.ActionOutcome `json:"outcome"`
}
