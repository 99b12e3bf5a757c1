package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/freeeve/flagstrike/internal/model"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

type mockMatchRepo struct {
	mu      sync.Mutex
	records map[string]*model.MatchRecord
	err     error
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{records: make(map[string]*model.MatchRecord)}
}

func (m *mockMatchRepo) SaveMatch(_ context.Context, rec *model.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockMatchRepo) FindMatch(_ context.Context, id string) (*model.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *mockMatchRepo) ListRecent(_ context.Context, limit int) ([]model.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MatchRecord
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type leaderboardCall struct {
	strategy  string
	won       bool
	condition string
}

type mockLeaderboard struct {
	mu    sync.Mutex
	calls []leaderboardCall
}

func (m *mockLeaderboard) RecordResult(_ context.Context, strategy string, won bool, condition string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, leaderboardCall{strategy, won, condition})
	return nil
}

func (m *mockLeaderboard) Standings(context.Context) ([]model.Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := map[string]*model.Standing{}
	var names []string
	for _, c := range m.calls {
		st, ok := byName[c.strategy]
		if !ok {
			st = &model.Standing{Strategy: c.strategy}
			byName[c.strategy] = st
			names = append(names, c.strategy)
		}
		st.Games++
		if c.won {
			st.Wins++
		}
	}
	var out []model.Standing
	for _, n := range names {
		out = append(out, *byName[n])
	}
	return out, nil
}

type broadcastEvent struct {
	gameID    string
	eventType string
	data      any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (b *recordingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{gameID, eventType, data})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.eventType)
	}
	return out
}

var errStorage = errors.New("storage down")

// scriptStrategy offers the same candidates every turn.
type scriptStrategy struct {
	name       string
	candidates []ctf.Intent
}

func (s *scriptStrategy) Name() string { return s.name }

func (s *scriptStrategy) Candidates(*ctf.GameState, ctf.Team) []ctf.Intent { return s.candidates }

// newDuelGame is a 3x3 board with flags on (0,0) for A and (2,2) for B, one
// fast expert for A on (ax, 0) and one slow novice for B on (1, 2). Neither
// unit starts on its own flag unless ax is 0.
func newDuelGame(t *testing.T, ax int) *ctf.GameState {
	t.Helper()
	b, err := ctf.NewBoard(3, 3, ctf.Position{X: 0, Y: 0}, ctf.Position{X: 2, Y: 2})
	if err != nil {
		t.Fatal(err)
	}
	gs := ctf.NewEmptyGame(b, ctf.NewRand(1))
	if _, err := gs.AddUnit(ctf.TeamA, ctf.Fast, ctf.Expert, ctf.Position{X: ax, Y: 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := gs.AddUnit(ctf.TeamB, ctf.Slow, ctf.Novice, ctf.Position{X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}
	return gs
}
