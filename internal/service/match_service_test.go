package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/flagstrike/internal/model"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

func startDuel(t *testing.T, svc *MatchService, gs *ctf.GameState, sides map[ctf.Team]ctf.Strategy, maxRounds int) *Match {
	t.Helper()
	m, err := svc.Start(context.Background(), MatchOptions{
		Name:      "duel",
		Game:      gs,
		Seed:      1,
		First:     ctf.TeamA,
		Sides:     sides,
		MaxRounds: maxRounds,
	})
	require.NoError(t, err)
	return m
}

func TestHumanCaptureFlow(t *testing.T) {
	repo := newMockMatchRepo()
	board := &mockLeaderboard{}
	bc := &recordingBroadcaster{}
	svc := NewMatchService(repo, board, bc)
	ctx := context.Background()

	gs := newDuelGame(t, 0)
	opp := &scriptStrategy{name: "script", candidates: []ctf.Intent{ctf.MoveIntent(1, ctf.Left, ctf.Exactly(1))}}
	m := startDuel(t, svc, gs, map[ctf.Team]ctf.Strategy{ctf.TeamB: opp}, 0)

	assert.Equal(t, model.SideHuman, m.Side(ctf.TeamA))
	assert.Equal(t, "script", m.Side(ctf.TeamB))

	turn, err := svc.Submit(ctx, m.ID, ctf.MoveIntent(0, ctf.Right, ctf.Exactly(2)))
	require.NoError(t, err)
	assert.True(t, turn.Acted)

	turns, err := svc.Advance(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, ctf.TeamB, turns[0].Team)
	assert.Equal(t, ctf.AwaitingHumanAction, m.Controller().State())
	assert.False(t, m.Done())

	turn, err = svc.Submit(ctx, m.ID, ctf.MoveIntent(0, ctf.Down, ctf.Exactly(2)))
	require.NoError(t, err)
	assert.True(t, turn.Acted)
	require.True(t, m.Done())

	rec := m.Record()
	assert.Equal(t, "a", rec.Winner)
	assert.Equal(t, "capture", rec.Condition)
	assert.Equal(t, 2, rec.Rounds)
	assert.Equal(t, 1, rec.SurvivorsA)
	assert.Equal(t, 1, rec.SurvivorsB)
	assert.Equal(t, 1, rec.UnitsPerTeam)
	assert.Equal(t, 3, rec.Rows)

	saved, err := repo.FindMatch(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	var entries []ctf.LogEntry
	require.NoError(t, json.Unmarshal(saved.Log, &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "Team A wins by capturing Team B's flag!", entries[len(entries)-1].Message)

	// Only the strategy side is ranked.
	assert.Equal(t, []leaderboardCall{{"script", false, "capture"}}, board.calls)

	assert.Equal(t, []string{
		EventMatchStarted,
		EventActionResolved,
		EventActionResolved,
		EventRoundComplete,
		EventActionResolved,
		EventGameOver,
	}, bc.types())

	_, err = svc.Submit(ctx, m.ID, ctf.MoveIntent(0, ctf.Up, ctf.Exactly(1)))
	assert.ErrorIs(t, err, ctf.ErrGameOver)
}

func TestSubmitRejectedKeepsTurn(t *testing.T) {
	bc := &recordingBroadcaster{}
	svc := NewMatchService(nil, nil, bc)
	m := startDuel(t, svc, newDuelGame(t, 0), map[ctf.Team]ctf.Strategy{ctf.TeamB: &scriptStrategy{name: "script"}}, 0)

	tests := []struct {
		name   string
		intent ctf.Intent
		reason ctf.Reason
	}{
		{"unknown unit", ctf.MoveIntent(9, ctf.Right, ctf.Exactly(1)), ctf.ReasonUnknownUnit},
		{"enemy unit", ctf.MoveIntent(1, ctf.Left, ctf.Exactly(1)), ctf.ReasonWrongTeam},
		{"off board", ctf.MoveIntent(0, ctf.Up, ctf.Exactly(1)), ctf.ReasonOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := svc.Submit(context.Background(), m.ID, tt.intent)
			require.NoError(t, err)
			assert.False(t, turn.Acted)
			assert.Equal(t, tt.reason, turn.Outcome.Reason)
			assert.Equal(t, ctf.AwaitingHumanAction, m.Controller().State())
		})
	}
	assert.Equal(t, []string{EventMatchStarted}, bc.types())
}

func TestSubmitOnStrategyTurn(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	idle := &scriptStrategy{name: "idle"}
	m := startDuel(t, svc, newDuelGame(t, 1), map[ctf.Team]ctf.Strategy{ctf.TeamA: idle, ctf.TeamB: idle}, 0)

	_, err := svc.Submit(context.Background(), m.ID, ctf.MoveIntent(0, ctf.Right, ctf.Exactly(1)))
	assert.ErrorIs(t, err, ctf.ErrNotYourTurn)
}

func TestUnknownMatch(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	_, err := svc.Submit(context.Background(), "nope", ctf.MoveIntent(0, ctf.Right, ctf.Exactly(1)))
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, err = svc.Advance(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, ok := svc.Snapshot("nope")
	assert.False(t, ok)
}

func TestStartRequiresGame(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	_, err := svc.Start(context.Background(), MatchOptions{First: ctf.TeamA})
	assert.ErrorIs(t, err, ErrNoGame)

	_, err = svc.Start(context.Background(), MatchOptions{Game: newDuelGame(t, 0)})
	assert.Error(t, err, "first team is required")
}

func TestStartRejectsDuplicateID(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	_, err := svc.Start(context.Background(), MatchOptions{ID: "m1", Game: newDuelGame(t, 0), First: ctf.TeamA})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), MatchOptions{ID: "m1", Game: newDuelGame(t, 0), First: ctf.TeamA})
	assert.Error(t, err)
}

func TestRunStrategyMatch(t *testing.T) {
	repo := newMockMatchRepo()
	board := &mockLeaderboard{}
	svc := NewMatchService(repo, board, nil)

	runner := &scriptStrategy{name: "runner", candidates: []ctf.Intent{
		ctf.MoveIntent(0, ctf.Right, ctf.Exactly(2)),
		ctf.MoveIntent(0, ctf.Down, ctf.Exactly(2)),
	}}
	idle := &scriptStrategy{name: "idle"}
	m := startDuel(t, svc, newDuelGame(t, 0), map[ctf.Team]ctf.Strategy{ctf.TeamA: runner, ctf.TeamB: idle}, 0)

	rec, err := svc.Run(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Winner)
	assert.Equal(t, "capture", rec.Condition)
	assert.Equal(t, 2, rec.Rounds)
	assert.Equal(t, "runner", rec.SideA)
	assert.Equal(t, "idle", rec.SideB)

	assert.ElementsMatch(t, []leaderboardCall{
		{"runner", true, "capture"},
		{"idle", false, "capture"},
	}, board.calls)

	recent, err := svc.RecentMatches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, m.ID, recent[0].ID)

	standings, err := svc.Standings(context.Background())
	require.NoError(t, err)
	assert.Len(t, standings, 2)
}

func TestRunEndsInDrawAtRoundLimit(t *testing.T) {
	repo := newMockMatchRepo()
	board := &mockLeaderboard{}
	bc := &recordingBroadcaster{}
	svc := NewMatchService(repo, board, bc)

	idle := &scriptStrategy{name: "idle"}
	m := startDuel(t, svc, newDuelGame(t, 1), map[ctf.Team]ctf.Strategy{ctf.TeamA: idle, ctf.TeamB: idle}, 3)

	rec, err := svc.Run(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, rec.Draw())
	assert.Empty(t, rec.Condition)
	assert.Equal(t, 3, rec.Rounds)
	assert.Equal(t, []leaderboardCall{{"idle", false, ""}, {"idle", false, ""}}, board.calls)

	types := bc.types()
	assert.Equal(t, EventGameOver, types[len(types)-1])

	snap, ok := svc.Snapshot(m.ID)
	require.True(t, ok)
	assert.True(t, snap.Draw)
	assert.Nil(t, snap.Result)
	last := snap.Log[len(snap.Log)-1]
	assert.True(t, strings.HasPrefix(last.Message, "No winner after 3 rounds"), last.Message)
}

func TestRunStopsForHuman(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	m := startDuel(t, svc, newDuelGame(t, 0), map[ctf.Team]ctf.Strategy{ctf.TeamB: &scriptStrategy{name: "idle"}}, 0)
	_, err := svc.Run(context.Background(), m.ID)
	assert.ErrorIs(t, err, ctf.ErrAwaitingHuman)
}

func TestAdvanceHonorsCancel(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	idle := &scriptStrategy{name: "idle"}
	m := startDuel(t, svc, newDuelGame(t, 1), map[ctf.Team]ctf.Strategy{ctf.TeamA: idle, ctf.TeamB: idle}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	turns, err := svc.Advance(ctx, m.ID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, turns)
}

func TestStorageFailureStillEndsMatch(t *testing.T) {
	repo := newMockMatchRepo()
	repo.err = errStorage
	svc := NewMatchService(repo, nil, nil)

	runner := &scriptStrategy{name: "runner", candidates: []ctf.Intent{
		ctf.MoveIntent(0, ctf.Right, ctf.Exactly(2)),
		ctf.MoveIntent(0, ctf.Down, ctf.Exactly(2)),
	}}
	m := startDuel(t, svc, newDuelGame(t, 0), map[ctf.Team]ctf.Strategy{ctf.TeamA: runner, ctf.TeamB: &scriptStrategy{name: "idle"}}, 0)

	rec, err := svc.Run(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Winner)
	assert.Empty(t, repo.records)
}

func TestSnapshot(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	m := startDuel(t, svc, newDuelGame(t, 0), map[ctf.Team]ctf.Strategy{ctf.TeamB: &scriptStrategy{name: "idle"}}, 0)

	snap, ok := svc.Snapshot(m.ID)
	require.True(t, ok)
	assert.Equal(t, "duel", snap.Name)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, "awaiting_human_action", snap.State)
	assert.Equal(t, ctf.TeamA, snap.Active)
	assert.Equal(t, BoardView{Rows: 3, Cols: 3, FlagA: ctf.Position{X: 0, Y: 0}, FlagB: ctf.Position{X: 2, Y: 2}}, snap.Board)
	require.Len(t, snap.Units, 2)
	assert.Equal(t, UnitView{ID: 1, Team: ctf.TeamB, Pos: ctf.Position{X: 1, Y: 2}, Speed: "slow", Skill: "novice"}, snap.Units[1])

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"sides":{"a":"human","b":"idle"}`)

	svc.Forget(m.ID)
	_, ok = svc.Snapshot(m.ID)
	assert.False(t, ok)
}

func TestArchivedMatch(t *testing.T) {
	ctx := context.Background()

	none := NewMatchService(nil, nil, nil)
	rec, err := none.ArchivedMatch(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, rec)

	repo := newMockMatchRepo()
	require.NoError(t, repo.SaveMatch(ctx, &model.MatchRecord{ID: "old", Winner: "b"}))
	svc := NewMatchService(repo, nil, nil)
	rec, err = svc.ArchivedMatch(ctx, "old")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "b", rec.Winner)
}

func TestStepPlaysOneTurn(t *testing.T) {
	bc := &recordingBroadcaster{}
	svc := NewMatchService(nil, nil, bc)
	ctx := context.Background()

	runner := &scriptStrategy{name: "runner", candidates: []ctf.Intent{
		ctf.MoveIntent(0, ctf.Right, ctf.Exactly(2)),
		ctf.MoveIntent(0, ctf.Down, ctf.Exactly(2)),
	}}
	idle := &scriptStrategy{name: "idle"}
	m := startDuel(t, svc, newDuelGame(t, 0), map[ctf.Team]ctf.Strategy{ctf.TeamA: runner, ctf.TeamB: idle}, 0)

	turn, err := svc.Step(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, ctf.TeamA, turn.Team)
	assert.True(t, turn.Acted)
	assert.Equal(t, ctf.AwaitingOpponentAction, m.Controller().State())

	turn, err = svc.Step(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, ctf.TeamB, turn.Team)
	assert.False(t, turn.Acted)

	turn, err = svc.Step(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, turn.Round)
	require.True(t, m.Done())

	_, err = svc.Step(ctx, m.ID)
	assert.ErrorIs(t, err, ctf.ErrGameOver)

	_, err = svc.Step(ctx, "missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)

	assert.Equal(t, EventGameOver, bc.types()[len(bc.types())-1])
}

func TestStepStopsForHuman(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	m := startDuel(t, svc, newDuelGame(t, 0), map[ctf.Team]ctf.Strategy{ctf.TeamB: &scriptStrategy{name: "idle"}}, 0)

	_, err := svc.Step(context.Background(), m.ID)
	assert.ErrorIs(t, err, ctf.ErrAwaitingHuman)
	assert.Equal(t, ctf.AwaitingHumanAction, m.Controller().State())
}

func TestLiveMatches(t *testing.T) {
	svc := NewMatchService(nil, nil, nil)
	assert.Empty(t, svc.LiveMatches())

	for _, id := range []string{"m2", "m1"} {
		_, err := svc.Start(context.Background(), MatchOptions{ID: id, Game: newDuelGame(t, 0), First: ctf.TeamA})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"m1", "m2"}, svc.LiveMatches())

	svc.Forget("m1")
	assert.Equal(t, []string{"m2"}, svc.LiveMatches())
}

func TestMatchLogsCarryMatchID(t *testing.T) {
	var buf bytes.Buffer
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	svc := NewMatchService(nil, nil, nil)
	ctx := context.Background()
	opp := &scriptStrategy{name: "script", candidates: []ctf.Intent{ctf.MoveIntent(1, ctf.Left, ctf.Exactly(1))}}
	m, err := svc.Start(ctx, MatchOptions{
		ID:    "logged",
		Game:  newDuelGame(t, 0),
		First: ctf.TeamA,
		Sides: map[ctf.Team]ctf.Strategy{ctf.TeamB: opp},
	})
	require.NoError(t, err)

	turn, err := svc.Submit(ctx, m.ID, ctf.MoveIntent(0, ctf.Up, ctf.Exactly(1)))
	require.NoError(t, err)
	require.False(t, turn.Acted)

	_, err = svc.Submit(ctx, m.ID, ctf.MoveIntent(0, ctf.Right, ctf.Exactly(2)))
	require.NoError(t, err)
	_, err = svc.Advance(ctx, m.ID)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, m.ID, ctf.MoveIntent(0, ctf.Down, ctf.Exactly(2)))
	require.NoError(t, err)
	require.True(t, m.Done())

	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		msg, _ := entry["message"].(string)
		seen[msg] = true
		assert.Equal(t, "logged", entry["matchId"], "entry %q lacks the match ID", msg)
	}
	for _, want := range []string{"Match started", "Human intent rejected", "Match over"} {
		assert.True(t, seen[want], "missing log entry %q", want)
	}
}
