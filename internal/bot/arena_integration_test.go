//go:build integration

package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/freeeve/flagstrike/internal/repository/postgres"
	redisrepo "github.com/freeeve/flagstrike/internal/repository/redis"
	"github.com/freeeve/flagstrike/internal/testutil"
)

// TestGreedyVsRandomDB plays a batch of greedy-vs-random games against the
// test Postgres and Redis and checks that every game is archived and ranked.
// Run with: go test -tags integration -run TestGreedyVsRandomDB -v -count=1
func TestGreedyVsRandomDB(t *testing.T) {
	db := testutil.SetupDB(t)
	rdb := testutil.SetupRedis(t)
	testutil.CleanupDB(t, db)
	testutil.CleanupRedis(t, rdb)

	matches := postgres.NewMatchRepo(db)
	board := redisrepo.NewClientFromPool(rdb)
	ctx := context.Background()

	t.Cleanup(ResetBotRng)
	SeedBotRng(11)

	const numGames = 10
	for i := 0; i < numGames; i++ {
		cfg := ArenaConfig{
			GameName:   fmt.Sprintf("greedy-vs-random-%d", i+1),
			TeamConfig: mustTeamConfig(t, "a=greedy,b=random"),
			MaxRounds:  100,
			Seed:       int64(1000 + i),
		}
		result, err := RunGame(ctx, cfg, matches, board)
		if err != nil {
			t.Fatalf("game %d: %v", i+1, err)
		}
		rec, err := matches.FindMatch(ctx, result.GameID)
		if err != nil {
			t.Fatalf("find game %d: %v", i+1, err)
		}
		if rec == nil || rec.Winner != result.Winner || rec.Rounds != result.Rounds {
			t.Errorf("game %d: archived %+v does not match %+v", i+1, rec, result)
		}
	}

	recent, err := matches.ListRecent(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != numGames {
		t.Errorf("expected %d archived games, got %d", numGames, len(recent))
	}

	standings, err := board.Standings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	total := int64(0)
	for _, s := range standings {
		if s.Games != numGames {
			t.Errorf("%s: expected %d games, got %d", s.Strategy, numGames, s.Games)
		}
		total += s.Wins
		t.Logf("%s: %d/%d wins %v", s.Strategy, s.Wins, s.Games, s.Conditions)
	}
	if total > numGames {
		t.Errorf("more wins (%d) than games (%d)", total, numGames)
	}
}
