package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/repository"
	"github.com/freeeve/flagstrike/internal/service"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

// DefaultMaxRounds caps an arena game before it is called a draw.
const DefaultMaxRounds = 200

// ArenaConfig configures a single strategy-vs-strategy game.
type ArenaConfig struct {
	GameName   string
	TeamConfig map[ctf.Team]string // team -> strategy name
	Setup      ctf.Setup           // zero value = 8x8 with 4 units per team
	Rules      ctf.Rules
	First      ctf.Team // NoTeam = rolled from the seed
	MaxRounds  int      // rounds before a draw, 0 = DefaultMaxRounds
	Seed       int64    // 0 = random
	DryRun     bool     // skip archive and leaderboard writes
}

// ArenaResult describes the outcome of a completed arena game.
type ArenaResult struct {
	GameID    string
	Winner    string // "a", "b" or "" for a draw
	Condition string
	First     string
	Rounds    int
	Survivors map[string]int    // team -> surviving units
	Sides     map[string]string // team -> strategy name
}

// WinnerStrategy returns the strategy name of the winning side, or "".
func (r *ArenaResult) WinnerStrategy() string {
	if r.Winner == "" {
		return ""
	}
	return r.Sides[r.Winner]
}

// RunGame plays a full game between two strategies. Pass nil repositories
// (or set DryRun) to skip archiving.
func RunGame(
	ctx context.Context,
	cfg ArenaConfig,
	matches repository.MatchRepository,
	leaderboard repository.Leaderboard,
) (*ArenaResult, error) {
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Setup == (ctf.Setup{}) {
		cfg.Setup = ctf.Setup{Rows: 8, Cols: 8, UnitsPerTeam: 4}
	}
	if cfg.DryRun {
		matches, leaderboard = nil, nil
	}

	rng := ctf.NewRand(cfg.Seed)
	gs, err := ctf.NewGame(cfg.Setup, rng)
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	gs.Rules = cfg.Rules

	first := cfg.First
	if first == ctf.NoTeam {
		first = ctf.RandomTeam(rng)
	}

	sides := make(map[ctf.Team]ctf.Strategy, 2)
	for _, team := range ctf.AllTeams() {
		name, ok := cfg.TeamConfig[team]
		if !ok {
			name = StrategyGreedy
		}
		sides[team] = StrategyFor(name)
	}

	svc := service.NewMatchService(matches, leaderboard, nil)
	m, err := svc.Start(ctx, service.MatchOptions{
		Name:      cfg.GameName,
		Game:      gs,
		Seed:      cfg.Seed,
		First:     first,
		Sides:     sides,
		MaxRounds: cfg.MaxRounds,
	})
	if err != nil {
		return nil, fmt.Errorf("start match: %w", err)
	}
	defer svc.Forget(m.ID)

	rec, err := svc.Run(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	result := &ArenaResult{
		GameID:    rec.ID,
		Winner:    rec.Winner,
		Condition: rec.Condition,
		First:     rec.FirstTeam,
		Rounds:    rec.Rounds,
		Survivors: map[string]int{"a": rec.SurvivorsA, "b": rec.SurvivorsB},
		Sides:     map[string]string{"a": rec.SideA, "b": rec.SideB},
	}
	if result.Winner == "" {
		log.Info().Str("gameId", result.GameID).Int("rounds", result.Rounds).Msg("Arena game ended as draw (round limit)")
	} else {
		log.Info().Str("gameId", result.GameID).Str("winner", result.Winner).
			Str("condition", result.Condition).Int("rounds", result.Rounds).Msg("Arena game won")
	}
	return result, nil
}
