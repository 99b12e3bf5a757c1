package bot

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/pkg/ctf"
)

// Strategy names accepted by StrategyFor.
const (
	StrategyGreedy      = "greedy"
	StrategyFallThrough = "fallthrough"
	StrategyRandom      = "random"
	StrategyIdle        = "idle"
)

// StrategyNames lists every registered strategy name.
func StrategyNames() []string {
	return []string{StrategyGreedy, StrategyFallThrough, StrategyRandom, StrategyIdle}
}

// KnownStrategy reports whether name is a registered strategy.
func KnownStrategy(name string) bool {
	for _, n := range StrategyNames() {
		if n == name {
			return true
		}
	}
	return false
}

// StrategyFor returns the strategy registered under name. Unknown names fall
// back to the greedy strategy.
func StrategyFor(name string) ctf.Strategy {
	switch name {
	case StrategyFallThrough:
		return &FallThroughStrategy{}
	case StrategyRandom:
		return &RandomStrategy{}
	case StrategyIdle:
		return IdleStrategy{}
	case StrategyGreedy, "":
		return &GreedyStrategy{}
	default:
		log.Warn().Str("strategy", name).Msg("Unknown strategy, falling back to greedy")
		return &GreedyStrategy{}
	}
}

// --- IdleStrategy ---

// IdleStrategy never acts. Useful as an arena baseline.
type IdleStrategy struct{}

func (IdleStrategy) Name() string { return StrategyIdle }

func (IdleStrategy) Candidates(*ctf.GameState, ctf.Team) []ctf.Intent { return nil }

// --- RandomStrategy ---

// RandomStrategy proposes every move and attack of every surviving unit in a
// random order, each with a random legal-sized amount.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return StrategyRandom }

func (RandomStrategy) Candidates(gs *ctf.GameState, team ctf.Team) []ctf.Intent {
	var out []ctf.Intent
	for _, u := range gs.Survivors(team) {
		for _, d := range ctf.AllDirections() {
			out = append(out,
				ctf.MoveIntent(u.ID, d, ctf.Exactly(1+botIntn(u.MaxMovement()))),
				ctf.AttackIntent(u.ID, d, ctf.Exactly(1+botIntn(u.AttackRange()))),
			)
		}
	}
	botShuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// byDistanceToFlag returns the survivors of team ordered nearest-first to the
// enemy flag. Ties keep ID order.
func byDistanceToFlag(gs *ctf.GameState, team ctf.Team) []*ctf.Unit {
	units := gs.Survivors(team)
	flag := gs.Board.FlagOf(team.Opponent())
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Pos.Distance(flag) < units[j].Pos.Distance(flag)
	})
	return units
}
