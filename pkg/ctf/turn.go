package ctf

import (
	"errors"
	"fmt"
)

// Strategy produces intents for a computer-controlled team. Candidates are
// tried in order through GameState.Apply until one succeeds.
type Strategy interface {
	Name() string
	Candidates(gs *GameState, team Team) []Intent
}

// TurnState is the turn controller's current state.
type TurnState int

const (
	AwaitingHumanAction TurnState = iota + 1
	AwaitingOpponentAction
	RoundComplete
	GameOver
)

func (s TurnState) String() string {
	switch s {
	case AwaitingHumanAction:
		return "awaiting_human_action"
	case AwaitingOpponentAction:
		return "awaiting_opponent_action"
	case RoundComplete:
		return "round_complete"
	case GameOver:
		return "game_over"
	}
	return "unknown"
}

var (
	ErrNotYourTurn     = errors.New("not awaiting that side's action")
	ErrGameOver        = errors.New("game is over")
	ErrAwaitingHuman   = errors.New("awaiting a human action")
	ErrRoundInProgress = errors.New("round still in progress")
)

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// First is the team that acts first in every round.
	First Team
	// Sides maps a team to its strategy. A team without one is human-controlled.
	Sides map[Team]Strategy
}

// Turn reports one resolved turn.
type Turn struct {
	Team    Team
	Round   int
	Outcome ActionOutcome
	// Acted is false for a rejected human intent (the turn does not pass)
	// and for an opponent that found no successful action.
	Acted    bool
	Attempts int
}

// Controller is the per-round state machine alternating the two teams.
type Controller struct {
	gs     *GameState
	first  Team
	sides  map[Team]Strategy
	active Team
	acted  map[Team]bool
	state  TurnState
}

// NewController starts the first round.
func NewController(gs *GameState, cfg ControllerConfig) (*Controller, error) {
	if cfg.First != TeamA && cfg.First != TeamB {
		return nil, fmt.Errorf("first team must be a or b, got %q", string(cfg.First))
	}
	sides := make(map[Team]Strategy, 2)
	for team, s := range cfg.Sides {
		if s != nil {
			sides[team] = s
		}
	}
	c := &Controller{gs: gs, first: cfg.First, sides: sides}
	if gs.Ended {
		c.state = GameOver
		return c, nil
	}
	c.startRound()
	return c, nil
}

// State returns the current state.
func (c *Controller) State() TurnState { return c.state }

// ActiveTeam returns the team whose action is awaited.
func (c *Controller) ActiveTeam() Team { return c.active }

// Game returns the controlled game state.
func (c *Controller) Game() *GameState { return c.gs }

// IsHuman reports whether a team is human-controlled.
func (c *Controller) IsHuman(team Team) bool { return c.sides[team] == nil }

// CurrentRound returns the 1-based number of the round in progress.
func (c *Controller) CurrentRound() int { return c.gs.Round + 1 }

// RoundsPlayed returns completed rounds plus the round a game ended in.
func (c *Controller) RoundsPlayed() int {
	if c.state == GameOver {
		return c.gs.Round + 1
	}
	return c.gs.Round
}

// Result returns the decided result once the game is over.
func (c *Controller) Result() (Result, bool) {
	if !c.gs.Ended {
		return Result{}, false
	}
	return Result{Winner: c.gs.Winner, Condition: c.gs.Condition}, true
}

func (c *Controller) startRound() {
	c.gs.ResetActed()
	c.acted = map[Team]bool{}
	c.setActive(c.first)
}

func (c *Controller) setActive(team Team) {
	c.active = team
	if c.IsHuman(team) {
		c.state = AwaitingHumanAction
	} else {
		c.state = AwaitingOpponentAction
	}
}

// BeginRound resets the acted flags and hands control to the first team.
func (c *Controller) BeginRound() error {
	switch c.state {
	case GameOver:
		return ErrGameOver
	case RoundComplete:
		c.startRound()
		return nil
	}
	return ErrRoundInProgress
}

// SubmitHuman resolves one human intent. A rejected intent keeps the turn
// with the human so they can be prompted again.
func (c *Controller) SubmitHuman(in Intent) (Turn, error) {
	if c.state == GameOver {
		return Turn{}, ErrGameOver
	}
	if c.state != AwaitingHumanAction {
		return Turn{}, ErrNotYourTurn
	}
	team := c.active
	out := c.gs.Apply(team, in)
	t := Turn{Team: team, Round: c.CurrentRound(), Outcome: out, Attempts: 1}
	if out.Rejected() {
		return t, nil
	}
	t.Acted = true
	c.gs.Record(team, out.Describe())
	c.finish(team)
	return t, nil
}

// PlayOpponent runs the active strategy. A turn in which no candidate
// succeeds is still a completed turn.
func (c *Controller) PlayOpponent() (Turn, error) {
	if c.state == GameOver {
		return Turn{}, ErrGameOver
	}
	if c.state != AwaitingOpponentAction {
		return Turn{}, ErrNotYourTurn
	}
	team := c.active
	t := Turn{Team: team, Round: c.CurrentRound()}
	for _, in := range c.sides[team].Candidates(c.gs, team) {
		t.Attempts++
		out := c.gs.Apply(team, in)
		t.Outcome = out
		if out.Success {
			t.Acted = true
			break
		}
	}

	if t.Acted {
		c.gs.Record(team, t.Outcome.Describe())
		if t.Outcome.Hit == HitHead {
			c.gs.Record(team, fmt.Sprintf("Unit %d is eliminated due to headshot penalty.", t.Outcome.Intent.UnitID))
		}
	} else {
		c.gs.Record(team, "No action taken.")
	}
	c.finish(team)
	return t, nil
}

// Step advances a strategy-controlled game: it starts the next round when one
// is complete and plays the active strategy's turn.
func (c *Controller) Step() (Turn, error) {
	if c.state == RoundComplete {
		c.startRound()
	}
	switch c.state {
	case GameOver:
		return Turn{}, ErrGameOver
	case AwaitingHumanAction:
		return Turn{}, ErrAwaitingHuman
	}
	return c.PlayOpponent()
}

// finish closes a team's turn: win check, then alternation.
func (c *Controller) finish(team Team) {
	c.gs.turns[team]++
	if res, ok := EvaluateWin(c.gs); ok {
		c.gs.Ended = true
		c.gs.Winner = res.Winner
		c.gs.Condition = res.Condition
		c.gs.Record(res.Winner, res.Describe())
		c.state = GameOver
		return
	}
	c.acted[team] = true
	if c.acted[TeamA] && c.acted[TeamB] {
		c.gs.Round++
		c.state = RoundComplete
		return
	}
	c.setActive(team.Opponent())
}
