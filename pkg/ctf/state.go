package ctf

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RandSource is the single source of randomness for rolls and hit resolution.
// *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// NewRand returns a seeded source. A zero seed picks a time-based seed.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Rules holds the switches for behavior the base rules leave open.
type Rules struct {
	// EliminatedBlock keeps eliminated units acting as obstacles: they block
	// line of sight, block opposing movement and count toward the cell cap.
	// The default treats them as absent for every spatial rule.
	EliminatedBlock bool
}

// LogEntry is one line of the action log. It is never consulted by rules.
type LogEntry struct {
	Team    Team      `json:"team"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// GameState owns the board, both rosters and the turn bookkeeping.
type GameState struct {
	Board *Board
	Rules Rules

	// Round counts completed rounds (one action per team).
	Round     int
	Ended     bool
	Winner    Team
	Condition WinCondition

	// Now stamps log entries; tests may replace it.
	Now func() time.Time

	units  []*Unit
	byID   map[int]*Unit
	rng    RandSource
	turns  map[Team]int
	log    []LogEntry
	nextID int
}

// ErrInvalidSetup is wrapped by every setup validation failure.
var ErrInvalidSetup = errors.New("invalid setup")

// NewEmptyGame creates a game on an existing board with no units.
func NewEmptyGame(b *Board, rng RandSource) *GameState {
	if rng == nil {
		rng = NewRand(0)
	}
	return &GameState{
		Board: b,
		Now:   time.Now,
		byID:  make(map[int]*Unit),
		rng:   rng,
		turns: make(map[Team]int),
	}
}

// AddUnit creates a unit with the next ID and places it at pos.
func (gs *GameState) AddUnit(team Team, speed SpeedClass, skill SkillClass, pos Position) (*Unit, error) {
	if team != TeamA && team != TeamB {
		return nil, fmt.Errorf("%w: unknown team %q", ErrInvalidSetup, string(team))
	}
	u := newUnit(gs.nextID, team, speed, skill)
	if err := gs.Board.Place(u, pos.X, pos.Y); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSetup, err)
	}
	gs.nextID++
	gs.units = append(gs.units, u)
	gs.byID[u.ID] = u
	return u, nil
}

// Units returns every unit in ID order, eliminated ones included.
func (gs *GameState) Units() []*Unit {
	out := make([]*Unit, len(gs.units))
	copy(out, gs.units)
	return out
}

// UnitsOf returns the roster of a team, eliminated units included.
func (gs *GameState) UnitsOf(team Team) []*Unit {
	var out []*Unit
	for _, u := range gs.units {
		if u.Team == team {
			out = append(out, u)
		}
	}
	return out
}

// Survivors returns the non-eliminated units of a team.
func (gs *GameState) Survivors(team Team) []*Unit {
	var out []*Unit
	for _, u := range gs.units {
		if u.Team == team && !u.Eliminated {
			out = append(out, u)
		}
	}
	return out
}

// UnitByID returns the unit with the given ID, or nil.
func (gs *GameState) UnitByID(id int) *Unit {
	return gs.byID[id]
}

// TurnsTaken returns how many turns a team has completed this game.
func (gs *GameState) TurnsTaken(team Team) int {
	return gs.turns[team]
}

// Log returns a copy of the action log.
func (gs *GameState) Log() []LogEntry {
	out := make([]LogEntry, len(gs.log))
	copy(out, gs.log)
	return out
}

// Record appends a message to the action log.
func (gs *GameState) Record(team Team, msg string) {
	gs.log = append(gs.log, LogEntry{Team: team, Time: gs.Now(), Message: msg})
}

// ResetActed clears every unit's acted flag.
func (gs *GameState) ResetActed() {
	for _, u := range gs.units {
		u.ActedThisRound = false
	}
}

// blocks reports whether u counts as an obstacle under the current rules.
func (gs *GameState) blocks(u *Unit) bool {
	return !u.Eliminated || gs.Rules.EliminatedBlock
}

// Apply validates that the intent names a live unit of team and resolves it.
// This is the one resolution path for both human and strategy turns.
func (gs *GameState) Apply(team Team, in Intent) ActionOutcome {
	out := ActionOutcome{Intent: in, Team: team, TargetID: -1}
	u := gs.UnitByID(in.UnitID)
	switch {
	case u == nil:
		out.Reason = ReasonUnknownUnit
		return out
	case u.Team != team:
		out.Reason = ReasonWrongTeam
		return out
	case u.Eliminated:
		out.Reason = ReasonUnitEliminated
		return out
	}

	switch in.Kind {
	case ActionMove:
		return gs.Move(u, in.Direction, in.Amount)
	case ActionAttack:
		return gs.Attack(u, in.Direction, in.Amount)
	}
	out.Reason = ReasonInvalidAction
	return out
}
