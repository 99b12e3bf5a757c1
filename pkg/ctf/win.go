package ctf

import "fmt"

// WinCondition names how a game was decided.
type WinCondition string

const (
	WinNone        WinCondition = ""
	WinCapture     WinCondition = "capture"
	WinElimination WinCondition = "elimination"
	WinRetreat     WinCondition = "retreat"
)

// Result is the decided outcome of a game.
type Result struct {
	Winner    Team         `json:"winner"`
	Condition WinCondition `json:"condition"`
}

// Describe returns a human-readable sentence for the result.
func (r Result) Describe() string {
	loser := r.Winner.Opponent()
	switch r.Condition {
	case WinCapture:
		return fmt.Sprintf("%s wins by capturing %s's flag!", r.Winner, loser)
	case WinElimination:
		return fmt.Sprintf("%s wins by eliminating all %s units!", r.Winner, loser)
	case WinRetreat:
		return fmt.Sprintf("All active %s units are at their flag. %s wins by opponent's retreat!", loser, r.Winner)
	}
	return "No winner."
}

// EvaluateWin checks the win conditions in priority order and returns the
// first one satisfied: flag capture, then elimination, then retreat.
//
// A team is only judged to have retreated once it has taken at least one
// turn, so both sides sitting on their spawn flags at the start of a game
// never counts as a retreat.
func EvaluateWin(gs *GameState) (Result, bool) {
	for _, team := range AllTeams() {
		enemyFlag := gs.Board.FlagOf(team.Opponent())
		for _, u := range gs.Survivors(team) {
			if u.Pos == enemyFlag {
				return Result{Winner: team, Condition: WinCapture}, true
			}
		}
	}

	for _, team := range AllTeams() {
		if len(gs.Survivors(team)) == 0 {
			return Result{Winner: team.Opponent(), Condition: WinElimination}, true
		}
	}

	for _, team := range AllTeams() {
		if gs.TurnsTaken(team) == 0 {
			continue
		}
		if allOnFlag(gs.Survivors(team), gs.Board.FlagOf(team)) {
			return Result{Winner: team.Opponent(), Condition: WinRetreat}, true
		}
	}

	return Result{}, false
}

func allOnFlag(units []*Unit, flag Position) bool {
	if len(units) == 0 {
		return false
	}
	for _, u := range units {
		if u.Pos != flag {
			return false
		}
	}
	return true
}
