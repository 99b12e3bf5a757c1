package bot

import "github.com/freeeve/flagstrike/pkg/ctf"

// GreedyStrategy plays the single unit nearest to the enemy flag: it shoots
// if any shot lands, otherwise advances on the flag at full speed, otherwise
// tries the shots again. If that unit cannot act the turn is passed.
type GreedyStrategy struct{}

func (GreedyStrategy) Name() string { return StrategyGreedy }

func (GreedyStrategy) Candidates(gs *ctf.GameState, team ctf.Team) []ctf.Intent {
	units := byDistanceToFlag(gs, team)
	if len(units) == 0 {
		return nil
	}
	return unitCandidates(gs, units[0])
}

// FallThroughStrategy is GreedyStrategy without the single-unit limit: when
// the nearest unit has nothing to do, the next nearest is tried, and so on.
type FallThroughStrategy struct{}

func (FallThroughStrategy) Name() string { return StrategyFallThrough }

func (FallThroughStrategy) Candidates(gs *ctf.GameState, team ctf.Team) []ctf.Intent {
	var out []ctf.Intent
	for _, u := range byDistanceToFlag(gs, team) {
		out = append(out, unitCandidates(gs, u)...)
	}
	return out
}

// unitCandidates orders one unit's intents: the attack scan, the moves toward
// the enemy flag, then the attack scan again. A miss does not end the scan.
func unitCandidates(gs *ctf.GameState, u *ctf.Unit) []ctf.Intent {
	scan := attackScan(u)
	out := make([]ctf.Intent, 0, 2*len(scan)+2)
	out = append(out, scan...)
	for _, d := range advanceDirections(u.Pos, gs.Board.FlagOf(u.Team.Opponent())) {
		out = append(out, ctf.MoveIntent(u.ID, d, ctf.Exactly(u.MaxMovement())))
	}
	return append(out, scan...)
}

// attackScan lists every attack in scan order: directions Up, Down, Left,
// Right, and within each direction ranges 1..max.
func attackScan(u *ctf.Unit) []ctf.Intent {
	var out []ctf.Intent
	for _, d := range ctf.AllDirections() {
		for r := 1; r <= u.AttackRange(); r++ {
			out = append(out, ctf.AttackIntent(u.ID, d, ctf.Exactly(r)))
		}
	}
	return out
}

// advanceDirections returns the directions that close the distance from p to
// target, larger axis first. Ties go horizontal first. An axis already
// aligned contributes no direction.
func advanceDirections(p, target ctf.Position) []ctf.Direction {
	dx, dy := target.X-p.X, target.Y-p.Y
	var horizontal, vertical []ctf.Direction
	switch {
	case dx > 0:
		horizontal = []ctf.Direction{ctf.Right}
	case dx < 0:
		horizontal = []ctf.Direction{ctf.Left}
	}
	switch {
	case dy > 0:
		vertical = []ctf.Direction{ctf.Down}
	case dy < 0:
		vertical = []ctf.Direction{ctf.Up}
	}
	if abs(dx) >= abs(dy) {
		return append(horizontal, vertical...)
	}
	return append(vertical, horizontal...)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
