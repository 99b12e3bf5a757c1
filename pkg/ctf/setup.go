package ctf

import "fmt"

// Setup holds the parameters for a randomly generated game.
type Setup struct {
	Rows         int `json:"rows"`
	Cols         int `json:"cols"`
	UnitsPerTeam int `json:"units_per_team"`
}

// Validate rejects non-positive dimensions, boards whose two corners
// coincide and rosters that cannot both fit without sharing cells.
func (s Setup) Validate() error {
	if s.Rows < 1 {
		return fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidSetup, s.Rows)
	}
	if s.Cols < 1 {
		return fmt.Errorf("%w: cols must be positive, got %d", ErrInvalidSetup, s.Cols)
	}
	if s.UnitsPerTeam < 1 {
		return fmt.Errorf("%w: units per team must be positive, got %d", ErrInvalidSetup, s.UnitsPerTeam)
	}
	if s.Rows == 1 && s.Cols == 1 {
		return fmt.Errorf("%w: a 1x1 board puts both flags on the same square", ErrInvalidSetup)
	}
	// Each team spawns from its own corner; the two walks must not meet.
	if 2*s.UnitsPerTeam > s.Rows*s.Cols {
		return fmt.Errorf("%w: %d units per team do not fit on a %dx%d board", ErrInvalidSetup, s.UnitsPerTeam, s.Rows, s.Cols)
	}
	return nil
}

// Roster class odds, checked cumulatively.
const (
	fastExpertOdds = 0.15
	slowExpertOdds = 0.40
	fastNoviceOdds = 0.90
)

// rollClasses draws a unit's speed and skill.
func rollClasses(rng RandSource) (SpeedClass, SkillClass) {
	r := rng.Float64()
	switch {
	case r < fastExpertOdds:
		return Fast, Expert
	case r < slowExpertOdds:
		return Slow, Expert
	case r < fastNoviceOdds:
		return Fast, Novice
	}
	return Slow, Novice
}

// RandomTeam picks either team with equal odds.
func RandomTeam(rng RandSource) Team {
	if rng.Float64() < 0.5 {
		return TeamA
	}
	return TeamB
}

// NewGame builds a board with flags in opposite corners, assigned to the
// teams at random, and places each team's randomly rolled roster starting
// on its own flag.
func NewGame(s Setup, rng RandSource) (*GameState, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(0)
	}

	corner := Position{X: 0, Y: 0}
	far := Position{X: s.Cols - 1, Y: s.Rows - 1}
	flagA, flagB := corner, far
	if RandomTeam(rng) == TeamB {
		flagA, flagB = far, corner
	}

	b, err := NewBoard(s.Rows, s.Cols, flagA, flagB)
	if err != nil {
		return nil, err
	}
	gs := NewEmptyGame(b, rng)
	for _, team := range AllTeams() {
		for _, p := range spawnCells(b, b.FlagOf(team), s.UnitsPerTeam) {
			speed, skill := rollClasses(rng)
			if _, err := gs.AddUnit(team, speed, skill, p); err != nil {
				return nil, err
			}
		}
	}
	return gs, nil
}

// spawnCells walks the board from a flag: along the flag's row away from the
// edge, then row by row toward the interior, one unit per cell.
func spawnCells(b *Board, flag Position, n int) []Position {
	dx, dy := 1, 1
	if flag.X != 0 {
		dx = -1
	}
	if flag.Y != 0 {
		dy = -1
	}
	cells := make([]Position, 0, n)
	x, y := flag.X, flag.Y
	for len(cells) < n {
		cells = append(cells, Position{X: x, Y: y})
		x += dx
		if x < 0 || x >= b.Cols() {
			x = flag.X
			y += dy
			if y < 0 || y >= b.Rows() {
				break
			}
		}
	}
	return cells
}
