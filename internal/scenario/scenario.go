// Package scenario loads hand-authored starting positions from YAML.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/flagstrike/pkg/ctf"
)

// ErrInvalidScenario is wrapped by every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Point is a board coordinate.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Flags holds both flag coordinates.
type Flags struct {
	A Point `yaml:"a"`
	B Point `yaml:"b"`
}

// UnitSpec describes one unit. Units get IDs in file order.
type UnitSpec struct {
	Team  string `yaml:"team"`
	Speed string `yaml:"speed"` // fast | slow
	Skill string `yaml:"skill"` // expert | novice
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
}

// Scenario is a complete starting position.
type Scenario struct {
	Name            string     `yaml:"name"`
	Rows            int        `yaml:"rows"`
	Cols            int        `yaml:"cols"`
	Flags           *Flags     `yaml:"flags"`
	Units           []UnitSpec `yaml:"units"`
	Seed            int64      `yaml:"seed"`
	First           string     `yaml:"first"`
	EliminatedBlock bool       `yaml:"eliminated_block"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario document. Flags default to the
// opposite corners (0,0) for A and (cols-1, rows-1) for B.
func Parse(b []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if s.Flags == nil {
		s.Flags = &Flags{A: Point{0, 0}, B: Point{s.Cols - 1, s.Rows - 1}}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks dimensions, flags and every unit.
func (s *Scenario) Validate() error {
	if s.Rows < 1 || s.Cols < 1 {
		return fmt.Errorf("%w: board must be at least 1x1, got %dx%d", ErrInvalidScenario, s.Rows, s.Cols)
	}
	inBounds := func(x, y int) bool { return x >= 0 && x < s.Cols && y >= 0 && y < s.Rows }
	if s.Flags == nil {
		return fmt.Errorf("%w: missing flags", ErrInvalidScenario)
	}
	if !inBounds(s.Flags.A.X, s.Flags.A.Y) || !inBounds(s.Flags.B.X, s.Flags.B.Y) {
		return fmt.Errorf("%w: flag off the board", ErrInvalidScenario)
	}
	if s.Flags.A == s.Flags.B {
		return fmt.Errorf("%w: both flags at (%d, %d)", ErrInvalidScenario, s.Flags.A.X, s.Flags.A.Y)
	}
	if s.First != "" {
		if _, err := ctf.ParseTeam(s.First); err != nil {
			return fmt.Errorf("%w: first: %v", ErrInvalidScenario, err)
		}
	}

	counts := map[ctf.Team]int{}
	perCell := map[Point]int{}
	for i, u := range s.Units {
		team, err := ctf.ParseTeam(u.Team)
		if err != nil {
			return fmt.Errorf("%w: unit %d: %v", ErrInvalidScenario, i, err)
		}
		if _, err := parseSpeed(u.Speed); err != nil {
			return fmt.Errorf("%w: unit %d: %v", ErrInvalidScenario, i, err)
		}
		if _, err := parseSkill(u.Skill); err != nil {
			return fmt.Errorf("%w: unit %d: %v", ErrInvalidScenario, i, err)
		}
		if !inBounds(u.X, u.Y) {
			return fmt.Errorf("%w: unit %d at (%d, %d) is off the board", ErrInvalidScenario, i, u.X, u.Y)
		}
		p := Point{u.X, u.Y}
		perCell[p]++
		if perCell[p] > ctf.MaxUnitsPerCell {
			return fmt.Errorf("%w: more than %d units at (%d, %d)", ErrInvalidScenario, ctf.MaxUnitsPerCell, u.X, u.Y)
		}
		counts[team]++
	}
	for _, team := range ctf.AllTeams() {
		if counts[team] == 0 {
			return fmt.Errorf("%w: %s has no units", ErrInvalidScenario, team)
		}
	}
	return nil
}

// Build creates the game described by the scenario.
func (s *Scenario) Build(rng ctf.RandSource) (*ctf.GameState, error) {
	b, err := ctf.NewBoard(s.Rows, s.Cols,
		ctf.Position{X: s.Flags.A.X, Y: s.Flags.A.Y},
		ctf.Position{X: s.Flags.B.X, Y: s.Flags.B.Y})
	if err != nil {
		return nil, err
	}
	gs := ctf.NewEmptyGame(b, rng)
	gs.Rules.EliminatedBlock = s.EliminatedBlock
	for i, u := range s.Units {
		team, _ := ctf.ParseTeam(u.Team)
		speed, _ := parseSpeed(u.Speed)
		skill, _ := parseSkill(u.Skill)
		if _, err := gs.AddUnit(team, speed, skill, ctf.Position{X: u.X, Y: u.Y}); err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
	}
	return gs, nil
}

// FirstTeam returns the configured first team, or NoTeam when unset.
func (s *Scenario) FirstTeam() ctf.Team {
	t, err := ctf.ParseTeam(s.First)
	if err != nil {
		return ctf.NoTeam
	}
	return t
}

func parseSpeed(s string) (ctf.SpeedClass, error) {
	switch strings.ToLower(s) {
	case "fast":
		return ctf.Fast, nil
	case "slow":
		return ctf.Slow, nil
	}
	return 0, fmt.Errorf("unknown speed %q", s)
}

func parseSkill(s string) (ctf.SkillClass, error) {
	switch strings.ToLower(s) {
	case "expert":
		return ctf.Expert, nil
	case "novice":
		return ctf.Novice, nil
	}
	return 0, fmt.Errorf("unknown skill %q", s)
}
