package ctf

import "fmt"

// Team identifies one of the two sides.
type Team string

const (
	TeamA  Team = "a"
	TeamB  Team = "b"
	NoTeam Team = ""
)

// AllTeams returns both teams in standard order.
func AllTeams() []Team {
	return []Team{TeamA, TeamB}
}

// Opponent returns the opposing team.
func (t Team) Opponent() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	}
	return NoTeam
}

func (t Team) String() string {
	switch t {
	case TeamA:
		return "Team A"
	case TeamB:
		return "Team B"
	}
	return "no team"
}

// ParseTeam accepts "a"/"b" in any case.
func ParseTeam(s string) (Team, error) {
	switch s {
	case "a", "A":
		return TeamA, nil
	case "b", "B":
		return TeamB, nil
	}
	return NoTeam, fmt.Errorf("unknown team %q", s)
}

// SpeedClass governs movement capacity.
type SpeedClass int

const (
	Fast SpeedClass = iota
	Slow
)

func (s SpeedClass) String() string {
	if s == Fast {
		return "fast"
	}
	return "slow"
}

// MaxMovement returns the number of squares a unit of this class may move per action.
func (s SpeedClass) MaxMovement() int {
	if s == Fast {
		return 2
	}
	return 1
}

// SkillClass governs attack range and hit probabilities.
type SkillClass int

const (
	Expert SkillClass = iota
	Novice
)

func (s SkillClass) String() string {
	if s == Expert {
		return "expert"
	}
	return "novice"
}

// HitProfile holds the per-tier hit chances and maximum range for a skill class.
// Tiers are checked cumulatively in the order head, torso, extremity.
type HitProfile struct {
	Head      float64
	Torso     float64
	Extremity float64
	Range     int
}

var (
	expertProfile = HitProfile{Head: 0.05, Torso: 0.60, Extremity: 0.85, Range: 2}
	noviceProfile = HitProfile{Head: 0.25, Torso: 0.10, Extremity: 0.50, Range: 1}
)

// Profile returns the hit profile for the skill class.
func (s SkillClass) Profile() HitProfile {
	if s == Expert {
		return expertProfile
	}
	return noviceProfile
}

// Elimination reasons. Set once and never cleared.
const (
	ReasonHeadshotPenalty = "Headshot penalty"
	ReasonTorsoHit        = "Hit in torso"
	ReasonExtremityHits   = "3 extremity hits"
)

// MaxExtremityHits is the number of extremity hits that eliminates a unit.
const MaxExtremityHits = 3

// Position is a board coordinate. X is the column, Y is the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Unplaced is the position of a unit that has not been put on the board.
var Unplaced = Position{X: -1, Y: -1}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Add returns p shifted by d scaled by n.
func (p Position) Add(d Position, n int) Position {
	return Position{X: p.X + d.X*n, Y: p.Y + d.Y*n}
}

// Distance returns the Manhattan distance between two positions.
func (p Position) Distance(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

// Unit is a single combatant.
type Unit struct {
	ID    int
	Team  Team
	Pos   Position
	Start Position
	Speed SpeedClass
	Skill SkillClass

	ExtremityHits     int
	Eliminated        bool
	EliminationReason string
	ActedThisRound    bool
}

func newUnit(id int, team Team, speed SpeedClass, skill SkillClass) *Unit {
	return &Unit{
		ID:    id,
		Team:  team,
		Pos:   Unplaced,
		Start: Unplaced,
		Speed: speed,
		Skill: skill,
	}
}

// MaxMovement returns the unit's movement capacity.
func (u *Unit) MaxMovement() int { return u.Speed.MaxMovement() }

// AttackRange returns the unit's maximum attack range.
func (u *Unit) AttackRange() int { return u.Skill.Profile().Range }

// Active reports whether the unit can still act.
func (u *Unit) Active() bool { return !u.Eliminated }

func (u *Unit) eliminate(reason string) {
	if u.Eliminated {
		return
	}
	u.Eliminated = true
	u.EliminationReason = reason
}

// Label is a short display form, e.g. "[3] fast expert (1)".
func (u *Unit) Label() string {
	return fmt.Sprintf("[%d] %s %s (%d)", u.ID, u.Speed, u.Skill, u.ExtremityHits)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
