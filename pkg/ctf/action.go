package ctf

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is one of the four cardinal directions. The numeric codes are
// part of the input contract: Up=1, Left=2, Down=3, Right=4.
type Direction int

const (
	Up Direction = iota + 1
	Left
	Down
	Right
)

// AllDirections returns the attack scan order used by the opponent heuristic.
func AllDirections() []Direction {
	return []Direction{Up, Down, Left, Right}
}

// Delta returns the unit vector for the direction. ok is false for invalid codes.
func (d Direction) Delta() (Position, bool) {
	switch d {
	case Up:
		return Position{X: 0, Y: -1}, true
	case Down:
		return Position{X: 0, Y: 1}, true
	case Left:
		return Position{X: -1, Y: 0}, true
	case Right:
		return Position{X: 1, Y: 0}, true
	}
	return Position{}, false
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Left:
		return "left"
	case Down:
		return "down"
	case Right:
		return "right"
	}
	return "direction(" + strconv.Itoa(int(d)) + ")"
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDirection accepts names ("up"), initials ("u") or numeric codes ("1").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up", "u", "1":
		return Up, nil
	case "left", "l", "2":
		return Left, nil
	case "down", "d", "3":
		return Down, nil
	case "right", "r", "4":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// ActionKind is either a move or an attack.
type ActionKind int

const (
	ActionMove ActionKind = iota + 1
	ActionAttack
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionAttack:
		return "attack"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Amount is a movement distance or attack range: either an explicit value
// or a request for the engine to roll one.
type Amount struct {
	n    int
	auto bool
}

// Exactly requests an explicit distance or range.
func Exactly(n int) Amount { return Amount{n: n} }

// AutoRoll requests a random legal distance or range.
func AutoRoll() Amount { return Amount{auto: true} }

// IsAuto reports whether the amount is a roll request.
func (a Amount) IsAuto() bool { return a.auto }

// Value returns the explicit amount. It is zero for AutoRoll.
func (a Amount) Value() int { return a.n }

func (a Amount) String() string {
	if a.auto {
		return "auto"
	}
	return strconv.Itoa(a.n)
}

// ParseAmount accepts "auto" or a decimal integer.
func ParseAmount(s string) (Amount, error) {
	if strings.EqualFold(s, "auto") {
		return AutoRoll(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Amount{}, fmt.Errorf("amount must be a number or auto: %w", err)
	}
	return Exactly(n), nil
}

// MarshalText encodes the amount as "auto" or its decimal value.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (a *Amount) UnmarshalText(b []byte) error {
	parsed, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Intent names one unit and one action for it.
type Intent struct {
	UnitID    int        `json:"unit_id"`
	Kind      ActionKind `json:"kind"`
	Direction Direction  `json:"direction"`
	Amount    Amount     `json:"amount"`
}

// MoveIntent builds a move intent.
func MoveIntent(unitID int, d Direction, a Amount) Intent {
	return Intent{UnitID: unitID, Kind: ActionMove, Direction: d, Amount: a}
}

// AttackIntent builds an attack intent.
func AttackIntent(unitID int, d Direction, a Amount) Intent {
	return Intent{UnitID: unitID, Kind: ActionAttack, Direction: d, Amount: a}
}

func (in Intent) String() string {
	return fmt.Sprintf("unit %d %s %s %s", in.UnitID, in.Kind, in.Direction, in.Amount)
}

// Reason classifies why an action did not succeed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidDirection
	ReasonOutOfBounds
	ReasonCapacityExceeded
	ReasonBlockedByOpponent
	ReasonDestinationFull
	ReasonInvalidRange
	ReasonLineOfSightBlocked
	ReasonNoValidTarget
	ReasonUnknownUnit
	ReasonWrongTeam
	ReasonUnitEliminated
	ReasonInvalidAction
	ReasonMissed
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidDirection:
		return "invalid_direction"
	case ReasonOutOfBounds:
		return "out_of_bounds"
	case ReasonCapacityExceeded:
		return "capacity_exceeded"
	case ReasonBlockedByOpponent:
		return "blocked_by_opponent"
	case ReasonDestinationFull:
		return "destination_full"
	case ReasonInvalidRange:
		return "invalid_range"
	case ReasonLineOfSightBlocked:
		return "line_of_sight_blocked"
	case ReasonNoValidTarget:
		return "no_valid_target"
	case ReasonUnknownUnit:
		return "unknown_unit"
	case ReasonWrongTeam:
		return "wrong_team"
	case ReasonUnitEliminated:
		return "unit_eliminated"
	case ReasonInvalidAction:
		return "invalid_action"
	case ReasonMissed:
		return "missed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the reason as its snake_case name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// HitKind is the tier an attack roll landed in.
type HitKind int

const (
	HitNone HitKind = iota
	HitHead
	HitTorso
	HitExtremity
	HitMiss
)

func (h HitKind) String() string {
	switch h {
	case HitHead:
		return "head"
	case HitTorso:
		return "torso"
	case HitExtremity:
		return "extremity"
	case HitMiss:
		return "miss"
	}
	return "none"
}

// MarshalText encodes the hit tier by name.
func (h HitKind) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// ActionOutcome is the typed result of resolving one intent.
type ActionOutcome struct {
	Intent  Intent `json:"intent"`
	Team    Team   `json:"team"`
	Success bool   `json:"success"`
	Reason  Reason `json:"reason"`

	// Amount actually used after any roll.
	Resolved int `json:"resolved"`

	From Position `json:"from"`
	To   Position `json:"to"`

	Hit           HitKind `json:"hit"`
	TargetID      int     `json:"target_id"`
	ExtremityHits int     `json:"extremity_hits"`
	Eliminated    []int   `json:"eliminated,omitempty"`
}

// Rejected reports whether validation refused the action. Board and unit
// state are unchanged apart from the acting unit's acted flag.
func (o ActionOutcome) Rejected() bool {
	return !o.Success && o.Reason != ReasonMissed
}

// Carried reports whether the action was carried out, a miss included.
func (o ActionOutcome) Carried() bool {
	return !o.Rejected()
}

// Describe returns a human-readable description of the outcome.
func (o ActionOutcome) Describe() string {
	id := o.Intent.UnitID
	switch o.Reason {
	case ReasonNone:
	case ReasonMissed:
		return fmt.Sprintf("Unit %d missed the shot.", id)
	case ReasonCapacityExceeded:
		return fmt.Sprintf("Unit %d cannot move %d squares.", id, o.Resolved)
	case ReasonInvalidDirection:
		return fmt.Sprintf("Invalid direction %s.", o.Intent.Direction)
	case ReasonOutOfBounds:
		if o.Intent.Kind == ActionAttack {
			return "Attack target is out of bounds."
		}
		return "Movement would go out of bounds."
	case ReasonBlockedByOpponent:
		return "Cannot move into or through a cell occupied by opponent units."
	case ReasonDestinationFull:
		return fmt.Sprintf("Destination cell is full (max %d units per cell).", MaxUnitsPerCell)
	case ReasonInvalidRange:
		return fmt.Sprintf("Invalid attack range %d for unit %d.", o.Resolved, id)
	case ReasonLineOfSightBlocked:
		return "Line of sight blocked by units in intermediate squares."
	case ReasonNoValidTarget:
		return "No valid targets in range."
	case ReasonUnknownUnit:
		return fmt.Sprintf("There is no unit %d.", id)
	case ReasonWrongTeam:
		return fmt.Sprintf("Unit %d does not belong to %s.", id, o.Team)
	case ReasonUnitEliminated:
		return fmt.Sprintf("Unit %d is eliminated.", id)
	case ReasonInvalidAction:
		return "Invalid action."
	default:
		return "Action failed: " + o.Reason.String() + "."
	}

	if o.Intent.Kind == ActionMove {
		return fmt.Sprintf("Unit %d moved to %s.", id, o.To)
	}
	switch o.Hit {
	case HitHead:
		return fmt.Sprintf("Unit %d hit opponent's head and is eliminated due to rule violation!", id)
	case HitTorso:
		return fmt.Sprintf("Unit %d hit opponent unit %d's torso! Unit %d is eliminated!", id, o.TargetID, o.TargetID)
	case HitExtremity:
		msg := fmt.Sprintf("Unit %d hit opponent unit %d's extremity! (%d/%d hits)", id, o.TargetID, o.ExtremityHits, MaxExtremityHits)
		if o.ExtremityHits >= MaxExtremityHits {
			msg += fmt.Sprintf(" Unit %d received %d hits to extremities and is eliminated!", o.TargetID, MaxExtremityHits)
		}
		return msg
	}
	return fmt.Sprintf("Unit %d acted.", id)
}
