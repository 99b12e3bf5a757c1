package ctf

// fastDoubleStepChance is the chance an auto-rolled fast move covers two squares.
const fastDoubleStepChance = 0.5

// rollDistance turns an AutoRoll into a concrete distance. Explicit amounts pass through.
func (gs *GameState) rollDistance(u *Unit, a Amount) int {
	if !a.IsAuto() {
		return a.Value()
	}
	if u.Speed == Fast {
		if gs.rng.Float64() <= fastDoubleStepChance {
			return 2
		}
	}
	return 1
}

// Move moves u up to its capacity in direction d. Every call marks the unit as
// having acted; a rejected move leaves the board untouched.
func (gs *GameState) Move(u *Unit, d Direction, a Amount) ActionOutcome {
	u.ActedThisRound = true
	out := ActionOutcome{
		Intent:   MoveIntent(u.ID, d, a),
		Team:     u.Team,
		From:     u.Pos,
		To:       u.Pos,
		TargetID: -1,
	}
	if u.Eliminated {
		out.Reason = ReasonUnitEliminated
		return out
	}

	distance := gs.rollDistance(u, a)
	out.Resolved = distance
	if distance < 1 || distance > u.MaxMovement() {
		out.Reason = ReasonCapacityExceeded
		return out
	}

	delta, ok := d.Delta()
	if !ok {
		out.Reason = ReasonInvalidDirection
		return out
	}

	if reason := gs.checkPath(u, delta, distance); reason != ReasonNone {
		out.Reason = reason
		return out
	}

	dest := u.Pos.Add(delta, distance)
	gs.Board.relocate(u, dest)
	out.Success = true
	out.To = dest
	return out
}

// checkPath walks the squares from distance 1 to distance. Opposing units
// block every square on the path; the cell cap applies to the last one only.
func (gs *GameState) checkPath(u *Unit, delta Position, distance int) Reason {
	for i := 1; i <= distance; i++ {
		p := u.Pos.Add(delta, i)
		c := gs.Board.Cell(p.X, p.Y)
		if c == nil {
			return ReasonOutOfBounds
		}
		occupants := 0
		for _, other := range c.units {
			if !gs.blocks(other) {
				continue
			}
			if other.Team != u.Team {
				return ReasonBlockedByOpponent
			}
			occupants++
		}
		if i == distance && occupants >= MaxUnitsPerCell {
			return ReasonDestinationFull
		}
	}
	return ReasonNone
}
