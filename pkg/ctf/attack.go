package ctf

// expertShortRangeChance is the chance an auto-rolled expert attack uses range 1.
const expertShortRangeChance = 0.75

// ClassifyHit maps a uniform roll in [0,1) to a hit tier. The cumulative
// thresholds are checked in the fixed order head, torso, extremity.
func ClassifyHit(p HitProfile, roll float64) HitKind {
	switch {
	case roll < p.Head:
		return HitHead
	case roll < p.Head+p.Torso:
		return HitTorso
	case roll < p.Head+p.Torso+p.Extremity:
		return HitExtremity
	}
	return HitMiss
}

// rollRange turns an AutoRoll into a concrete attack range.
func (gs *GameState) rollRange(u *Unit, a Amount) int {
	if !a.IsAuto() {
		return a.Value()
	}
	if u.Skill == Expert {
		if gs.rng.Float64() <= expertShortRangeChance {
			return 1
		}
		return 2
	}
	return 1
}

// Attack fires from u along d. At most one target is resolved per call: the
// first live opposing unit, in cell order, on the target square.
func (gs *GameState) Attack(u *Unit, d Direction, a Amount) ActionOutcome {
	u.ActedThisRound = true
	out := ActionOutcome{
		Intent:   AttackIntent(u.ID, d, a),
		Team:     u.Team,
		From:     u.Pos,
		TargetID: -1,
	}
	if u.Eliminated {
		out.Reason = ReasonUnitEliminated
		return out
	}

	delta, ok := d.Delta()
	if !ok {
		out.Reason = ReasonInvalidDirection
		return out
	}

	reach := gs.rollRange(u, a)
	out.Resolved = reach
	if reach < 1 || reach > u.AttackRange() {
		out.Reason = ReasonInvalidRange
		return out
	}

	target := u.Pos.Add(delta, reach)
	out.To = target
	if !gs.Board.InBounds(target.X, target.Y) {
		out.Reason = ReasonOutOfBounds
		return out
	}

	for i := 1; i < reach; i++ {
		p := u.Pos.Add(delta, i)
		for _, other := range gs.Board.cells[p.Y][p.X].units {
			if gs.blocks(other) {
				out.Reason = ReasonLineOfSightBlocked
				return out
			}
		}
	}

	victim := gs.firstTarget(u.Team, target)
	if victim == nil {
		out.Reason = ReasonNoValidTarget
		return out
	}
	out.TargetID = victim.ID

	out.Hit = ClassifyHit(u.Skill.Profile(), gs.rng.Float64())
	switch out.Hit {
	case HitHead:
		u.eliminate(ReasonHeadshotPenalty)
		out.Eliminated = []int{u.ID}
	case HitTorso:
		victim.eliminate(ReasonTorsoHit)
		out.Eliminated = []int{victim.ID}
	case HitExtremity:
		victim.ExtremityHits++
		if victim.ExtremityHits >= MaxExtremityHits {
			victim.eliminate(ReasonExtremityHits)
			out.Eliminated = []int{victim.ID}
		}
	case HitMiss:
		out.Reason = ReasonMissed
		out.ExtremityHits = victim.ExtremityHits
		return out
	}
	out.ExtremityHits = victim.ExtremityHits
	out.Success = true
	return out
}

// firstTarget returns the first non-eliminated unit not on team at p.
func (gs *GameState) firstTarget(team Team, p Position) *Unit {
	for _, other := range gs.Board.cells[p.Y][p.X].units {
		if other.Team != team && !other.Eliminated {
			return other
		}
	}
	return nil
}
