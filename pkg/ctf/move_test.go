package ctf

import "testing"

func TestMove_AllDirections(t *testing.T) {
	tests := []struct {
		dir  Direction
		want Position
	}{
		{Up, Position{2, 0}},
		{Down, Position{2, 4}},
		{Left, Position{0, 2}},
		{Right, Position{4, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			gs := newTestGame(t, 5, 5, nil)
			u := addUnit(t, gs, TeamA, Fast, Novice, 2, 2)
			out := gs.Move(u, tt.dir, Exactly(2))
			if !out.Success {
				t.Fatalf("move failed: %s", out.Reason)
			}
			if u.Pos != tt.want || out.To != tt.want {
				t.Errorf("unit at %s (outcome %s), want %s", u.Pos, out.To, tt.want)
			}
			if out.From != (Position{2, 2}) {
				t.Errorf("from = %s, want (2, 2)", out.From)
			}
			if len(gs.Board.UnitsAt(2, 2)) != 0 {
				t.Error("origin cell should be empty after move")
			}
			if !u.ActedThisRound {
				t.Error("acted flag not set")
			}
			assertConsistent(t, gs)
		})
	}
}

func TestMove_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, gs *GameState) *Unit
		dir    Direction
		amount Amount
		want   Reason
	}{
		{
			name: "slow unit two squares",
			setup: func(t *testing.T, gs *GameState) *Unit {
				return addUnit(t, gs, TeamA, Slow, Novice, 0, 0)
			},
			dir: Right, amount: Exactly(2), want: ReasonCapacityExceeded,
		},
		{
			name: "fast unit three squares",
			setup: func(t *testing.T, gs *GameState) *Unit {
				return addUnit(t, gs, TeamA, Fast, Novice, 0, 0)
			},
			dir: Right, amount: Exactly(3), want: ReasonCapacityExceeded,
		},
		{
			name: "zero squares",
			setup: func(t *testing.T, gs *GameState) *Unit {
				return addUnit(t, gs, TeamA, Fast, Novice, 0, 0)
			},
			dir: Right, amount: Exactly(0), want: ReasonCapacityExceeded,
		},
		{
			name: "invalid direction",
			setup: func(t *testing.T, gs *GameState) *Unit {
				return addUnit(t, gs, TeamA, Fast, Novice, 1, 1)
			},
			dir: Direction(7), amount: Exactly(1), want: ReasonInvalidDirection,
		},
		{
			name: "off the top edge",
			setup: func(t *testing.T, gs *GameState) *Unit {
				return addUnit(t, gs, TeamA, Fast, Novice, 1, 0)
			},
			dir: Up, amount: Exactly(1), want: ReasonOutOfBounds,
		},
		{
			name: "second square off the board",
			setup: func(t *testing.T, gs *GameState) *Unit {
				return addUnit(t, gs, TeamA, Fast, Novice, 2, 1)
			},
			dir: Right, amount: Exactly(2), want: ReasonOutOfBounds,
		},
		{
			name: "opponent on destination",
			setup: func(t *testing.T, gs *GameState) *Unit {
				u := addUnit(t, gs, TeamA, Fast, Novice, 0, 1)
				addUnit(t, gs, TeamB, Slow, Novice, 1, 1)
				return u
			},
			dir: Right, amount: Exactly(1), want: ReasonBlockedByOpponent,
		},
		{
			name: "opponent on intermediate square",
			setup: func(t *testing.T, gs *GameState) *Unit {
				u := addUnit(t, gs, TeamA, Fast, Novice, 0, 1)
				addUnit(t, gs, TeamB, Slow, Novice, 1, 1)
				return u
			},
			dir: Right, amount: Exactly(2), want: ReasonBlockedByOpponent,
		},
		{
			name: "destination holds four friends",
			setup: func(t *testing.T, gs *GameState) *Unit {
				u := addUnit(t, gs, TeamA, Fast, Novice, 0, 1)
				for i := 0; i < MaxUnitsPerCell; i++ {
					addUnit(t, gs, TeamA, Slow, Novice, 2, 1)
				}
				return u
			},
			dir: Right, amount: Exactly(2), want: ReasonDestinationFull,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newTestGame(t, 4, 4, nil)
			u := tt.setup(t, gs)
			before := takeSnapshot(gs)

			out := gs.Move(u, tt.dir, tt.amount)
			if out.Success {
				t.Fatal("expected the move to be rejected")
			}
			if out.Reason != tt.want {
				t.Errorf("reason = %s, want %s", out.Reason, tt.want)
			}
			if !out.Rejected() {
				t.Error("outcome should report Rejected")
			}
			if !takeSnapshot(gs).equal(before) {
				t.Error("rejected move mutated the board")
			}
			if !u.ActedThisRound {
				t.Error("acted flag should be set even on failure")
			}
		})
	}
}

func TestMove_PassesThroughFullCell(t *testing.T) {
	gs := newTestGame(t, 3, 4, nil)
	u := addUnit(t, gs, TeamA, Fast, Novice, 0, 1)
	for i := 0; i < MaxUnitsPerCell; i++ {
		addUnit(t, gs, TeamA, Slow, Novice, 1, 1)
	}

	out := gs.Move(u, Right, Exactly(2))
	if !out.Success {
		t.Fatalf("move through a full friendly cell failed: %s", out.Reason)
	}
	if u.Pos != (Position{2, 1}) {
		t.Errorf("unit at %s, want (2, 1)", u.Pos)
	}
	assertConsistent(t, gs)
}

func TestMove_JoinsFriendsUpToCap(t *testing.T) {
	gs := newTestGame(t, 3, 3, nil)
	u := addUnit(t, gs, TeamA, Slow, Novice, 0, 1)
	for i := 0; i < MaxUnitsPerCell-1; i++ {
		addUnit(t, gs, TeamA, Slow, Novice, 1, 1)
	}

	out := gs.Move(u, Right, Exactly(1))
	if !out.Success {
		t.Fatalf("move failed: %s", out.Reason)
	}
	if n := len(gs.Board.UnitsAt(1, 1)); n != MaxUnitsPerCell {
		t.Errorf("cell holds %d units, want %d", n, MaxUnitsPerCell)
	}
}

func TestMove_EliminatedOpponentsIgnoredByDefault(t *testing.T) {
	gs := newTestGame(t, 3, 3, nil)
	u := addUnit(t, gs, TeamA, Fast, Novice, 0, 1)
	dead := addUnit(t, gs, TeamB, Slow, Novice, 1, 1)
	dead.eliminate(ReasonTorsoHit)

	out := gs.Move(u, Right, Exactly(2))
	if !out.Success {
		t.Fatalf("eliminated opponent should not block: %s", out.Reason)
	}
}

func TestMove_EliminatedOpponentsBlockWhenConfigured(t *testing.T) {
	gs := newTestGame(t, 3, 3, nil)
	gs.Rules.EliminatedBlock = true
	u := addUnit(t, gs, TeamA, Fast, Novice, 0, 1)
	dead := addUnit(t, gs, TeamB, Slow, Novice, 1, 1)
	dead.eliminate(ReasonTorsoHit)

	out := gs.Move(u, Right, Exactly(2))
	if out.Reason != ReasonBlockedByOpponent {
		t.Fatalf("reason = %s, want blocked_by_opponent", out.Reason)
	}
}

func TestMove_AutoRoll(t *testing.T) {
	tests := []struct {
		name  string
		speed SpeedClass
		roll  float64
		want  int
	}{
		{"fast low roll", Fast, 0.1, 2},
		{"fast boundary", Fast, 0.5, 2},
		{"fast high roll", Fast, 0.51, 1},
		{"slow", Slow, 0.1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newTestGame(t, 4, 4, rolls(tt.roll))
			u := addUnit(t, gs, TeamA, tt.speed, Novice, 0, 0)
			out := gs.Move(u, Right, AutoRoll())
			if !out.Success {
				t.Fatalf("move failed: %s", out.Reason)
			}
			if out.Resolved != tt.want {
				t.Errorf("resolved distance = %d, want %d", out.Resolved, tt.want)
			}
			if u.Pos != (Position{tt.want, 0}) {
				t.Errorf("unit at %s, want (%d, 0)", u.Pos, tt.want)
			}
		})
	}
}

func TestMove_SlowAutoRollDrawsNothing(t *testing.T) {
	rng := rolls(0.1)
	gs := newTestGame(t, 3, 3, rng)
	u := addUnit(t, gs, TeamA, Slow, Novice, 0, 0)
	gs.Move(u, Right, AutoRoll())
	if rng.calls != 0 {
		t.Errorf("slow auto-roll consumed %d rolls, want 0", rng.calls)
	}
}
