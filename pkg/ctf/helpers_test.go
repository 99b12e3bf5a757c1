package ctf

import (
	"testing"
	"time"
)

// scriptedRand replays a fixed sequence of rolls, cycling when exhausted.
type scriptedRand struct {
	vals  []float64
	calls int
}

func rolls(vals ...float64) *scriptedRand {
	return &scriptedRand{vals: vals}
}

func (r *scriptedRand) Float64() float64 {
	if len(r.vals) == 0 {
		r.calls++
		return 0
	}
	v := r.vals[r.calls%len(r.vals)]
	r.calls++
	return v
}

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestGame builds an empty rows x cols game with flags in opposite corners:
// A at (0,0), B at (cols-1, rows-1).
func newTestGame(t *testing.T, rows, cols int, rng RandSource) *GameState {
	t.Helper()
	b, err := NewBoard(rows, cols, Position{0, 0}, Position{cols - 1, rows - 1})
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	if rng == nil {
		rng = rolls(0.99)
	}
	gs := NewEmptyGame(b, rng)
	gs.Now = func() time.Time { return testEpoch }
	return gs
}

func addUnit(t *testing.T, gs *GameState, team Team, speed SpeedClass, skill SkillClass, x, y int) *Unit {
	t.Helper()
	u, err := gs.AddUnit(team, speed, skill, Position{x, y})
	if err != nil {
		t.Fatalf("AddUnit(%s, %d, %d): %v", team, x, y, err)
	}
	return u
}

func idsAt(gs *GameState, x, y int) []int {
	var ids []int
	for _, u := range gs.Board.UnitsAt(x, y) {
		ids = append(ids, u.ID)
	}
	return ids
}

// snapshot captures every unit's position and every cell's membership.
type snapshot struct {
	positions map[int]Position
	cells     map[Position][]int
	hits      map[int]int
	elim      map[int]bool
}

func takeSnapshot(gs *GameState) snapshot {
	s := snapshot{
		positions: map[int]Position{},
		cells:     map[Position][]int{},
		hits:      map[int]int{},
		elim:      map[int]bool{},
	}
	for _, u := range gs.Units() {
		s.positions[u.ID] = u.Pos
		s.hits[u.ID] = u.ExtremityHits
		s.elim[u.ID] = u.Eliminated
	}
	for y := 0; y < gs.Board.Rows(); y++ {
		for x := 0; x < gs.Board.Cols(); x++ {
			if ids := idsAt(gs, x, y); len(ids) > 0 {
				s.cells[Position{x, y}] = ids
			}
		}
	}
	return s
}

func (s snapshot) equal(o snapshot) bool {
	if len(s.positions) != len(o.positions) || len(s.cells) != len(o.cells) {
		return false
	}
	for id, p := range s.positions {
		if o.positions[id] != p || o.hits[id] != s.hits[id] || o.elim[id] != s.elim[id] {
			return false
		}
	}
	for p, ids := range s.cells {
		other := o.cells[p]
		if len(other) != len(ids) {
			return false
		}
		for i := range ids {
			if ids[i] != other[i] {
				return false
			}
		}
	}
	return true
}

// assertConsistent checks that every placed unit appears in exactly one cell, its own.
func assertConsistent(t *testing.T, gs *GameState) {
	t.Helper()
	seen := map[int]int{}
	for y := 0; y < gs.Board.Rows(); y++ {
		for x := 0; x < gs.Board.Cols(); x++ {
			for _, u := range gs.Board.UnitsAt(x, y) {
				seen[u.ID]++
				if u.Pos != (Position{x, y}) {
					t.Errorf("unit %d listed at (%d, %d) but positioned at %s", u.ID, x, y, u.Pos)
				}
			}
		}
	}
	for _, u := range gs.Units() {
		if seen[u.ID] != 1 {
			t.Errorf("unit %d appears in %d cells, want 1", u.ID, seen[u.ID])
		}
	}
}
