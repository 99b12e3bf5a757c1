package ctf

import (
	"errors"
	"fmt"
	"sort"
)

// MaxUnitsPerCell is the stacking cap for a movement destination.
const MaxUnitsPerCell = 4

// Cell is one board square. Units are kept ordered by ID.
type Cell struct {
	units []*Unit
}

func (c *Cell) add(u *Unit) {
	c.units = append(c.units, u)
	sort.Slice(c.units, func(i, j int) bool { return c.units[i].ID < c.units[j].ID })
}

func (c *Cell) remove(u *Unit) bool {
	for i, other := range c.units {
		if other == u {
			c.units = append(c.units[:i], c.units[i+1:]...)
			return true
		}
	}
	return false
}

// Units returns a copy of the units standing on the cell, in ID order.
func (c *Cell) Units() []*Unit {
	out := make([]*Unit, len(c.units))
	copy(out, c.units)
	return out
}

// Len returns the number of units on the cell.
func (c *Cell) Len() int { return len(c.units) }

// Board is the rows x cols grid plus both flag coordinates.
type Board struct {
	rows, cols int
	cells      [][]Cell
	flags      map[Team]Position
}

var errOffBoard = errors.New("position is off the board")

// NewBoard creates an empty board. Both flags must be on the board.
func NewBoard(rows, cols int, flagA, flagB Position) (*Board, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: board must be at least 1x1, got %dx%d", ErrInvalidSetup, rows, cols)
	}
	b := &Board{
		rows:  rows,
		cols:  cols,
		cells: make([][]Cell, rows),
		flags: map[Team]Position{TeamA: flagA, TeamB: flagB},
	}
	for y := range b.cells {
		b.cells[y] = make([]Cell, cols)
	}
	for team, f := range b.flags {
		if !b.InBounds(f.X, f.Y) {
			return nil, fmt.Errorf("%w: flag of %s at %s is off the board", ErrInvalidSetup, team, f)
		}
	}
	return b, nil
}

// Rows returns the number of rows.
func (b *Board) Rows() int { return b.rows }

// Cols returns the number of columns.
func (b *Board) Cols() int { return b.cols }

// FlagOf returns the flag coordinate of a team.
func (b *Board) FlagOf(team Team) Position { return b.flags[team] }

// InBounds reports whether (x, y) is on the board.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && y < b.rows && x < b.cols
}

// Cell returns the cell at (x, y), or nil when off the board.
func (b *Board) Cell(x, y int) *Cell {
	if !b.InBounds(x, y) {
		return nil
	}
	return &b.cells[y][x]
}

// UnitsAt returns the units on (x, y) in ID order. Off-board squares are empty.
func (b *Board) UnitsAt(x, y int) []*Unit {
	c := b.Cell(x, y)
	if c == nil {
		return nil
	}
	return c.Units()
}

// Place puts an unplaced unit on (x, y). The first placement also fixes the unit's start position.
func (b *Board) Place(u *Unit, x, y int) error {
	if u.Pos != Unplaced {
		return fmt.Errorf("unit %d already placed at %s", u.ID, u.Pos)
	}
	c := b.Cell(x, y)
	if c == nil {
		return fmt.Errorf("place unit %d at (%d, %d): %w", u.ID, x, y, errOffBoard)
	}
	c.add(u)
	u.Pos = Position{X: x, Y: y}
	if u.Start == Unplaced {
		u.Start = u.Pos
	}
	return nil
}

// Remove takes a unit off its cell and marks it unplaced.
func (b *Board) Remove(u *Unit) {
	if c := b.Cell(u.Pos.X, u.Pos.Y); c != nil {
		c.remove(u)
	}
	u.Pos = Unplaced
}

// relocate moves a placed unit to an on-board destination through Remove and Place.
func (b *Board) relocate(u *Unit, to Position) {
	b.Remove(u)
	if err := b.Place(u, to.X, to.Y); err != nil {
		// Callers validate the destination first.
		panic(err)
	}
}
