package service

import (
	"github.com/freeeve/flagstrike/pkg/ctf"
)

// Snapshot is the spectator view of a match.
type Snapshot struct {
	ID     string              `json:"id"`
	Name   string              `json:"name,omitempty"`
	Round  int                 `json:"round"`
	State  string              `json:"state"`
	Active ctf.Team            `json:"active,omitempty"`
	Sides  map[ctf.Team]string `json:"sides"`
	Board  BoardView           `json:"board"`
	Units  []UnitView          `json:"units"`
	Log    []ctf.LogEntry      `json:"log"`
	Result *ctf.Result         `json:"result,omitempty"`
	Draw   bool                `json:"draw,omitempty"`
}

// BoardView describes the board dimensions and flags.
type BoardView struct {
	Rows  int          `json:"rows"`
	Cols  int          `json:"cols"`
	FlagA ctf.Position `json:"flag_a"`
	FlagB ctf.Position `json:"flag_b"`
}

// UnitView is one unit as spectators see it.
type UnitView struct {
	ID                int          `json:"id"`
	Team              ctf.Team     `json:"team"`
	Pos               ctf.Position `json:"pos"`
	Speed             string       `json:"speed"`
	Skill             string       `json:"skill"`
	ExtremityHits     int          `json:"extremity_hits"`
	Eliminated        bool         `json:"eliminated"`
	EliminationReason string       `json:"elimination_reason,omitempty"`
}

// Snapshot returns the current view of a match.
func (s *MatchService) Snapshot(id string) (*Snapshot, bool) {
	m, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshotOf(m), true
}

// snapshotOf must be called with m.mu held or before m is shared.
func snapshotOf(m *Match) *Snapshot {
	gs := m.ctrl.Game()
	snap := &Snapshot{
		ID:    m.ID,
		Name:  m.Name,
		Round: m.ctrl.CurrentRound(),
		State: m.ctrl.State().String(),
		Sides: map[ctf.Team]string{ctf.TeamA: m.sides[ctf.TeamA], ctf.TeamB: m.sides[ctf.TeamB]},
		Board: BoardView{
			Rows:  gs.Board.Rows(),
			Cols:  gs.Board.Cols(),
			FlagA: gs.Board.FlagOf(ctf.TeamA),
			FlagB: gs.Board.FlagOf(ctf.TeamB),
		},
		Log:  gs.Log(),
		Draw: m.draw,
	}
	if m.ctrl.State() == ctf.AwaitingHumanAction || m.ctrl.State() == ctf.AwaitingOpponentAction {
		snap.Active = m.ctrl.ActiveTeam()
	}
	if res, ok := m.ctrl.Result(); ok {
		snap.Result = &res
	}
	for _, u := range gs.Units() {
		snap.Units = append(snap.Units, UnitView{
			ID:                u.ID,
			Team:              u.Team,
			Pos:               u.Pos,
			Speed:             u.Speed.String(),
			Skill:             u.Skill.String(),
			ExtremityHits:     u.ExtremityHits,
			Eliminated:        u.Eliminated,
			EliminationReason: u.EliminationReason,
		})
	}
	return snap
}
