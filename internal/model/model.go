package model

import (
	"encoding/json"
	"time"
)

// Side labels a team's controller in a finished match.
const SideHuman = "human"

// MatchRecord is the archived summary of a finished match.
type MatchRecord struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Rows         int             `json:"rows"`
	Cols         int             `json:"cols"`
	UnitsPerTeam int             `json:"units_per_team"`
	Seed         int64           `json:"seed"`
	FirstTeam    string          `json:"first_team"`
	SideA        string          `json:"side_a"` // strategy name or "human"
	SideB        string          `json:"side_b"`
	Winner       string          `json:"winner,omitempty"` // "" for a draw
	Condition    string          `json:"condition,omitempty"`
	Rounds       int             `json:"rounds"`
	SurvivorsA   int             `json:"survivors_a"`
	SurvivorsB   int             `json:"survivors_b"`
	Log          json.RawMessage `json:"log"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Draw reports whether the match ended without a winner.
func (m *MatchRecord) Draw() bool { return m.Winner == "" }

// SideOf returns the controller label of the given team ("a" or "b").
func (m *MatchRecord) SideOf(team string) string {
	if team == "a" {
		return m.SideA
	}
	return m.SideB
}

// Standing is one strategy's row in the leaderboard.
type Standing struct {
	Strategy   string         `json:"strategy"`
	Games      int64          `json:"games"`
	Wins       int64          `json:"wins"`
	Conditions map[string]int `json:"conditions,omitempty"`
}

// WinRate returns wins over games played, or zero before any game.
func (s Standing) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Games)
}
