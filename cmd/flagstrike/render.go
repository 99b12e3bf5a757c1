package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/freeeve/flagstrike/pkg/ctf"
)

const cellWidth = 6

// cellText shows a flag as "A^"/"B^" and active units as one team letter
// each, e.g. "A^ab".
func cellText(gs *ctf.GameState, x, y int) string {
	var sb strings.Builder
	for _, team := range ctf.AllTeams() {
		if gs.Board.FlagOf(team) == (ctf.Position{X: x, Y: y}) {
			sb.WriteString(strings.ToUpper(string(team)) + "^")
		}
	}
	for _, u := range gs.Board.UnitsAt(x, y) {
		if u.Active() {
			sb.WriteString(string(u.Team))
		}
	}
	if sb.Len() == 0 {
		return "."
	}
	return sb.String()
}

// renderBoard prints the grid followed by each team's roster.
func renderBoard(w io.Writer, gs *ctf.GameState) {
	rows, cols := gs.Board.Rows(), gs.Board.Cols()

	fmt.Fprint(w, "    ")
	for x := 0; x < cols; x++ {
		fmt.Fprintf(w, "%-*d", cellWidth, x)
	}
	fmt.Fprintln(w)
	for y := 0; y < rows; y++ {
		fmt.Fprintf(w, "%3d ", y)
		for x := 0; x < cols; x++ {
			fmt.Fprintf(w, "%-*s", cellWidth, cellText(gs, x, y))
		}
		fmt.Fprintln(w)
	}

	for _, team := range ctf.AllTeams() {
		fmt.Fprintf(w, "\n%s (flag %s):\n", team, gs.Board.FlagOf(team))
		for _, u := range gs.UnitsOf(team) {
			status := "at " + u.Pos.String()
			if u.Eliminated {
				status = "eliminated: " + u.EliminationReason
			}
			fmt.Fprintf(w, "  %s %s\n", u.Label(), status)
		}
	}
}

// renderLog prints the last n log entries, or all when n <= 0.
func renderLog(w io.Writer, gs *ctf.GameState, n int) {
	entries := gs.Log()
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\n", e.Message)
	}
}
