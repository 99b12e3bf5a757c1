package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/model"
	"github.com/freeeve/flagstrike/internal/service"
)

// SnapshotSource returns the live view of a running match.
type SnapshotSource interface {
	Snapshot(id string) (*service.Snapshot, bool)
}

// MatchSource is everything the read-only HTTP API needs. It is satisfied
// by *service.MatchService.
type MatchSource interface {
	SnapshotSource
	LiveMatches() []string
	ArchivedMatch(ctx context.Context, id string) (*model.MatchRecord, error)
	RecentMatches(ctx context.Context, limit int) ([]model.MatchRecord, error)
	Standings(ctx context.Context) ([]model.Standing, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// MatchHandler serves match snapshots, the archive and the leaderboard.
type MatchHandler struct {
	src MatchSource
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(src MatchSource) *MatchHandler {
	return &MatchHandler{src: src}
}

// GetMatch handles GET /matches/{id}. A live match returns its snapshot; a
// finished match that has left memory is served from the archive.
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	if snap, ok := h.src.Snapshot(matchID); ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}

	rec, err := h.src.ArchivedMatch(r.Context(), matchID)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to load archived match")
		writeError(w, http.StatusInternalServerError, "failed to load match")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// LiveMatches handles GET /live, the IDs of matches that can be watched now.
func (h *MatchHandler) LiveMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"matches": h.src.LiveMatches()})
}

// ListMatches handles GET /matches?limit=N, newest archived matches first.
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	matches, err := h.src.RecentMatches(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list matches")
		writeError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	if matches == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// Standings handles GET /standings.
func (h *MatchHandler) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.src.Standings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load standings")
		return
	}
	if standings == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	type row struct {
		model.Standing
		WinRate float64 `json:"win_rate"`
	}
	rows := make([]row, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, row{Standing: s, WinRate: s.WinRate()})
	}
	writeJSON(w, http.StatusOK, rows)
}

// Healthz handles GET /healthz.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Routes builds the spectator server's mux.
func Routes(src MatchSource, hub *Hub) *http.ServeMux {
	matchHandler := NewMatchHandler(src)
	wsHandler := NewWSHandler(hub, src)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", Healthz)
	mux.HandleFunc("GET /live", matchHandler.LiveMatches)
	mux.HandleFunc("GET /matches", matchHandler.ListMatches)
	mux.HandleFunc("GET /matches/{id}", matchHandler.GetMatch)
	mux.HandleFunc("GET /standings", matchHandler.Standings)
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)
	return mux
}
