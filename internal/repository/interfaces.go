package repository

import (
	"context"

	"github.com/freeeve/flagstrike/internal/model"
)

// MatchRepository archives finished matches. In-progress games are never stored.
type MatchRepository interface {
	SaveMatch(ctx context.Context, m *model.MatchRecord) error
	FindMatch(ctx context.Context, id string) (*model.MatchRecord, error)
	ListRecent(ctx context.Context, limit int) ([]model.MatchRecord, error)
}

// Leaderboard keeps per-strategy win tallies (Redis).
type Leaderboard interface {
	RecordResult(ctx context.Context, strategy string, won bool, condition string) error
	Standings(ctx context.Context) ([]model.Standing, error)
}
