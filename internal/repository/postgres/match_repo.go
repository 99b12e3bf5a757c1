package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/flagstrike/internal/model"
)

const matchColumns = `id, name, board_rows, board_cols, units_per_team, seed, first_team, side_a, side_b,
	winner, condition, rounds, survivors_a, survivors_b, log, started_at, finished_at`

// MatchRepo archives finished matches.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

// SaveMatch inserts a finished match. Saving the same ID twice overwrites the
// earlier row.
func (r *MatchRepo) SaveMatch(ctx context.Context, m *model.MatchRecord) error {
	logJSON := []byte(m.Log)
	if len(logJSON) == 0 {
		logJSON = []byte("[]")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (id) DO UPDATE SET
		   winner = EXCLUDED.winner, condition = EXCLUDED.condition, rounds = EXCLUDED.rounds,
		   survivors_a = EXCLUDED.survivors_a, survivors_b = EXCLUDED.survivors_b,
		   log = EXCLUDED.log, finished_at = EXCLUDED.finished_at`,
		m.ID, m.Name, m.Rows, m.Cols, m.UnitsPerTeam, m.Seed, m.FirstTeam, m.SideA, m.SideB,
		m.Winner, m.Condition, m.Rounds, m.SurvivorsA, m.SurvivorsB, logJSON, m.StartedAt, m.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

// FindMatch returns a match by ID, or nil if it does not exist.
func (r *MatchRepo) FindMatch(ctx context.Context, id string) (*model.MatchRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	return m, nil
}

// ListRecent returns the most recently finished matches, newest first.
func (r *MatchRepo) ListRecent(ctx context.Context, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent matches: %w", err)
	}
	defer rows.Close()

	var matches []model.MatchRecord
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(s scanner) (*model.MatchRecord, error) {
	var m model.MatchRecord
	var winner, condition sql.NullString
	var logJSON []byte
	err := s.Scan(&m.ID, &m.Name, &m.Rows, &m.Cols, &m.UnitsPerTeam, &m.Seed, &m.FirstTeam, &m.SideA, &m.SideB,
		&winner, &condition, &m.Rounds, &m.SurvivorsA, &m.SurvivorsB, &logJSON, &m.StartedAt, &m.FinishedAt)
	if err != nil {
		return nil, err
	}
	m.Winner = winner.String
	m.Condition = condition.String
	m.Log = logJSON
	return &m, nil
}
