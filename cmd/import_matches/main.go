// Command import_matches reads archived match records as JSONL and writes
// them into the Postgres archive, optionally replaying their results into
// the Redis leaderboard.
//
// Usage:
//
//	curl -s 'localhost:8080/matches?limit=200' | jq -c '.[]' > matches.jsonl
//	go run ./cmd/import_matches/ --input matches.jsonl --db postgres://... --redis redis://...
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/logger"
	"github.com/freeeve/flagstrike/internal/model"
	"github.com/freeeve/flagstrike/internal/repository"
	"github.com/freeeve/flagstrike/internal/repository/postgres"
	"github.com/freeeve/flagstrike/internal/repository/redis"
)

func main() {
	inputFile := flag.String("input", "", "Path to JSONL file (- for stdin)")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	redisURL := flag.String("redis", "", "Redis URL; when set, results are replayed into the leaderboard")
	flag.Parse()

	logger.Init(logger.Options{Level: "info"})

	if *inputFile == "" {
		log.Fatal().Msg("--input is required")
	}
	if *dbURL == "" {
		log.Fatal().Msg("--db or DATABASE_URL is required")
	}

	ctx := context.Background()

	db, err := postgres.Connect(ctx, *dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	var leaderboard repository.Leaderboard
	if *redisURL != "" {
		rc, err := redis.NewClient(ctx, *redisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer rc.Close()
		leaderboard = rc
	}

	var in io.Reader = os.Stdin
	if *inputFile != "-" {
		f, err := os.Open(*inputFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open input")
		}
		defer f.Close()
		in = f
	}

	imported, err := importRecords(ctx, in, postgres.NewMatchRepo(db), leaderboard)
	if err != nil {
		log.Fatal().Err(err).Int("imported", imported).Msg("Import failed")
	}
	log.Info().Int("imported", imported).Msg("Import done")
}

// importRecords saves every valid record in r. Bad lines are logged and
// skipped; only a read failure stops the import.
func importRecords(ctx context.Context, r io.Reader, matches repository.MatchRepository, leaderboard repository.Leaderboard) (int, error) {
	scanner := bufio.NewScanner(r)
	// Match logs can make long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	imported := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			log.Warn().Err(err).Int("line", lineNo).Msg("Skipping line")
			continue
		}
		if err := matches.SaveMatch(ctx, rec); err != nil {
			log.Error().Err(err).Str("matchId", rec.ID).Msg("Failed to save match")
			continue
		}
		if leaderboard != nil {
			replayResult(ctx, leaderboard, rec)
		}

		imported++
		log.Debug().Str("matchId", rec.ID).Str("winner", rec.Winner).Msg("Imported match")
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("read input: %w", err)
	}
	return imported, nil
}

// parseRecord decodes and sanity-checks one archived match.
func parseRecord(line string) (*model.MatchRecord, error) {
	var rec model.MatchRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, fmt.Errorf("bad JSON: %w", err)
	}
	if rec.ID == "" {
		return nil, errors.New("record has no id")
	}
	switch rec.Winner {
	case "", "a", "b":
	default:
		return nil, fmt.Errorf("match %s: unknown winner %q", rec.ID, rec.Winner)
	}
	if rec.Winner != "" && rec.Condition == "" {
		return nil, fmt.Errorf("match %s: winner without a condition", rec.ID)
	}
	if rec.SideA == "" || rec.SideB == "" {
		return nil, fmt.Errorf("match %s: missing side labels", rec.ID)
	}
	if len(rec.Log) == 0 {
		rec.Log = json.RawMessage("[]")
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt
	}
	return &rec, nil
}

// replayResult ranks the strategy sides of a match the same way a live match
// is ranked: human sides are skipped and a draw counts as a loss for both.
func replayResult(ctx context.Context, leaderboard repository.Leaderboard, rec *model.MatchRecord) {
	for _, team := range []string{"a", "b"} {
		side := rec.SideOf(team)
		if side == model.SideHuman {
			continue
		}
		if err := leaderboard.RecordResult(ctx, side, rec.Winner == team, rec.Condition); err != nil {
			log.Warn().Err(err).Str("matchId", rec.ID).Str("strategy", side).Msg("Failed to record result")
		}
	}
}
