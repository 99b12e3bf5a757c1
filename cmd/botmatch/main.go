package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/bot"
	"github.com/freeeve/flagstrike/internal/logger"
	"github.com/freeeve/flagstrike/internal/repository"
	"github.com/freeeve/flagstrike/internal/repository/postgres"
	"github.com/freeeve/flagstrike/internal/repository/redis"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

func main() {
	var (
		teamCfg   string
		matchup   string
		numGames  int
		workers   int
		dbURL     string
		redisURL  string
		rows      int
		cols      int
		units     int
		maxRounds int
		first     string
		blocking  bool
		seed      int64
		dryRun    bool
		jsonOut   bool
		logLevel  string
	)

	flag.StringVar(&teamCfg, "t", "", "Team config (e.g. a=greedy,*=random)")
	flag.StringVar(&matchup, "matchup", "", "Shorthand strategy-vs-strategy (e.g. greedy-vs-random)")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.StringVar(&dbURL, "db", "", "Database URL (or use DATABASE_URL env)")
	flag.StringVar(&redisURL, "redis", "", "Redis URL for the leaderboard (or use REDIS_URL env)")
	flag.IntVar(&rows, "rows", 8, "Board rows")
	flag.IntVar(&cols, "cols", 8, "Board columns")
	flag.IntVar(&units, "units", 4, "Units per team")
	flag.IntVar(&maxRounds, "max-rounds", bot.DefaultMaxRounds, "Rounds before a draw")
	flag.StringVar(&first, "first", "", "Team that moves first (a, b, or empty for a coin flip)")
	flag.BoolVar(&blocking, "eliminated-block", false, "Eliminated units keep blocking their cell")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip database and leaderboard writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.StringVar(&logLevel, "log-level", "info", "Log level")

	flag.Parse()

	logger.Init(logger.Options{Level: logLevel})

	// Resolve team config
	var (
		teams map[ctf.Team]string
		err   error
	)
	switch {
	case teamCfg != "":
		teams, err = bot.ParseTeamConfig(teamCfg)
	case matchup != "":
		teams, err = bot.ParseMatchup(matchup)
	default:
		teams, err = bot.ParseTeamConfig("*=greedy")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid team config")
	}

	firstTeam := ctf.NoTeam
	if first != "" {
		if firstTeam, err = ctf.ParseTeam(first); err != nil {
			log.Fatal().Err(err).Msg("Invalid -first")
		}
	}

	setup := ctf.Setup{Rows: rows, Cols: cols, UnitsPerTeam: units}
	if err := setup.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid board")
	}

	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}

	label := fmt.Sprintf("botmatch: %s-vs-%s", teams[ctf.TeamA], teams[ctf.TeamB])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Storage is optional; interface-typed so an unset backend stays a true nil.
	var matches repository.MatchRepository
	var leaderboard repository.Leaderboard

	if !dryRun && dbURL != "" {
		db, err := postgres.Connect(ctx, dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		matches = postgres.NewMatchRepo(db)
	}
	if !dryRun && redisURL != "" {
		rc, err := redis.NewClient(ctx, redisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer rc.Close()
		leaderboard = rc
	}

	// Run games
	results := make([]*bot.ArenaResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(workers, 1))
	errCount := 0

	for i := 0; i < numGames; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			gameSeed := seed
			if seed != 0 {
				gameSeed = seed + int64(idx)
			}

			cfg := bot.ArenaConfig{
				GameName:   fmt.Sprintf("%s #%d", label, idx+1),
				TeamConfig: teams,
				Setup:      setup,
				Rules:      ctf.Rules{EliminatedBlock: blocking},
				First:      firstTeam,
				MaxRounds:  maxRounds,
				Seed:       gameSeed,
				DryRun:     dryRun,
			}

			result, err := bot.RunGame(ctx, cfg, matches, leaderboard)
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("game", idx+1).Str("winner", result.Winner).Str("condition", result.Condition).
				Int("rounds", result.Rounds).Msg("Game completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numGames, errCount)
	} else {
		printSummary(results, teams, maxRounds, errCount, label, matches != nil)
	}
}

func printSummary(results []*bot.ArenaResult, teams map[ctf.Team]string, maxRounds, errCount int, label string, saved bool) {
	type stats struct {
		wins       int
		draws      int
		losses     int
		rounds     int
		games      int
		conditions map[string]int
	}

	byTeam := make(map[string]*stats)
	for _, team := range ctf.AllTeams() {
		byTeam[string(team)] = &stats{conditions: make(map[string]int)}
	}

	completed := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		for _, team := range ctf.AllTeams() {
			s := byTeam[string(team)]
			s.games++
			s.rounds += r.Rounds
			switch r.Winner {
			case string(team):
				s.wins++
				s.conditions[r.Condition]++
			case "":
				s.draws++
			default:
				s.losses++
			}
		}
	}

	fmt.Printf("\nResults (%d games, max %d rounds):\n", completed, maxRounds)
	if errCount > 0 {
		fmt.Printf("  (%d games failed)\n", errCount)
	}

	for _, team := range ctf.AllTeams() {
		s := byTeam[string(team)]
		avgRounds := 0.0
		if s.games > 0 {
			avgRounds = float64(s.rounds) / float64(s.games)
		}
		fmt.Printf("  %-7s (%s):  %d wins, %d draws, %d losses  -- avg rounds: %.1f%s\n",
			team, teams[team], s.wins, s.draws, s.losses, avgRounds, formatConditions(s.conditions))
	}

	if saved && completed > 0 {
		fmt.Printf("\nGames archived as \"%s #1\" through \"#%d\"\n", label, completed)
	}
}

func formatConditions(conds map[string]int) string {
	if len(conds) == 0 {
		return ""
	}
	names := make([]string, 0, len(conds))
	for c := range conds {
		names = append(names, c)
	}
	sort.Strings(names)
	out := " --"
	for _, c := range names {
		out += fmt.Sprintf(" %s:%d", c, conds[c])
	}
	return out
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	out := struct {
		Total   int                `json:"total"`
		Errors  int                `json:"errors"`
		Results []*bot.ArenaResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
