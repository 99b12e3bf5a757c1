package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/bot"
	"github.com/freeeve/flagstrike/internal/config"
	"github.com/freeeve/flagstrike/internal/handler"
	"github.com/freeeve/flagstrike/internal/logger"
	"github.com/freeeve/flagstrike/internal/middleware"
	"github.com/freeeve/flagstrike/internal/model"
	"github.com/freeeve/flagstrike/internal/repository"
	"github.com/freeeve/flagstrike/internal/repository/postgres"
	redisrepo "github.com/freeeve/flagstrike/internal/repository/redis"
	"github.com/freeeve/flagstrike/internal/service"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

const defaultAddr = ":8080"

// arenaOptions drives the showcase loop.
type arenaOptions struct {
	Teams     map[ctf.Team]string
	Setup     ctf.Setup
	Rules     ctf.Rules
	MaxRounds int
	TurnDelay time.Duration // pause after every turn so spectators can follow
	Linger    time.Duration // how long a finished match stays live
	Games     int           // 0 = until shutdown
}

func main() {
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	matchup := flag.String("matchup", "greedy-vs-random", "Strategies for teams A and B")
	turnDelay := flag.Duration("turn-delay", 500*time.Millisecond, "Pause between turns")
	linger := flag.Duration("linger", 30*time.Second, "How long a finished match stays live")
	games := flag.Int("games", 0, "Number of matches to play (0 = until shutdown)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})

	teams, err := bot.ParseMatchup(*matchup)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid matchup")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage is optional; interface-typed so an unset backend stays a true nil.
	var matches repository.MatchRepository
	var leaderboard repository.Leaderboard
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		matches = postgres.NewMatchRepo(db)
	}
	if cfg.RedisURL != "" {
		redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		leaderboard = redisClient
	}

	// WebSocket hub
	wsHub := handler.NewHub()
	svc := service.NewMatchService(matches, leaderboard, wsHub)

	addr := cfg.SpectatorAddr
	if addr == "" {
		addr = defaultAddr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      middleware.Chain(handler.Routes(svc, wsHub), middleware.Logger, middleware.CORS("*"), middleware.ReadOnly),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	opts := arenaOptions{
		Teams:     teams,
		Setup:     cfg.Setup(),
		Rules:     cfg.Rules(),
		MaxRounds: cfg.MaxRounds,
		TurnDelay: *turnDelay,
		Linger:    *linger,
		Games:     *games,
	}
	done := make(chan error, 1)
	go func() { done <- runArena(ctx, svc, opts) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("Shutting down server")
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Arena stopped")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}

// runArena plays matches back to back until ctx ends or opts.Games is reached.
func runArena(ctx context.Context, svc *service.MatchService, opts arenaOptions) error {
	for n := 1; opts.Games == 0 || n <= opts.Games; n++ {
		rng := ctf.NewRand(0)
		gs, err := ctf.NewGame(opts.Setup, rng)
		if err != nil {
			return fmt.Errorf("new game: %w", err)
		}
		gs.Rules = opts.Rules

		sides := make(map[ctf.Team]ctf.Strategy, 2)
		for _, team := range ctf.AllTeams() {
			sides[team] = bot.StrategyFor(opts.Teams[team])
		}
		m, err := svc.Start(ctx, service.MatchOptions{
			Name:      fmt.Sprintf("showcase #%d", n),
			Game:      gs,
			First:     ctf.RandomTeam(rng),
			Sides:     sides,
			MaxRounds: opts.MaxRounds,
		})
		if err != nil {
			return fmt.Errorf("start match: %w", err)
		}

		rec, err := playPaced(ctx, svc, m, opts.TurnDelay)
		if err != nil {
			svc.Forget(m.ID)
			return err
		}
		log.Info().Str("matchId", rec.ID).Str("winner", rec.Winner).Str("condition", rec.Condition).
			Int("rounds", rec.Rounds).Msg("Showcase match finished")

		// Keep the finished match visible before the next one starts.
		if err := sleepCtx(ctx, opts.Linger); err != nil {
			svc.Forget(m.ID)
			return err
		}
		svc.Forget(m.ID)
	}
	return nil
}

// playPaced steps a strategy-only match, pausing after every turn.
func playPaced(ctx context.Context, svc *service.MatchService, m *service.Match, delay time.Duration) (*model.MatchRecord, error) {
	for {
		_, err := svc.Step(ctx, m.ID)
		switch {
		case errors.Is(err, ctf.ErrGameOver):
			return m.Record(), nil
		case err != nil:
			return nil, err
		}
		if m.Done() {
			return m.Record(), nil
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
