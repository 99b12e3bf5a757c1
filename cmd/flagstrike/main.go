package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/bot"
	"github.com/freeeve/flagstrike/internal/config"
	"github.com/freeeve/flagstrike/internal/handler"
	"github.com/freeeve/flagstrike/internal/logger"
	"github.com/freeeve/flagstrike/internal/middleware"
	"github.com/freeeve/flagstrike/internal/repository"
	"github.com/freeeve/flagstrike/internal/repository/postgres"
	"github.com/freeeve/flagstrike/internal/repository/redis"
	"github.com/freeeve/flagstrike/internal/scenario"
	"github.com/freeeve/flagstrike/internal/service"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

func main() {
	var (
		configPath   string
		scenarioPath string
		spectateAddr string
	)
	flag.StringVar(&configPath, "config", "", "Config file (yaml, json or toml)")
	flag.StringVar(&scenarioPath, "scenario", "", "Scenario file with a hand-authored starting position")
	flag.StringVar(&spectateAddr, "spectate", "", "Serve spectators on this address (overrides spectator_addr)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
		// The prompt blocks on stdin, so a signal has to end the process.
		time.Sleep(200 * time.Millisecond)
		os.Exit(130)
	}()

	rng := ctf.NewRand(cfg.Seed)
	var (
		gs    *ctf.GameState
		first ctf.Team
		name  = "flagstrike"
	)
	if scenarioPath != "" {
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load scenario")
		}
		if sc.Seed != 0 {
			rng = ctf.NewRand(sc.Seed)
		}
		if gs, err = sc.Build(rng); err != nil {
			log.Fatal().Err(err).Msg("Failed to build scenario")
		}
		first = sc.FirstTeam()
		if sc.Name != "" {
			name = sc.Name
		}
	} else {
		if gs, err = ctf.NewGame(cfg.Setup(), rng); err != nil {
			log.Fatal().Err(err).Msg("Failed to set up game")
		}
		gs.Rules = cfg.Rules()
	}
	if first == ctf.NoTeam {
		first = config.PickTeam(cfg.FirstTeam, rng)
	}
	human := config.PickTeam(cfg.HumanTeam, rng)

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
		rc, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer rc.Close()
		leaderboard = rc
	}

	hub := handler.NewHub()
	svc := service.NewMatchService(matches, leaderboard, hub)

	if spectateAddr == "" {
		spectateAddr = cfg.SpectatorAddr
	}
	if spectateAddr != "" {
		srv := &http.Server{
			Addr:         spectateAddr,
			Handler:      middleware.Chain(handler.Routes(svc, hub), middleware.Logger, middleware.CORS("*"), middleware.ReadOnly),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", spectateAddr).Msg("Spectator server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Spectator server error")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	m, err := svc.Start(ctx, service.MatchOptions{
		Name:      name,
		Game:      gs,
		Seed:      cfg.Seed,
		First:     first,
		Sides:     map[ctf.Team]ctf.Strategy{human.Opponent(): bot.StrategyFor(cfg.Opponent)},
		MaxRounds: cfg.MaxRounds,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start match")
	}

	fmt.Printf("Match %s: you play %s against %s. %s moves first.\n", m.ID, human, cfg.Opponent, first)
	if spectateAddr != "" {
		fmt.Printf("Spectators: ws://%s/ws?match=%s\n", spectateAddr, m.ID)
	}
	fmt.Println(usage)

	if err := play(ctx, svc, m, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Match aborted")
	}
}

// play runs the prompt loop until the match ends, input runs out or the
// player quits.
func play(ctx context.Context, svc *service.MatchService, m *service.Match, in io.Reader, out io.Writer) error {
	gs := m.Controller().Game()
	scanner := bufio.NewScanner(in)

	for {
		turns, err := svc.Advance(ctx, m.ID)
		for _, t := range turns {
			msg := "No action taken."
			if t.Acted {
				msg = t.Outcome.Describe()
			}
			fmt.Fprintf(out, "%s (%s): %s\n", t.Team, m.Side(t.Team), msg)
		}
		if err != nil {
			return err
		}
		if m.Done() {
			printResult(out, m)
			return nil
		}

		ctrl := m.Controller()
		fmt.Fprintln(out)
		renderBoard(out, gs)
		fmt.Fprintf(out, "\nRound %d, %s> ", ctrl.CurrentRound(), ctrl.ActiveTeam())

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nInput closed, leaving the match.")
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "q", "quit", "exit":
			fmt.Fprintln(out, "Leaving the match.")
			return nil
		case "h", "help", "?":
			fmt.Fprintln(out, usage)
			continue
		case "board":
			continue
		case "log":
			renderLog(out, gs, 0)
			continue
		}

		intent, err := parseIntent(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		turn, err := svc.Submit(ctx, m.ID, intent)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		fmt.Fprintln(out, turn.Outcome.Describe())
	}
}

func printResult(w io.Writer, m *service.Match) {
	fmt.Fprintln(w)
	renderBoard(w, m.Controller().Game())
	fmt.Fprintln(w)
	rec := m.Record()
	if res, ok := m.Controller().Result(); ok {
		fmt.Fprintln(w, res.Describe())
	} else {
		fmt.Fprintf(w, "No winner after %d rounds.\n", rec.Rounds)
	}
	fmt.Fprintf(w, "Survivors: A %d, B %d\n", rec.SurvivorsA, rec.SurvivorsB)
}
