package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/flagstrike/internal/bot"
	"github.com/freeeve/flagstrike/internal/service"
)

func main() {
	url := flag.String("url", "http://localhost:8080", "spectator server base URL")
	matchID := flag.String("match", "", "match to follow; without it, recent matches and standings are listed")
	limit := flag.Int("limit", 10, "number of recent matches to list")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	c := bot.NewClient("spectator", *url)
	if err := c.Health(); err != nil {
		log.Fatal().Err(err).Msg("Spectator server unreachable")
	}

	if *matchID == "" {
		if err := overview(os.Stdout, c, *limit); err != nil {
			log.Fatal().Err(err).Msg("Overview failed")
		}
		return
	}

	if err := watch(ctx, os.Stdout, c, *matchID); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Watch failed")
	}
}

// overview prints live matches, recent matches and the leaderboard.
func overview(w io.Writer, c *bot.Client, limit int) error {
	live, err := c.LiveMatches()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Live matches: %s\n", strings.Join(live, ", "))

	recent, err := c.RecentMatches(limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Recent matches (%d):\n", len(recent))
	for _, m := range recent {
		winner := m["winner"]
		if winner == nil || winner == "" {
			winner = "draw"
		}
		fmt.Fprintf(w, "  %-10v %v vs %v: %v %v in %v rounds\n",
			m["id"], m["side_a"], m["side_b"], winner, m["condition"], m["rounds"])
	}

	standings, err := c.Standings()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nStandings:")
	for _, s := range standings {
		fmt.Fprintf(w, "  %-12v %v wins / %v games (%.2f)\n", s["strategy"], s["wins"], s["games"], s["win_rate"])
	}
	return nil
}

// watch follows a match and prints each event until it ends.
func watch(ctx context.Context, w io.Writer, c *bot.Client, matchID string) error {
	if snap, err := c.GetMatch(matchID); err == nil {
		fmt.Fprintf(w, "Following %s (%v), round %v, %v\n", matchID, snap["name"], snap["round"], snap["state"])
	}
	if err := c.ConnectWS(matchID); err != nil {
		return err
	}
	defer c.CloseWS()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.Events():
			if !ok {
				return errors.New("connection closed")
			}
			if ev.MatchID != matchID {
				continue
			}
			printEvent(w, ev)
			if ev.Type == service.EventGameOver {
				return nil
			}
		}
	}
}

func printEvent(w io.Writer, ev bot.WSEvent) {
	switch ev.Type {
	case service.EventActionResolved:
		outcome, _ := ev.Data["outcome"].(map[string]any)
		intent, _ := outcome["intent"].(map[string]any)
		if acted, _ := ev.Data["acted"].(bool); !acted {
			fmt.Fprintf(w, "round %v, team %v: no action\n", ev.Data["round"], ev.Data["team"])
			return
		}
		fmt.Fprintf(w, "round %v, team %v: unit %v %v %v %v -> %v\n", ev.Data["round"], ev.Data["team"],
			intent["unit_id"], intent["kind"], intent["direction"], intent["amount"], outcome["reason"])
	case service.EventGameOver:
		if result, ok := ev.Data["result"].(map[string]any); ok {
			fmt.Fprintf(w, "game over: %v wins by %v\n", result["winner"], result["condition"])
		} else {
			fmt.Fprintln(w, "game over: no winner")
		}
	default:
		fmt.Fprintf(w, "%s: round %v, %v\n", ev.Type, ev.Data["round"], ev.Data["state"])
	}
}
