package bot

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/freeeve/flagstrike/internal/handler"
	"github.com/freeeve/flagstrike/internal/service"
	"github.com/freeeve/flagstrike/pkg/ctf"
)

func TestClientWatchesMatch(t *testing.T) {
	hub := handler.NewHub()
	svc := service.NewMatchService(nil, nil, hub)
	srv := httptest.NewServer(handler.Routes(svc, hub))
	defer srv.Close()

	c := NewClient("watcher", srv.URL)
	if err := c.Health(); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := c.ConnectWS("watched"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.CloseWS()

	deadline := time.Now().Add(2 * time.Second)
	for hub.MatchSubscriberCount("watched") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	gs := newGame(t, 3, 3)
	addUnit(t, gs, ctf.TeamA, ctf.Fast, ctf.Expert, 0, 0)
	addUnit(t, gs, ctf.TeamB, ctf.Slow, ctf.Novice, 2, 2)

	ctx := context.Background()
	if _, err := svc.Start(ctx, service.MatchOptions{
		ID:    "watched",
		Game:  gs,
		First: ctf.TeamA,
		Sides: map[ctf.Team]ctf.Strategy{ctf.TeamA: &GreedyStrategy{}, ctf.TeamB: &GreedyStrategy{}},
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Run(ctx, "watched"); err != nil {
		t.Fatalf("run: %v", err)
	}

	var types []string
	var last WSEvent
	timeout := time.After(2 * time.Second)
	for last.Type != service.EventGameOver {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("event stream closed after %v", types)
			}
			if ev.MatchID != "watched" {
				continue
			}
			types = append(types, ev.Type)
			last = ev
		case <-timeout:
			t.Fatalf("no game_over, got %v", types)
		}
	}

	want := []string{
		service.EventMatchStarted,
		service.EventActionResolved,
		service.EventActionResolved,
		service.EventRoundComplete,
		service.EventActionResolved,
		service.EventGameOver,
	}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}

	result, _ := last.Data["result"].(map[string]any)
	if result["winner"] != "a" || result["condition"] != "capture" {
		t.Errorf("game_over result = %v", last.Data["result"])
	}

	live, err := c.LiveMatches()
	if err != nil || len(live) != 1 || live[0] != "watched" {
		t.Errorf("live matches = %v, %v", live, err)
	}

	snap, err := c.GetMatch("watched")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if snap["state"] != "game_over" {
		t.Errorf("state = %v, want game_over", snap["state"])
	}

	standings, err := c.Standings()
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 0 {
		t.Errorf("expected no standings without a leaderboard, got %v", standings)
	}
}

func TestClientGetMatchNotFound(t *testing.T) {
	hub := handler.NewHub()
	srv := httptest.NewServer(handler.Routes(service.NewMatchService(nil, nil, hub), hub))
	defer srv.Close()

	c := NewClient("watcher", srv.URL)
	if _, err := c.GetMatch("missing"); err == nil {
		t.Fatal("expected an error for an unknown match")
	}
}
