package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/freeeve/flagstrike/internal/model"
)

// Key patterns for the leaderboard hashes.
const (
	winsKey  = "flagstrike:wins"
	gamesKey = "flagstrike:games"
)

func conditionsKey(strategy string) string { return "flagstrike:conditions:" + strategy }

// RecordResult counts one finished game for a strategy. condition is only
// tallied for wins.
func (c *Client) RecordResult(ctx context.Context, strategy string, won bool, condition string) error {
	pipe := c.rdb.TxPipeline()
	pipe.HIncrBy(ctx, gamesKey, strategy, 1)
	if won {
		pipe.HIncrBy(ctx, winsKey, strategy, 1)
		if condition != "" {
			pipe.HIncrBy(ctx, conditionsKey(strategy), condition, 1)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Standings returns every strategy that has played, ordered by wins then name.
func (c *Client) Standings(ctx context.Context) ([]model.Standing, error) {
	games, err := c.rdb.HGetAll(ctx, gamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get games: %w", err)
	}
	wins, err := c.rdb.HGetAll(ctx, winsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get wins: %w", err)
	}

	standings := make([]model.Standing, 0, len(games))
	for strategy, n := range games {
		s := model.Standing{Strategy: strategy}
		s.Games, _ = strconv.ParseInt(n, 10, 64)
		s.Wins, _ = strconv.ParseInt(wins[strategy], 10, 64)

		conds, err := c.rdb.HGetAll(ctx, conditionsKey(strategy)).Result()
		if err != nil {
			return nil, fmt.Errorf("get conditions for %s: %w", strategy, err)
		}
		if len(conds) > 0 {
			s.Conditions = make(map[string]int, len(conds))
			for cond, v := range conds {
				s.Conditions[cond], _ = strconv.Atoi(v)
			}
		}
		standings = append(standings, s)
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return strings.Compare(standings[i].Strategy, standings[j].Strategy) < 0
	})
	return standings, nil
}

// ResetStandings deletes every leaderboard key.
func (c *Client) ResetStandings(ctx context.Context) error {
	keys := []string{winsKey, gamesKey}
	iter := c.rdb.Scan(ctx, 0, conditionsKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan condition keys: %w", err)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
