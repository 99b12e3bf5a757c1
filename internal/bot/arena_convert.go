package bot

import (
	"fmt"
	"strings"

	"github.com/freeeve/flagstrike/pkg/ctf"
)

// ParseTeamConfig parses "a=greedy,b=random" style strings. "*" sets the
// default for teams not named; without it the default is greedy.
func ParseTeamConfig(s string) (map[ctf.Team]string, error) {
	cfg := make(map[ctf.Team]string, 2)
	defaultName := StrategyGreedy

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("team config %q: expected team=strategy", part)
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !KnownStrategy(val) {
			return nil, fmt.Errorf("team config %q: unknown strategy %q", part, val)
		}
		if key == "*" {
			defaultName = val
			continue
		}
		team, err := ctf.ParseTeam(key)
		if err != nil {
			return nil, fmt.Errorf("team config %q: %w", part, err)
		}
		cfg[team] = val
	}

	for _, team := range ctf.AllTeams() {
		if _, ok := cfg[team]; !ok {
			cfg[team] = defaultName
		}
	}
	return cfg, nil
}

// ParseMatchup handles "greedy-vs-random" shorthand: the first strategy
// plays team A, the second team B. A single name sets both teams.
func ParseMatchup(s string) (map[ctf.Team]string, error) {
	a, b, ok := strings.Cut(s, "-vs-")
	if !ok {
		return ParseTeamConfig("*=" + s)
	}
	return ParseTeamConfig(fmt.Sprintf("a=%s,b=%s", a, b))
}
