package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/flagstrike/pkg/ctf"
)

const usage = `Enter one action per line:
  <unit> <m|a> <up|down|left|right> <n|auto>
  e.g. "2 m right 2" moves unit 2 two cells right, "0 a up auto" attacks up with a rolled range.
Other commands: board, log, help, quit`

// parseIntent reads "<unit> <m|a> <dir> <amount>". The amount may be left
// off, in which case the engine rolls it.
func parseIntent(line string) (ctf.Intent, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return ctf.Intent{}, fmt.Errorf("expected <unit> <m|a> <direction> <amount>, got %q", line)
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil || id < 0 {
		return ctf.Intent{}, fmt.Errorf("invalid unit id %q", fields[0])
	}

	dir, err := ctf.ParseDirection(fields[2])
	if err != nil {
		return ctf.Intent{}, err
	}

	amount := ctf.AutoRoll()
	if len(fields) == 4 {
		if amount, err = ctf.ParseAmount(fields[3]); err != nil {
			return ctf.Intent{}, err
		}
	}

	switch strings.ToLower(fields[1]) {
	case "m", "move":
		return ctf.MoveIntent(id, dir, amount), nil
	case "a", "attack":
		return ctf.AttackIntent(id, dir, amount), nil
	}
	return ctf.Intent{}, fmt.Errorf("unknown action %q (want m or a)", fields[1])
}
