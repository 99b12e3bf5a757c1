package bot

import (
	"math/rand"
	"sync"
)

// botRng is the package-level random source used by the random strategy.
// When nil, the functions below delegate to the global math/rand default.
// Use SeedBotRng to set a deterministic source for reproducible arena runs.
var (
	botRngMu sync.Mutex
	botRng   *rand.Rand
)

// SeedBotRng sets a deterministic random source for reproducible bot behavior.
func SeedBotRng(seed int64) {
	botRngMu.Lock()
	botRng = rand.New(rand.NewSource(seed))
	botRngMu.Unlock()
}

// ResetBotRng reverts to the default (non-deterministic) global random source.
func ResetBotRng() {
	botRngMu.Lock()
	botRng = nil
	botRngMu.Unlock()
}

func botIntn(n int) int {
	botRngMu.Lock()
	defer botRngMu.Unlock()
	if botRng != nil {
		return botRng.Intn(n)
	}
	return rand.Intn(n)
}

func botShuffle(n int, swap func(i, j int)) {
	botRngMu.Lock()
	defer botRngMu.Unlock()
	if botRng != nil {
		botRng.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}
