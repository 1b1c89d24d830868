// Package loot implements the stateful, probability-based loot spawner: one
// Generator per map, driven every tick by elapsed time, current loot count,
// and current player count.
package loot

import (
	"math"
	"time"
)

// Generator produces new-loot counts using a Bernoulli-per-period model over
// "missing" items (player_count - existing_loot, floored at zero), gated by
// an internal residual-time accumulator. Reconstructed from the reference
// implementation's documented test vectors (there being no accompanying
// source file in the retrieved material, only its test suite).
type Generator struct {
	BasePeriod  time.Duration
	Probability float64

	timeWithoutLoot time.Duration
}

// NewGenerator returns a Generator with the given base period and
// probability. Probability is expected in [0,1]; out-of-range values are the
// caller's responsibility (caught by config validation, C8).
func NewGenerator(basePeriod time.Duration, probability float64) *Generator {
	return &Generator{BasePeriod: basePeriod, Probability: probability}
}

// Generate returns the number of new loot items to spawn this tick. It never
// exceeds missing = max(0, playerCount-existingLoot), and returns 0 whenever
// playerCount is 0.
func (g *Generator) Generate(dt time.Duration, existingLoot, playerCount int) int {
	missing := playerCount - existingLoot
	if missing < 0 {
		missing = 0
	}

	g.timeWithoutLoot += dt

	if missing == 0 {
		g.timeWithoutLoot = 0
		return 0
	}

	ratio := float64(g.timeWithoutLoot) / float64(g.BasePeriod)
	if ratio > 1 {
		ratio = 1
	}

	n := int(math.Round(float64(missing) * g.Probability * ratio))
	if n > missing {
		n = missing
	}
	if n < 0 {
		n = 0
	}
	if n > 0 {
		g.timeWithoutLoot = 0
	}
	return n
}
