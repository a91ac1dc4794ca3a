package encounter

import (
	"fmt"
	"math/rand"
)

// Tier is the 1-5 difficulty class of a spawned encounter.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
	Tier4 Tier = 4
	Tier5 Tier = 5
)

func (t Tier) String() string {
	return fmt.Sprintf("tier-%d", int(t))
}

// Valid reports whether the tier is inside the closed 1-5 range.
func (t Tier) Valid() bool {
	return t >= Tier1 && t <= Tier5
}

// PickTier chooses a tier from the weighted distribution. Weights are listed
// for tiers 1 through 5 and must sum to 100.
func PickTier(rng *rand.Rand, weights [5]int) Tier {
	roll := rng.Intn(100)
	cumulative := 0
	for i, weight := range weights {
		cumulative += weight
		if roll < cumulative {
			return Tier(i + 1)
		}
	}
	// Weights summing to 100 make this unreachable; guard for bad config.
	return Tier1
}

// ScaledMaxHP computes an encounter's max hp for its tier.
func ScaledMaxHP(baseHP int64, tier Tier, scalingFactor float64) int64 {
	return int64(float64(baseHP) * (1 + float64(tier-1)*scalingFactor))
}

// bossNames seeds spawned encounter names per tier.
var bossNames = [5][]string{
	{"Mirewood Stalker", "Ashen Boar", "Gravebell Shade"},
	{"Thornmaw Alpha", "Duskwater Serpent", "Hollow Sentinel"},
	{"Emberclad Revenant", "Stormcall Harpy", "Pale Warden"},
	{"Veilbreaker Colossus", "Night Sovereign", "Rotking of the Fen"},
	{"The Unmoored", "Herald of the Long Dusk"},
}

// PickName chooses a display name appropriate for the tier.
func PickName(rng *rand.Rand, tier Tier) string {
	if !tier.Valid() {
		tier = Tier1
	}
	names := bossNames[tier-1]
	return names[rng.Intn(len(names))]
}
