// Package vitals implements player health and stamina regeneration.
//
// Regeneration is time-driven and whole-minute gated: a stat only moves once
// a full minute has elapsed since its last computed timestamp. Fractional
// minutes are implicitly carried forward because the timestamp is left
// untouched when no full minute has passed.
package vitals

import "time"

// Biome classifies a location's environment for regen multipliers.
type Biome int

const (
	BiomeUnknown Biome = iota
	BiomeMeadow
	BiomeForest
	BiomeSwamp
	BiomeMountain
	BiomeDesert
	BiomeCoast
	BiomeRuins
)

func (b Biome) String() string {
	switch b {
	case BiomeMeadow:
		return "meadow"
	case BiomeForest:
		return "forest"
	case BiomeSwamp:
		return "swamp"
	case BiomeMountain:
		return "mountain"
	case BiomeDesert:
		return "desert"
	case BiomeCoast:
		return "coast"
	case BiomeRuins:
		return "ruins"
	default:
		return "unknown"
	}
}

// ParseBiome maps a stored biome string to the closed enum. Unknown values
// map to BiomeUnknown, which rule sets must treat as the neutral multiplier.
func ParseBiome(value string) Biome {
	switch value {
	case "meadow":
		return BiomeMeadow
	case "forest":
		return BiomeForest
	case "swamp":
		return BiomeSwamp
	case "mountain":
		return BiomeMountain
	case "desert":
		return BiomeDesert
	case "coast":
		return BiomeCoast
	case "ruins":
		return BiomeRuins
	default:
		return BiomeUnknown
	}
}

// Multiplier scales health and stamina regeneration independently.
type Multiplier struct {
	Health  float64
	Stamina float64
}

// Neutral is the identity multiplier applied when no rule matches.
var Neutral = Multiplier{Health: 1, Stamina: 1}

// Mul compounds two multipliers.
func (m Multiplier) Mul(other Multiplier) Multiplier {
	return Multiplier{
		Health:  m.Health * other.Health,
		Stamina: m.Stamina * other.Stamina,
	}
}

// Rates carries per-minute regeneration rates, or stat maxima, depending on
// context. Health and stamina are always tracked independently.
type Rates struct {
	Health  float64
	Stamina float64
}

// RuleSet resolves the configured multiplier tables and base constants.
// Implementations must return the neutral multiplier for unknown keys.
type RuleSet interface {
	BiomeMultiplier(biome Biome) Multiplier
	ActivityPenalty(inTransit, recentCombat bool) Multiplier
	EffectMultiplier(effectID string) Multiplier
	PremiumMultiplier(premium bool) Multiplier
	BaseRates() Rates
	MaxVitals(premium bool) Rates
	CombatCooldown() time.Duration
}

// Snapshot is one stat's value and last computed timestamp.
type Snapshot struct {
	Value     float64
	UpdatedAt time.Time
}

// Advance applies whole-minute regeneration to one stat.
//
// The returned bool reports whether the snapshot changed (value or timestamp)
// and must be persisted. When no full minute has elapsed, the snapshot is
// returned untouched. When the stat is already at max, the timestamp still
// advances to avoid recomputation drift.
func Advance(snap Snapshot, now time.Time, ratePerMinute, multiplier, max float64) (Snapshot, bool) {
	elapsedMinutes := int64(now.Sub(snap.UpdatedAt) / time.Minute)
	if elapsedMinutes <= 0 {
		return snap, false
	}

	delta := float64(elapsedMinutes) * ratePerMinute * multiplier
	next := clamp(snap.Value+delta, 0, max)

	if next != snap.Value {
		return Snapshot{Value: next, UpdatedAt: now}, true
	}
	if snap.Value >= max {
		// Already capped: advancing the timestamp keeps the next pass cheap.
		return Snapshot{Value: snap.Value, UpdatedAt: now}, true
	}
	return snap, false
}

// PruneExpiredEffects deletes effects with expiry at or before now, in place.
// It returns true when anything was removed.
func PruneExpiredEffects(effects map[string]time.Time, now time.Time) bool {
	pruned := false
	for id, expiresAt := range effects {
		if !expiresAt.After(now) {
			delete(effects, id)
			pruned = true
		}
	}
	return pruned
}

// EffectsMultiplier compounds the multipliers of every unexpired effect.
// Expired entries are pruned as a side effect of the lookup; the returned
// bool reports whether the map changed.
func EffectsMultiplier(effects map[string]time.Time, now time.Time, rules RuleSet) (Multiplier, bool) {
	pruned := PruneExpiredEffects(effects, now)
	combined := Neutral
	for id := range effects {
		combined = combined.Mul(rules.EffectMultiplier(id))
	}
	return combined, pruned
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
