// Package balance holds the gameplay tuning tables consumed by the world
// service: regen rates and multipliers, vitals maxima, and encounter spawn
// parameters. Values ship with defaults and can be overridden from a YAML
// file at startup.
package balance

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emberveil/emberveil/internal/services/world/domain/vitals"
)

// Duration wraps time.Duration so YAML overrides can use "10m" style values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Factors is the YAML-facing shape of a health/stamina multiplier pair.
type Factors struct {
	Health  float64 `yaml:"health"`
	Stamina float64 `yaml:"stamina"`
}

func (f Factors) multiplier() vitals.Multiplier {
	return vitals.Multiplier{Health: f.Health, Stamina: f.Stamina}
}

// Balance is the full tuning table set.
type Balance struct {
	// Regen
	BaseHealthPerMinute  float64            `yaml:"base_health_per_minute"`
	BaseStaminaPerMinute float64            `yaml:"base_stamina_per_minute"`
	MaxHealth            float64            `yaml:"max_health"`
	MaxStamina           float64            `yaml:"max_stamina"`
	PremiumVitalsBonus   float64            `yaml:"premium_vitals_bonus"`
	PremiumRegenFactor   Factors            `yaml:"premium_regen_factor"`
	BiomeFactors         map[string]Factors `yaml:"biome_factors"`
	TravelPenalty        Factors            `yaml:"travel_penalty"`
	CombatPenalty        Factors            `yaml:"combat_penalty"`
	CombatCooldownWindow Duration           `yaml:"combat_cooldown_window"`
	EffectFactors        map[string]Factors `yaml:"effect_factors"`

	// Travel
	FirstVisitBonus int64 `yaml:"first_visit_bonus"`

	// Encounters
	TierWeights     [5]int  `yaml:"tier_weights"`
	EncounterBaseHP int64   `yaml:"encounter_base_hp"`
	HPScalingFactor float64 `yaml:"hp_scaling_factor"`
}

// Default returns the shipped tuning tables.
func Default() Balance {
	return Balance{
		BaseHealthPerMinute:  2,
		BaseStaminaPerMinute: 3,
		MaxHealth:            100,
		MaxStamina:           100,
		PremiumVitalsBonus:   25,
		PremiumRegenFactor:   Factors{Health: 1.5, Stamina: 1.5},
		BiomeFactors: map[string]Factors{
			"meadow":   {Health: 1.2, Stamina: 1.1},
			"forest":   {Health: 1.1, Stamina: 1.0},
			"swamp":    {Health: 0.8, Stamina: 0.9},
			"mountain": {Health: 0.9, Stamina: 0.8},
			"desert":   {Health: 0.8, Stamina: 0.7},
			"coast":    {Health: 1.1, Stamina: 1.2},
			"ruins":    {Health: 0.7, Stamina: 0.9},
		},
		TravelPenalty:        Factors{Health: 0.5, Stamina: 0.5},
		CombatPenalty:        Factors{Health: 0.25, Stamina: 0.5},
		CombatCooldownWindow: Duration(10 * time.Minute),
		EffectFactors: map[string]Factors{
			"regen_tonic":     {Health: 2.0, Stamina: 1.0},
			"stamina_draft":   {Health: 1.0, Stamina: 2.0},
			"campfire_meal":   {Health: 1.25, Stamina: 1.25},
			"exhaustion":      {Health: 1.0, Stamina: 0.5},
			"festering_wound": {Health: 0.5, Stamina: 1.0},
		},
		FirstVisitBonus: 50,
		TierWeights:     [5]int{40, 30, 20, 8, 2},
		EncounterBaseHP: 1000,
		HPScalingFactor: 0.75,
	}
}

// Load reads a YAML override file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Balance, error) {
	b := Default()
	if path == "" {
		return b, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Balance{}, fmt.Errorf("read balance file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return Balance{}, fmt.Errorf("parse balance file: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// Validate rejects tables the lifecycle algorithms cannot run on.
func (b Balance) Validate() error {
	if b.BaseHealthPerMinute < 0 || b.BaseStaminaPerMinute < 0 {
		return fmt.Errorf("base regen rates must be non-negative")
	}
	if b.MaxHealth <= 0 || b.MaxStamina <= 0 {
		return fmt.Errorf("vitals maxima must be positive")
	}
	sum := 0
	for _, w := range b.TierWeights {
		if w < 0 {
			return fmt.Errorf("tier weights must be non-negative")
		}
		sum += w
	}
	if sum != 100 {
		return fmt.Errorf("tier weights must sum to 100, got %d", sum)
	}
	if b.EncounterBaseHP <= 0 {
		return fmt.Errorf("encounter base hp must be positive")
	}
	if b.HPScalingFactor < 0 {
		return fmt.Errorf("hp scaling factor must be non-negative")
	}
	return nil
}

// BiomeMultiplier implements vitals.RuleSet.
func (b Balance) BiomeMultiplier(biome vitals.Biome) vitals.Multiplier {
	if factors, ok := b.BiomeFactors[biome.String()]; ok {
		return factors.multiplier()
	}
	// BiomeUnknown and unconfigured biomes regen at the neutral rate.
	return vitals.Neutral
}

// ActivityPenalty implements vitals.RuleSet.
func (b Balance) ActivityPenalty(inTransit, recentCombat bool) vitals.Multiplier {
	penalty := vitals.Neutral
	if inTransit {
		penalty = penalty.Mul(b.TravelPenalty.multiplier())
	}
	if recentCombat {
		penalty = penalty.Mul(b.CombatPenalty.multiplier())
	}
	return penalty
}

// EffectMultiplier implements vitals.RuleSet.
func (b Balance) EffectMultiplier(effectID string) vitals.Multiplier {
	if factors, ok := b.EffectFactors[effectID]; ok {
		return factors.multiplier()
	}
	return vitals.Neutral
}

// PremiumMultiplier implements vitals.RuleSet.
func (b Balance) PremiumMultiplier(premium bool) vitals.Multiplier {
	if !premium {
		return vitals.Neutral
	}
	return b.PremiumRegenFactor.multiplier()
}

// BaseRates implements vitals.RuleSet.
func (b Balance) BaseRates() vitals.Rates {
	return vitals.Rates{Health: b.BaseHealthPerMinute, Stamina: b.BaseStaminaPerMinute}
}

// MaxVitals implements vitals.RuleSet.
func (b Balance) MaxVitals(premium bool) vitals.Rates {
	max := vitals.Rates{Health: b.MaxHealth, Stamina: b.MaxStamina}
	if premium {
		max.Health += b.PremiumVitalsBonus
		max.Stamina += b.PremiumVitalsBonus
	}
	return max
}

// CombatCooldown implements vitals.RuleSet.
func (b Balance) CombatCooldown() time.Duration {
	return time.Duration(b.CombatCooldownWindow)
}

var _ vitals.RuleSet = Balance{}
