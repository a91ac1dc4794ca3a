package balance

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emberveil/emberveil/internal/services/world/domain/vitals"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	b, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.BaseHealthPerMinute != 2 {
		t.Fatalf("base health rate = %v, want default 2", b.BaseHealthPerMinute)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	payload := `
base_health_per_minute: 5
combat_cooldown_window: 15m
biome_factors:
  meadow:
    health: 2.0
    stamina: 2.0
tier_weights: [50, 30, 10, 8, 2]
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write balance file: %v", err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.BaseHealthPerMinute != 5 {
		t.Fatalf("base health rate = %v, want overridden 5", b.BaseHealthPerMinute)
	}
	if b.CombatCooldown() != 15*time.Minute {
		t.Fatalf("combat cooldown = %v, want 15m", b.CombatCooldown())
	}
	if got := b.BiomeMultiplier(vitals.BiomeMeadow); got.Health != 2 {
		t.Fatalf("meadow health factor = %v, want overridden 2", got.Health)
	}
	// Untouched defaults survive a partial override.
	if b.BaseStaminaPerMinute != 3 {
		t.Fatalf("base stamina rate = %v, want default 3", b.BaseStaminaPerMinute)
	}
	if b.FirstVisitBonus != 50 {
		t.Fatalf("first visit bonus = %v, want default 50", b.FirstVisitBonus)
	}
}

func TestLoadRejectsBadTierWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	if err := os.WriteFile(path, []byte("tier_weights: [50, 50, 50, 0, 0]\n"), 0o644); err != nil {
		t.Fatalf("write balance file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("Load succeeded, want tier weight validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("Load succeeded, want read error")
	}
}

func TestBiomeMultiplierUnknownIsNeutral(t *testing.T) {
	if got := Default().BiomeMultiplier(vitals.BiomeUnknown); got != vitals.Neutral {
		t.Fatalf("unknown biome multiplier = %+v, want neutral", got)
	}
}

func TestActivityPenaltyCompounds(t *testing.T) {
	b := Default()
	got := b.ActivityPenalty(true, true)
	if got.Health != 0.125 {
		t.Fatalf("health penalty = %v, want 0.5*0.25 = 0.125", got.Health)
	}
	if got.Stamina != 0.25 {
		t.Fatalf("stamina penalty = %v, want 0.5*0.5 = 0.25", got.Stamina)
	}
	if b.ActivityPenalty(false, false) != vitals.Neutral {
		t.Fatalf("idle penalty = %+v, want neutral", b.ActivityPenalty(false, false))
	}
}

func TestMaxVitalsPremiumBonus(t *testing.T) {
	b := Default()
	max := b.MaxVitals(true)
	if max.Health != 125 || max.Stamina != 125 {
		t.Fatalf("premium maxima = %v/%v, want 125/125", max.Health, max.Stamina)
	}
}
