package vitals

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/emberveil/emberveil/internal/services/world/storage"
)

// Regenerator recomputes player vitals against the configured rule set.
//
// ApplyForUser may be invoked ad hoc concurrently with the periodic
// ApplyToAll: both run the same monotonic, clamped, timestamp-gated
// computation, so re-running within the same minute is a no-op and a
// timestamp never moves backward.
type Regenerator struct {
	store storage.PlayerStore
	rules RuleSet
	now   func() time.Time
	logf  func(string, ...any)
}

// NewRegenerator builds a Regenerator. The now and logf arguments may be nil,
// in which case wall-clock time and the standard logger are used.
func NewRegenerator(store storage.PlayerStore, rules RuleSet, now func() time.Time, logf func(string, ...any)) *Regenerator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Regenerator{store: store, rules: rules, now: now, logf: logf}
}

// NewPlayer returns the default player row created on first interaction.
func NewPlayer(userID, homeLocationID string, rules RuleSet, now time.Time) storage.PlayerRecord {
	max := rules.MaxVitals(false)
	return storage.PlayerRecord{
		UserID:           userID,
		Health:           max.Health,
		Stamina:          max.Stamina,
		HealthUpdatedAt:  now,
		StaminaUpdatedAt: now,
		ActiveEffects:    map[string]time.Time{},
		LocationID:       homeLocationID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ApplyForUser recomputes one player's vitals in place.
func (r *Regenerator) ApplyForUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	player, err := r.store.GetPlayer(ctx, userID)
	if err != nil {
		return fmt.Errorf("load player %s: %w", userID, err)
	}

	update, apply, err := r.compute(player, r.now())
	if err != nil {
		return fmt.Errorf("compute regen for %s: %w", userID, err)
	}
	if !apply {
		return nil
	}
	if err := r.store.UpdateVitals(ctx, userID, update); err != nil {
		return fmt.Errorf("persist regen for %s: %w", userID, err)
	}
	return nil
}

// ApplyToAll recomputes every player's vitals inside one transaction.
// Per-player failures are isolated inside the store; the aggregate failure
// count is logged here.
func (r *Regenerator) ApplyToAll(ctx context.Context) (storage.VitalsBatchResult, error) {
	now := r.now()
	result, err := r.store.UpdateAllVitals(ctx, func(player storage.PlayerRecord) (storage.VitalsUpdate, bool, error) {
		return r.compute(player, now)
	})
	if err != nil {
		return result, fmt.Errorf("batch regen: %w", err)
	}
	if result.Failed > 0 {
		r.logf("batch regen: %d players failed, %d updated, %d skipped", result.Failed, result.Updated, result.Skipped)
	}
	return result, nil
}

// Status reports current vitals and effective per-minute rates without
// mutating state.
type Status struct {
	Health           float64
	MaxHealth        float64
	Stamina          float64
	MaxStamina       float64
	HealthPerMinute  float64
	StaminaPerMinute float64
	ActiveEffects    map[string]time.Time
}

// Status computes the regen status projection for one player.
func (r *Regenerator) Status(ctx context.Context, userID string) (Status, error) {
	player, err := r.store.GetPlayer(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("load player %s: %w", userID, err)
	}
	now := r.now()

	// Work on a copy of the effects map so the read path never mutates state.
	effects := make(map[string]time.Time, len(player.ActiveEffects))
	for id, expiresAt := range player.ActiveEffects {
		if expiresAt.After(now) {
			effects[id] = expiresAt
		}
	}
	player.ActiveEffects = effects

	multiplier := r.multiplier(player, now)
	rates := r.rules.BaseRates()
	max := r.rules.MaxVitals(player.PremiumTier)

	return Status{
		Health:           player.Health,
		MaxHealth:        max.Health,
		Stamina:          player.Stamina,
		MaxStamina:       max.Stamina,
		HealthPerMinute:  rates.Health * multiplier.Health,
		StaminaPerMinute: rates.Stamina * multiplier.Stamina,
		ActiveEffects:    effects,
	}, nil
}

func (r *Regenerator) multiplier(player storage.PlayerRecord, now time.Time) Multiplier {
	combined := r.rules.BiomeMultiplier(ParseBiome(player.Biome))

	recentCombat := !player.LastCombatAt.IsZero() && now.Sub(player.LastCombatAt) < r.rules.CombatCooldown()
	combined = combined.Mul(r.rules.ActivityPenalty(player.InTransit(now), recentCombat))

	effectMult, _ := EffectsMultiplier(player.ActiveEffects, now, r.rules)
	combined = combined.Mul(effectMult)

	return combined.Mul(r.rules.PremiumMultiplier(player.PremiumTier))
}

func (r *Regenerator) compute(player storage.PlayerRecord, now time.Time) (storage.VitalsUpdate, bool, error) {
	if player.ActiveEffects == nil {
		player.ActiveEffects = map[string]time.Time{}
	}
	pruned := PruneExpiredEffects(player.ActiveEffects, now)

	multiplier := r.multiplier(player, now)
	rates := r.rules.BaseRates()
	max := r.rules.MaxVitals(player.PremiumTier)

	health, healthChanged := Advance(
		Snapshot{Value: player.Health, UpdatedAt: player.HealthUpdatedAt},
		now, rates.Health, multiplier.Health, max.Health,
	)
	stamina, staminaChanged := Advance(
		Snapshot{Value: player.Stamina, UpdatedAt: player.StaminaUpdatedAt},
		now, rates.Stamina, multiplier.Stamina, max.Stamina,
	)

	if !healthChanged && !staminaChanged && !pruned {
		return storage.VitalsUpdate{}, false, nil
	}
	return storage.VitalsUpdate{
		Health:           health.Value,
		HealthUpdatedAt:  health.UpdatedAt,
		Stamina:          stamina.Value,
		StaminaUpdatedAt: stamina.UpdatedAt,
		ActiveEffects:    player.ActiveEffects,
	}, true, nil
}
