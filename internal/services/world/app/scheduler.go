package app

import (
	"context"
	"log"
	"time"

	"github.com/emberveil/emberveil/internal/services/world/domain/encounter"
	"github.com/emberveil/emberveil/internal/services/world/storage"
)

// TravelCompleter finishes trips whose arrival time has passed.
type TravelCompleter interface {
	CompleteDueTravels(ctx context.Context) (int, error)
}

// RegenRunner applies vitals regeneration across the player base.
type RegenRunner interface {
	ApplyToAll(ctx context.Context) (storage.VitalsBatchResult, error)
}

// BossCycler runs one boss encounter lifecycle cycle.
type BossCycler interface {
	RunLifecycleCycle(ctx context.Context) (encounter.CycleReport, error)
}

// DriverConfig controls the simulation tick cadence.
type DriverConfig struct {
	// TickInterval is how often the world advances. Defaults to one minute.
	TickInterval time.Duration
	// BossEveryNTicks runs the encounter lifecycle on every Nth tick.
	// Defaults to 5.
	BossEveryNTicks int
}

func (c DriverConfig) normalized() DriverConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.BossEveryNTicks <= 0 {
		c.BossEveryNTicks = 5
	}
	return c
}

// Driver advances the world on a fixed cadence. Each tick completes due
// travels first, then regenerates vitals, and periodically runs the boss
// encounter lifecycle. A failing step never stops the loop or the other
// steps in the same tick.
type Driver struct {
	travel TravelCompleter
	regen  RegenRunner
	boss   BossCycler
	cfg    DriverConfig
	logf   func(format string, args ...any)

	ticks int
}

// NewDriver wires the tick loop. A nil logf falls back to log.Printf.
func NewDriver(travel TravelCompleter, regen RegenRunner, boss BossCycler, cfg DriverConfig, logf func(format string, args ...any)) *Driver {
	if logf == nil {
		logf = log.Printf
	}
	return &Driver{
		travel: travel,
		regen:  regen,
		boss:   boss,
		cfg:    cfg.normalized(),
		logf:   logf,
	}
}

// Run ticks until the context is canceled. The first tick fires immediately
// so a restarted world catches up without waiting a full interval.
func (d *Driver) Run(ctx context.Context) error {
	d.Tick(ctx)

	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick advances the world once. Travel completion runs before regeneration
// so a player who just arrived regenerates at their destination's rate.
func (d *Driver) Tick(ctx context.Context) {
	d.ticks++

	if d.travel != nil {
		if completed, err := d.travel.CompleteDueTravels(ctx); err != nil {
			d.logf("complete due travels: %v", err)
		} else if completed > 0 {
			d.logf("completed %d travels", completed)
		}
	}

	if d.regen != nil {
		if result, err := d.regen.ApplyToAll(ctx); err != nil {
			d.logf("apply regeneration: %v", err)
		} else if result.Failed > 0 {
			d.logf("regeneration updated %d players, %d failed", result.Updated, result.Failed)
		}
	}

	if d.boss != nil && d.ticks%d.cfg.BossEveryNTicks == 0 {
		if report, err := d.boss.RunLifecycleCycle(ctx); err != nil {
			d.logf("boss lifecycle cycle: %v", err)
		} else if report.SpawnedID != "" {
			d.logf("spawned encounter %s", report.SpawnedID)
		}
	}
}
