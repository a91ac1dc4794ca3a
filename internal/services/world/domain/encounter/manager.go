// Package encounter maintains the global boss-encounter lifecycle: spawning
// on eligible locations, time-based expiry, externally signaled defeats, and
// reconciliation of the derived fighting capability.
package encounter

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	platformerrors "github.com/emberveil/emberveil/internal/platform/errors"
	"github.com/emberveil/emberveil/internal/platform/id"
	"github.com/emberveil/emberveil/internal/services/world/domain/hooks"
	"github.com/emberveil/emberveil/internal/services/world/storage"
)

// SettingLastGlobalDefeat keys the post-defeat spawn cooldown marker.
const SettingLastGlobalDefeat = "last_global_defeat_at"

// Store is the persistence surface the manager needs.
type Store interface {
	storage.EncounterStore
	storage.LocationStore
	storage.SettingStore
}

// Config carries the lifecycle tuning values. The per-location cooldown and
// the global post-defeat cooldown are deliberately independent settings with
// no derived relationship.
type Config struct {
	// Ceiling caps concurrently active encounters. Default 1.
	Ceiling int
	// TTL is how long a spawned encounter stays active before expiry.
	TTL time.Duration
	// DefeatCooldown gates spawning after any global defeat.
	DefeatCooldown time.Duration
	// LocationCooldown gates re-spawning on the same location.
	LocationCooldown time.Duration
	// HomeLocationID is never selected as a spawn site.
	HomeLocationID string
	// SweepEveryNCycles gates the orphan capability sweep frequency.
	SweepEveryNCycles int
	// BaseHP and HPScalingFactor size encounters by tier.
	BaseHP          int64
	HPScalingFactor float64
	// TierWeights is the tier 1-5 spawn distribution, summing to 100.
	TierWeights [5]int
}

func (c Config) normalized() Config {
	if c.Ceiling <= 0 {
		c.Ceiling = 1
	}
	if c.TTL <= 0 {
		c.TTL = 2 * time.Hour
	}
	if c.SweepEveryNCycles <= 0 {
		c.SweepEveryNCycles = 2
	}
	if c.BaseHP <= 0 {
		c.BaseHP = 1000
	}
	return c
}

// CycleReport summarizes one lifecycle cycle for logging and tests.
type CycleReport struct {
	Expired      int
	Spawned      bool
	SpawnedID    string
	SkipReason   string
	SweepRan     bool
	SweepRevoked int
}

// Manager runs the encounter lifecycle. The cycle counter gating the orphan
// sweep is a field here, constructed once and threaded through every cycle.
type Manager struct {
	store      Store
	capability hooks.FightingCapability
	notifier   hooks.Notifier
	cfg        Config
	rng        *rand.Rand
	now        func() time.Time
	logf       func(string, ...any)

	cycles int
}

// NewManager builds a Manager. rng, now, and logf may be nil.
func NewManager(store Store, capability hooks.FightingCapability, notifier hooks.Notifier, cfg Config, rng *rand.Rand, now func() time.Time, logf func(string, ...any)) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Manager{
		store:      store,
		capability: capability,
		notifier:   notifier,
		cfg:        cfg.normalized(),
		rng:        rng,
		now:        now,
		logf:       logf,
	}
}

// RunLifecycleCycle expires stale encounters, spawns at most one new
// encounter when eligible, and periodically sweeps orphaned capabilities.
func (m *Manager) RunLifecycleCycle(ctx context.Context) (report CycleReport, err error) {
	now := m.now()

	expired, err := m.store.ListActiveExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list expired encounters: %w", err)
	}
	for _, enc := range expired {
		if err := m.retire(ctx, enc, "expired"); err != nil {
			// Batch item failure: log and keep retiring the rest.
			m.logf("expire encounter %s: %v", enc.ID, err)
			continue
		}
		report.Expired++
	}

	m.cycles++
	defer func() {
		if m.cycles%m.cfg.SweepEveryNCycles == 0 {
			revoked, err := m.SweepOrphanCapabilities(ctx)
			if err != nil {
				m.logf("orphan capability sweep: %v", err)
				return
			}
			report.SweepRan = true
			report.SweepRevoked = revoked
		}
	}()

	active, err := m.store.CountActiveEncounters(ctx)
	if err != nil {
		return report, fmt.Errorf("count active encounters: %w", err)
	}
	if active >= m.cfg.Ceiling {
		report.SkipReason = "ceiling"
		return report, nil
	}

	lastDefeat, err := m.store.SettingTime(ctx, SettingLastGlobalDefeat)
	if err != nil {
		return report, fmt.Errorf("read defeat cooldown: %w", err)
	}
	if !lastDefeat.IsZero() && now.Sub(lastDefeat) < m.cfg.DefeatCooldown {
		report.SkipReason = "defeat_cooldown"
		return report, nil
	}

	candidates, err := m.store.ListSpawnCandidates(ctx, now, m.cfg.HomeLocationID, m.cfg.LocationCooldown)
	if err != nil {
		return report, fmt.Errorf("list spawn candidates: %w", err)
	}
	if len(candidates) == 0 {
		report.SkipReason = "no_candidates"
		return report, nil
	}
	site := candidates[m.rng.Intn(len(candidates))]

	enc, err := m.buildSpawn(site.ID, now)
	if err != nil {
		return report, err
	}
	if err := m.store.SpawnEncounter(ctx, enc, m.cfg.Ceiling); err != nil {
		if platformerrors.IsCode(err, platformerrors.CodeEncounterCeiling) {
			// A concurrent runner won the spawn; the invariant held.
			report.SkipReason = "ceiling"
			return report, nil
		}
		return report, fmt.Errorf("spawn encounter: %w", err)
	}
	report.Spawned = true
	report.SpawnedID = enc.ID

	hooks.BestEffort(m.logf, "spawn notification", func() error {
		if m.notifier == nil {
			return nil
		}
		return m.notifier.Notify(ctx, "encounter.spawned", map[string]any{
			"encounter_id": enc.ID,
			"location_id":  enc.LocationID,
			"name":         enc.Name,
			"tier":         enc.Tier,
			"max_hp":       enc.MaxHP,
			"expires_at":   enc.ExpiresAt,
		})
	})
	return report, nil
}

func (m *Manager) buildSpawn(locationID string, now time.Time) (storage.EncounterRecord, error) {
	encounterID, err := id.NewID()
	if err != nil {
		return storage.EncounterRecord{}, fmt.Errorf("generate encounter id: %w", err)
	}
	tier := PickTier(m.rng, m.cfg.TierWeights)
	maxHP := ScaledMaxHP(m.cfg.BaseHP, tier, m.cfg.HPScalingFactor)
	return storage.EncounterRecord{
		ID:         encounterID,
		LocationID: locationID,
		Name:       PickName(m.rng, tier),
		MaxHP:      maxHP,
		HP:         maxHP,
		Tier:       int(tier),
		StartedAt:  now,
		ExpiresAt:  now.Add(m.cfg.TTL),
		Active:     true,
	}, nil
}

// RecordDefeat retires an encounter whose hp reached zero and arms the
// global post-defeat spawn cooldown.
func (m *Manager) RecordDefeat(ctx context.Context, encounterID string) error {
	if encounterID == "" {
		return platformerrors.New(platformerrors.CodeEncounterEmptyID, "encounter id is required")
	}
	enc, err := m.store.GetEncounter(ctx, encounterID)
	if err != nil {
		return fmt.Errorf("load encounter %s: %w", encounterID, err)
	}
	if !enc.Active {
		return platformerrors.WithMetadata(platformerrors.CodeEncounterInactive,
			"encounter is already inactive", map[string]string{"encounter_id": encounterID})
	}

	enc.HP = 0
	if err := m.retire(ctx, enc, "defeated"); err != nil {
		return err
	}
	if err := m.store.SetSettingTime(ctx, SettingLastGlobalDefeat, m.now()); err != nil {
		return fmt.Errorf("record defeat cooldown: %w", err)
	}
	return nil
}

// retire flips an encounter inactive, releases participant capabilities, and
// clears the participant rows. Capability revocation is best-effort; the
// orphan sweep is the convergence guarantee when it fails.
func (m *Manager) retire(ctx context.Context, enc storage.EncounterRecord, reason string) error {
	if err := m.store.DeactivateEncounter(ctx, enc.ID, enc.HP); err != nil {
		return fmt.Errorf("deactivate encounter %s: %w", enc.ID, err)
	}

	participants, err := m.store.ListParticipants(ctx, enc.ID)
	if err != nil {
		return fmt.Errorf("list participants of %s: %w", enc.ID, err)
	}
	for _, participant := range participants {
		userID := participant.UserID
		remaining, err := m.store.CountActiveParticipations(ctx, userID)
		if err != nil {
			m.logf("count active participations for %s: %v", userID, err)
			continue
		}
		if remaining > 0 {
			// Still fighting another active encounter; the capability stays.
			continue
		}
		if m.capability != nil {
			hooks.BestEffort(m.logf, "revoke fighting role", func() error {
				return m.capability.RevokeFightingRole(ctx, enc.LocationID, userID)
			})
		}
	}

	if err := m.store.DeleteParticipants(ctx, enc.ID); err != nil {
		return fmt.Errorf("delete participants of %s: %w", enc.ID, err)
	}

	hooks.BestEffort(m.logf, "retire notification", func() error {
		if m.notifier == nil {
			return nil
		}
		return m.notifier.Notify(ctx, "encounter."+reason, map[string]any{
			"encounter_id": enc.ID,
			"location_id":  enc.LocationID,
			"name":         enc.Name,
			"participants": len(participants),
		})
	})
	return nil
}

// SweepOrphanCapabilities revokes the fighting capability from users who are
// not a participant of any active encounter. It exists because revocation at
// retire time can fail transiently.
func (m *Manager) SweepOrphanCapabilities(ctx context.Context) (int, error) {
	if m.capability == nil {
		return 0, nil
	}
	holders, err := m.capability.FightingRoleHolders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list fighting role holders: %w", err)
	}

	revoked := 0
	for _, userID := range holders {
		active, err := m.store.CountActiveParticipations(ctx, userID)
		if err != nil {
			m.logf("count active participations for %s: %v", userID, err)
			continue
		}
		if active > 0 {
			continue
		}
		hooks.BestEffort(m.logf, "revoke orphan fighting role", func() error {
			return m.capability.RevokeFightingRole(ctx, "", userID)
		})
		revoked++
	}
	return revoked, nil
}
