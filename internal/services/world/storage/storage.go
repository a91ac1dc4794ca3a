// Package storage defines persistence contracts for the world service.
package storage

import (
	"context"
	"time"
)

// PlayerRecord is one persisted player row.
type PlayerRecord struct {
	UserID           string
	Health           float64
	Stamina          float64
	HealthUpdatedAt  time.Time
	StaminaUpdatedAt time.Time
	PremiumTier      bool
	Biome            string
	LastCombatAt     time.Time // zero means never in combat
	ActiveEffects    map[string]time.Time
	LocationID       string
	TravelFromID     string
	TravelStartAt    time.Time // zero when idle
	TravelArrivalAt  time.Time // zero when idle
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InTransit reports whether the player has an unfinished travel at now.
func (p PlayerRecord) InTransit(now time.Time) bool {
	return !p.TravelArrivalAt.IsZero() && p.TravelArrivalAt.After(now)
}

// VitalsUpdate carries the mutable regen outputs applied back to a player row.
type VitalsUpdate struct {
	Health           float64
	HealthUpdatedAt  time.Time
	Stamina          float64
	StaminaUpdatedAt time.Time
	ActiveEffects    map[string]time.Time
}

// VitalsComputer derives a vitals update from the current player row.
// The second return value reports whether the update should be persisted.
type VitalsComputer func(PlayerRecord) (VitalsUpdate, bool, error)

// VitalsBatchResult summarizes one batch regen pass.
type VitalsBatchResult struct {
	Updated int
	Skipped int
	Failed  int
}

// PlayerStore persists player rows and their vitals.
type PlayerStore interface {
	GetPlayer(ctx context.Context, userID string) (PlayerRecord, error)
	// EnsurePlayer returns the stored player, creating it from defaults when
	// no row exists yet.
	EnsurePlayer(ctx context.Context, defaults PlayerRecord) (PlayerRecord, error)
	PutPlayer(ctx context.Context, player PlayerRecord) error
	UpdateVitals(ctx context.Context, userID string, update VitalsUpdate) error
	// UpdateAllVitals runs compute for every player inside one transaction.
	// Per-row compute or write failures are counted and skipped so a single
	// bad row never aborts the batch.
	UpdateAllVitals(ctx context.Context, compute VitalsComputer) (VitalsBatchResult, error)
}

// CompletedTravel is one travel claimed and finalized by ClaimDueTravels.
type CompletedTravel struct {
	UserID          string
	FromLocationID  string
	ToLocationID    string
	FinalLocationID string
	Landmark        bool
	DurationMs      int64
	CompletedAt     time.Time
}

// TravelHistoryEntry is one append-only completed travel row.
type TravelHistoryEntry struct {
	ID             int64
	UserID         string
	FromLocationID string
	ToLocationID   string
	DurationMs     int64
	CompletedAt    time.Time
}

// TravelStore persists travel state and history.
type TravelStore interface {
	// SetTravel records an in-progress travel for a player. Starting a travel
	// is driven by the command layer; the world service owns completion.
	SetTravel(ctx context.Context, userID, fromLocationID, toLocationID string, startAt, arrivalAt time.Time) error
	// ClaimDueTravels selects every due travel, appends its history entry,
	// resolves the final location (landmark arrivals return the player to the
	// origin, or to fallbackLocationID when the origin is unknown), and clears
	// the travel fields, all inside a single transaction so a concurrent call
	// can never claim the same travel twice.
	ClaimDueTravels(ctx context.Context, now time.Time, fallbackLocationID string) ([]CompletedTravel, error)
	ListTravelHistory(ctx context.Context, userID string, limit int) ([]TravelHistoryEntry, error)
}

// LocationRecord is one persisted location row.
type LocationRecord struct {
	ID              string
	Name            string
	X               *float64
	Y               *float64
	Biome           string
	Archived        bool
	LastEncounterAt time.Time // zero means never hosted an encounter
}

// HasCoordinates reports whether the location carries map coordinates.
func (l LocationRecord) HasCoordinates() bool {
	return l.X != nil && l.Y != nil
}

// LocationStore persists locations.
type LocationStore interface {
	GetLocation(ctx context.Context, id string) (LocationRecord, error)
	PutLocation(ctx context.Context, location LocationRecord) error
	// ListSpawnCandidates returns locations eligible to host a new encounter:
	// not archived, with coordinates, not the home location, without an active
	// encounter, and with last_encounter_at older than cooldown.
	ListSpawnCandidates(ctx context.Context, now time.Time, homeLocationID string, cooldown time.Duration) ([]LocationRecord, error)
}

// EncounterRecord is one boss encounter row.
type EncounterRecord struct {
	ID         string
	LocationID string
	Name       string
	MaxHP      int64
	HP         int64
	Tier       int
	StartedAt  time.Time
	ExpiresAt  time.Time
	Active     bool
}

// ParticipantRecord joins a player to an encounter with damage attribution.
type ParticipantRecord struct {
	EncounterID string
	UserID      string
	DamageDealt int64
}

// EncounterStore persists boss encounters and their participants.
type EncounterStore interface {
	GetEncounter(ctx context.Context, id string) (EncounterRecord, error)
	CountActiveEncounters(ctx context.Context) (int, error)
	// ListActiveExpired returns active encounters whose expires_at has passed.
	ListActiveExpired(ctx context.Context, now time.Time) ([]EncounterRecord, error)
	// DeactivateEncounter flips active to false. Inactive rows are immutable
	// history and are never reactivated.
	DeactivateEncounter(ctx context.Context, id string, hp int64) error
	// SpawnEncounter inserts an active encounter and stamps the location's
	// last_encounter_at inside one transaction, re-checking the active-count
	// ceiling so two concurrent spawners cannot both commit.
	SpawnEncounter(ctx context.Context, encounter EncounterRecord, ceiling int) error
	AddParticipantDamage(ctx context.Context, encounterID, userID string, damage int64) error
	ListParticipants(ctx context.Context, encounterID string) ([]ParticipantRecord, error)
	DeleteParticipants(ctx context.Context, encounterID string) error
	// CountActiveParticipations counts how many active encounters the user is
	// currently a participant of.
	CountActiveParticipations(ctx context.Context, userID string) (int, error)
}

// SettingStore is a generic key to timestamp store for lifecycle cooldowns.
type SettingStore interface {
	// SettingTime returns the stored timestamp, or the zero time when unset.
	SettingTime(ctx context.Context, key string) (time.Time, error)
	SetSettingTime(ctx context.Context, key string, value time.Time) error
}
