package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	platformerrors "github.com/emberveil/emberveil/internal/platform/errors"
	"github.com/emberveil/emberveil/internal/services/world/storage"
)

const playerColumns = `
	user_id,
	health,
	stamina,
	health_updated_at,
	stamina_updated_at,
	premium_tier,
	biome,
	last_combat_at,
	active_effects,
	location_id,
	travel_from_id,
	travel_start_at,
	travel_arrival_at,
	created_at,
	updated_at`

// encodeEffects serializes the typed effects map at the storage boundary.
// Business logic only ever sees the typed map.
func encodeEffects(effects map[string]time.Time) (string, error) {
	if len(effects) == 0 {
		return "{}", nil
	}
	encoded := make(map[string]int64, len(effects))
	for id, expiresAt := range effects {
		encoded[id] = toMillis(expiresAt)
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("encode active effects: %w", err)
	}
	return string(raw), nil
}

func decodeEffects(raw string) (map[string]time.Time, error) {
	effects := map[string]time.Time{}
	if strings.TrimSpace(raw) == "" {
		return effects, nil
	}
	var encoded map[string]int64
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return nil, fmt.Errorf("decode active effects: %w", err)
	}
	for id, millis := range encoded {
		effects[id] = fromMillis(millis)
	}
	return effects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (storage.PlayerRecord, error) {
	var player storage.PlayerRecord
	var healthUpdatedAt, staminaUpdatedAt, lastCombatAt int64
	var travelStartAt, travelArrivalAt, createdAt, updatedAt int64
	var premiumTier int
	var rawEffects string
	if err := row.Scan(
		&player.UserID,
		&player.Health,
		&player.Stamina,
		&healthUpdatedAt,
		&staminaUpdatedAt,
		&premiumTier,
		&player.Biome,
		&lastCombatAt,
		&rawEffects,
		&player.LocationID,
		&player.TravelFromID,
		&travelStartAt,
		&travelArrivalAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.PlayerRecord{}, err
	}
	effects, err := decodeEffects(rawEffects)
	if err != nil {
		return storage.PlayerRecord{}, err
	}
	player.HealthUpdatedAt = fromMillis(healthUpdatedAt)
	player.StaminaUpdatedAt = fromMillis(staminaUpdatedAt)
	player.PremiumTier = premiumTier != 0
	player.LastCombatAt = fromMillis(lastCombatAt)
	player.ActiveEffects = effects
	player.TravelStartAt = fromMillis(travelStartAt)
	player.TravelArrivalAt = fromMillis(travelArrivalAt)
	player.CreatedAt = fromMillis(createdAt)
	player.UpdatedAt = fromMillis(updatedAt)
	return player, nil
}

// GetPlayer loads one player row.
func (s *Store) GetPlayer(ctx context.Context, userID string) (storage.PlayerRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PlayerRecord{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return storage.PlayerRecord{}, platformerrors.New(platformerrors.CodePlayerEmptyID, "user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT`+playerColumns+`
FROM players
WHERE user_id = ?
`, userID)
	player, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return storage.PlayerRecord{}, platformerrors.WithMetadata(platformerrors.CodeNotFound,
			"player not found", map[string]string{"user_id": userID})
	}
	if err != nil {
		return storage.PlayerRecord{}, fmt.Errorf("get player: %w", err)
	}
	return player, nil
}

// EnsurePlayer returns the stored player, inserting defaults on first
// interaction.
func (s *Store) EnsurePlayer(ctx context.Context, defaults storage.PlayerRecord) (storage.PlayerRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PlayerRecord{}, err
	}
	if strings.TrimSpace(defaults.UserID) == "" {
		return storage.PlayerRecord{}, platformerrors.New(platformerrors.CodePlayerEmptyID, "user id is required")
	}

	if err := s.insertPlayer(ctx, s.sqlDB, defaults, true); err != nil {
		return storage.PlayerRecord{}, fmt.Errorf("ensure player: %w", err)
	}
	return s.GetPlayer(ctx, defaults.UserID)
}

// PutPlayer inserts or replaces a player row.
func (s *Store) PutPlayer(ctx context.Context, player storage.PlayerRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(player.UserID) == "" {
		return platformerrors.New(platformerrors.CodePlayerEmptyID, "user id is required")
	}
	if err := s.insertPlayer(ctx, s.sqlDB, player, false); err != nil {
		return fmt.Errorf("put player: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertPlayer(ctx context.Context, db execer, player storage.PlayerRecord, ignoreExisting bool) error {
	rawEffects, err := encodeEffects(player.ActiveEffects)
	if err != nil {
		return err
	}
	verb := "INSERT OR REPLACE"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now().UTC()
	}
	if player.UpdatedAt.IsZero() {
		player.UpdatedAt = player.CreatedAt
	}
	_, err = db.ExecContext(ctx, verb+` INTO players (`+playerColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		player.UserID,
		player.Health,
		player.Stamina,
		toMillis(player.HealthUpdatedAt),
		toMillis(player.StaminaUpdatedAt),
		boolToInt(player.PremiumTier),
		player.Biome,
		toMillis(player.LastCombatAt),
		rawEffects,
		player.LocationID,
		player.TravelFromID,
		toMillis(player.TravelStartAt),
		toMillis(player.TravelArrivalAt),
		toMillis(player.CreatedAt),
		toMillis(player.UpdatedAt),
	)
	return err
}

// UpdateVitals persists one player's recomputed vitals.
func (s *Store) UpdateVitals(ctx context.Context, userID string, update storage.VitalsUpdate) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return platformerrors.New(platformerrors.CodePlayerEmptyID, "user id is required")
	}
	if err := applyVitals(ctx, s.sqlDB, userID, update); err != nil {
		return fmt.Errorf("update vitals: %w", err)
	}
	return nil
}

func applyVitals(ctx context.Context, db execer, userID string, update storage.VitalsUpdate) error {
	rawEffects, err := encodeEffects(update.ActiveEffects)
	if err != nil {
		return err
	}
	result, err := db.ExecContext(ctx, `
UPDATE players
SET health = ?,
    health_updated_at = ?,
    stamina = ?,
    stamina_updated_at = ?,
    active_effects = ?,
    updated_at = ?
WHERE user_id = ?
`,
		update.Health,
		toMillis(update.HealthUpdatedAt),
		update.Stamina,
		toMillis(update.StaminaUpdatedAt),
		rawEffects,
		time.Now().UTC().UnixMilli(),
		userID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return platformerrors.WithMetadata(platformerrors.CodeNotFound,
			"player not found", map[string]string{"user_id": userID})
	}
	return nil
}

// UpdateAllVitals recomputes every player's vitals inside one transaction.
// Compute or write failures on individual rows are counted and skipped so
// one corrupt row never blocks the batch.
func (s *Store) UpdateAllVitals(ctx context.Context, compute storage.VitalsComputer) (storage.VitalsBatchResult, error) {
	result := storage.VitalsBatchResult{}
	if err := s.ready(ctx); err != nil {
		return result, err
	}
	if compute == nil {
		return result, fmt.Errorf("vitals computer is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin vitals batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `SELECT`+playerColumns+` FROM players`)
	if err != nil {
		return result, fmt.Errorf("list players: %w", err)
	}

	var players []storage.PlayerRecord
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			result.Failed++
			continue
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return result, fmt.Errorf("iterate players: %w", err)
	}
	rows.Close()

	for _, player := range players {
		update, apply, err := compute(player)
		if err != nil {
			result.Failed++
			continue
		}
		if !apply {
			result.Skipped++
			continue
		}
		if err := applyVitals(ctx, tx, player.UserID, update); err != nil {
			result.Failed++
			continue
		}
		result.Updated++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit vitals batch: %w", err)
	}
	return result, nil
}

var _ storage.PlayerStore = (*Store)(nil)
