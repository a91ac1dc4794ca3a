package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	platformerrors "github.com/emberveil/emberveil/internal/platform/errors"
	"github.com/emberveil/emberveil/internal/services/world/storage"
)

const encounterColumns = `id, location_id, name, max_hp, hp, tier, started_at, expires_at, active`

func scanEncounter(row rowScanner) (storage.EncounterRecord, error) {
	var enc storage.EncounterRecord
	var active int
	var startedAt, expiresAt int64
	if err := row.Scan(
		&enc.ID,
		&enc.LocationID,
		&enc.Name,
		&enc.MaxHP,
		&enc.HP,
		&enc.Tier,
		&startedAt,
		&expiresAt,
		&active,
	); err != nil {
		return storage.EncounterRecord{}, err
	}
	enc.StartedAt = fromMillis(startedAt)
	enc.ExpiresAt = fromMillis(expiresAt)
	enc.Active = active != 0
	return enc, nil
}

// GetEncounter loads one boss encounter row.
func (s *Store) GetEncounter(ctx context.Context, id string) (storage.EncounterRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.EncounterRecord{}, err
	}
	if strings.TrimSpace(id) == "" {
		return storage.EncounterRecord{}, platformerrors.New(platformerrors.CodeEncounterEmptyID, "encounter id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+encounterColumns+` FROM boss_encounters WHERE id = ?`, id)
	enc, err := scanEncounter(row)
	if err == sql.ErrNoRows {
		return storage.EncounterRecord{}, platformerrors.WithMetadata(platformerrors.CodeNotFound,
			"encounter not found", map[string]string{"encounter_id": id})
	}
	if err != nil {
		return storage.EncounterRecord{}, fmt.Errorf("get encounter: %w", err)
	}
	return enc, nil
}

// CountActiveEncounters returns the number of encounters with active = 1.
func (s *Store) CountActiveEncounters(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM boss_encounters WHERE active = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active encounters: %w", err)
	}
	return count, nil
}

// ListActiveExpired returns active encounters whose expiry is at or before now.
func (s *Store) ListActiveExpired(ctx context.Context, now time.Time) ([]storage.EncounterRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+encounterColumns+` FROM boss_encounters WHERE active = 1 AND expires_at <= ?`,
		toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("list expired encounters: %w", err)
	}
	defer rows.Close()

	var expired []storage.EncounterRecord
	for rows.Next() {
		enc, err := scanEncounter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired encounter: %w", err)
		}
		expired = append(expired, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired encounters: %w", err)
	}
	return expired, nil
}

// DeactivateEncounter marks an encounter inactive and records its final HP.
func (s *Store) DeactivateEncounter(ctx context.Context, id string, hp int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return platformerrors.New(platformerrors.CodeEncounterEmptyID, "encounter id is required")
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE boss_encounters SET active = 0, hp = ? WHERE id = ?`, hp, id)
	if err != nil {
		return fmt.Errorf("deactivate encounter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate encounter affected: %w", err)
	}
	if affected == 0 {
		return platformerrors.WithMetadata(platformerrors.CodeNotFound,
			"encounter not found", map[string]string{"encounter_id": id})
	}
	return nil
}

// SpawnEncounter inserts a new active encounter. The active-encounter count is
// re-checked inside the transaction so two overlapping cycles cannot both
// spawn past the ceiling.
func (s *Store) SpawnEncounter(ctx context.Context, encounter storage.EncounterRecord, ceiling int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(encounter.ID) == "" {
		return platformerrors.New(platformerrors.CodeEncounterEmptyID, "encounter id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin spawn encounter: %w", err)
	}
	defer tx.Rollback()

	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM boss_encounters WHERE active = 1`).Scan(&active); err != nil {
		return fmt.Errorf("spawn encounter count: %w", err)
	}
	if active >= ceiling {
		return platformerrors.WithMetadata(platformerrors.CodeEncounterCeiling,
			"active encounter ceiling reached", map[string]string{"location_id": encounter.LocationID})
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO boss_encounters (id, location_id, name, max_hp, hp, tier, started_at, expires_at, active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
`,
		encounter.ID,
		encounter.LocationID,
		encounter.Name,
		encounter.MaxHP,
		encounter.HP,
		encounter.Tier,
		toMillis(encounter.StartedAt),
		toMillis(encounter.ExpiresAt),
	); err != nil {
		return fmt.Errorf("insert encounter: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE locations SET last_encounter_at = ? WHERE id = ?`,
		toMillis(encounter.StartedAt), encounter.LocationID); err != nil {
		return fmt.Errorf("stamp location encounter time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spawn encounter: %w", err)
	}
	return nil
}

// AddParticipantDamage upserts a participant row, accumulating damage dealt.
func (s *Store) AddParticipantDamage(ctx context.Context, encounterID, userID string, damage int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(encounterID) == "" {
		return platformerrors.New(platformerrors.CodeEncounterEmptyID, "encounter id is required")
	}
	if strings.TrimSpace(userID) == "" {
		return platformerrors.New(platformerrors.CodePlayerEmptyID, "user id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO encounter_participants (encounter_id, user_id, damage_dealt)
VALUES (?, ?, ?)
ON CONFLICT (encounter_id, user_id)
DO UPDATE SET damage_dealt = damage_dealt + excluded.damage_dealt
`, encounterID, userID, damage)
	if err != nil {
		return fmt.Errorf("add participant damage: %w", err)
	}
	return nil
}

// ListParticipants returns all participants of an encounter ordered by damage.
func (s *Store) ListParticipants(ctx context.Context, encounterID string) ([]storage.ParticipantRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT encounter_id, user_id, damage_dealt
FROM encounter_participants
WHERE encounter_id = ?
ORDER BY damage_dealt DESC, user_id
`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []storage.ParticipantRecord
	for rows.Next() {
		var p storage.ParticipantRecord
		if err := rows.Scan(&p.EncounterID, &p.UserID, &p.DamageDealt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

// DeleteParticipants removes all participant rows for an encounter.
func (s *Store) DeleteParticipants(ctx context.Context, encounterID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM encounter_participants WHERE encounter_id = ?`, encounterID); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	return nil
}

// CountActiveParticipations counts how many still-active encounters a user
// participates in.
func (s *Store) CountActiveParticipations(ctx context.Context, userID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM encounter_participants p
JOIN boss_encounters e ON e.id = p.encounter_id
WHERE p.user_id = ? AND e.active = 1
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active participations: %w", err)
	}
	return count, nil
}

var _ storage.EncounterStore = (*Store)(nil)
