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

// GetLocation loads one location row.
func (s *Store) GetLocation(ctx context.Context, id string) (storage.LocationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.LocationRecord{}, err
	}
	if strings.TrimSpace(id) == "" {
		return storage.LocationRecord{}, platformerrors.New(platformerrors.CodeLocationEmptyID, "location id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, x, y, biome, archived, last_encounter_at
FROM locations
WHERE id = ?
`, id)
	location, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return storage.LocationRecord{}, platformerrors.WithMetadata(platformerrors.CodeNotFound,
			"location not found", map[string]string{"location_id": id})
	}
	if err != nil {
		return storage.LocationRecord{}, fmt.Errorf("get location: %w", err)
	}
	return location, nil
}

func scanLocation(row rowScanner) (storage.LocationRecord, error) {
	var location storage.LocationRecord
	var x, y sql.NullFloat64
	var archived int
	var lastEncounterAt int64
	if err := row.Scan(
		&location.ID,
		&location.Name,
		&x,
		&y,
		&location.Biome,
		&archived,
		&lastEncounterAt,
	); err != nil {
		return storage.LocationRecord{}, err
	}
	if x.Valid {
		location.X = &x.Float64
	}
	if y.Valid {
		location.Y = &y.Float64
	}
	location.Archived = archived != 0
	location.LastEncounterAt = fromMillis(lastEncounterAt)
	return location, nil
}

// PutLocation inserts or replaces a location row.
func (s *Store) PutLocation(ctx context.Context, location storage.LocationRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(location.ID) == "" {
		return platformerrors.New(platformerrors.CodeLocationEmptyID, "location id is required")
	}

	var x, y sql.NullFloat64
	if location.X != nil {
		x = sql.NullFloat64{Float64: *location.X, Valid: true}
	}
	if location.Y != nil {
		y = sql.NullFloat64{Float64: *location.Y, Valid: true}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO locations (id, name, x, y, biome, archived, last_encounter_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		location.ID,
		location.Name,
		x,
		y,
		location.Biome,
		boolToInt(location.Archived),
		toMillis(location.LastEncounterAt),
	)
	if err != nil {
		return fmt.Errorf("put location: %w", err)
	}
	return nil
}

// ListSpawnCandidates returns locations eligible to host a new encounter.
// Archived locations, locations without coordinates, the home location,
// locations with an active encounter, and locations inside their per-location
// cooldown are all excluded.
func (s *Store) ListSpawnCandidates(ctx context.Context, now time.Time, homeLocationID string, cooldown time.Duration) ([]storage.LocationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	cutoff := toMillis(now.Add(-cooldown))
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, x, y, biome, archived, last_encounter_at
FROM locations
WHERE archived = 0
  AND x IS NOT NULL
  AND y IS NOT NULL
  AND id != ?
  AND last_encounter_at <= ?
  AND id NOT IN (SELECT location_id FROM boss_encounters WHERE active = 1)
ORDER BY id
`, homeLocationID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list spawn candidates: %w", err)
	}
	defer rows.Close()

	var candidates []storage.LocationRecord
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spawn candidate: %w", err)
		}
		candidates = append(candidates, location)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spawn candidates: %w", err)
	}
	return candidates, nil
}

var _ storage.LocationStore = (*Store)(nil)
