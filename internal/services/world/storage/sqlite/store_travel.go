package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	platformerrors "github.com/emberveil/emberveil/internal/platform/errors"
	"github.com/emberveil/emberveil/internal/services/world/domain/travel"
	"github.com/emberveil/emberveil/internal/services/world/storage"
)

// SetTravel records an in-progress travel for a player. The destination is
// written to location_id and the origin preserved in travel_from_id, matching
// how the command layer moves players.
func (s *Store) SetTravel(ctx context.Context, userID, fromLocationID, toLocationID string, startAt, arrivalAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return platformerrors.New(platformerrors.CodePlayerEmptyID, "user id is required")
	}
	if !arrivalAt.After(startAt) {
		return fmt.Errorf("arrival must be after start")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE players
SET location_id = ?,
    travel_from_id = ?,
    travel_start_at = ?,
    travel_arrival_at = ?,
    updated_at = ?
WHERE user_id = ?
`,
		toLocationID,
		fromLocationID,
		toMillis(startAt),
		toMillis(arrivalAt),
		time.Now().UTC().UnixMilli(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("set travel: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set travel: %w", err)
	}
	if affected == 0 {
		return platformerrors.WithMetadata(platformerrors.CodeNotFound,
			"player not found", map[string]string{"user_id": userID})
	}
	return nil
}

// ClaimDueTravels finalizes every due travel in one transaction: it selects
// players whose arrival time has passed, appends their history rows, resolves
// the final location, and clears the travel fields. Because the select and
// the clear share a transaction, a concurrent claim can never re-process the
// same travel.
func (s *Store) ClaimDueTravels(ctx context.Context, now time.Time, fallbackLocationID string) ([]storage.CompletedTravel, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin travel claim: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
SELECT user_id, location_id, travel_from_id, travel_start_at, travel_arrival_at
FROM players
WHERE travel_arrival_at > 0 AND travel_arrival_at <= ?
`, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("select due travels: %w", err)
	}

	type dueTravel struct {
		userID    string
		toID      string
		fromID    string
		startAt   int64
		arrivalAt int64
	}
	var due []dueTravel
	for rows.Next() {
		var row dueTravel
		if err := rows.Scan(&row.userID, &row.toID, &row.fromID, &row.startAt, &row.arrivalAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan due travel: %w", err)
		}
		due = append(due, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate due travels: %w", err)
	}
	rows.Close()

	completed := make([]storage.CompletedTravel, 0, len(due))
	for _, row := range due {
		trip := storage.CompletedTravel{
			UserID:          row.userID,
			FromLocationID:  row.fromID,
			ToLocationID:    row.toID,
			FinalLocationID: row.toID,
			Landmark:        travel.IsLandmarkID(row.toID),
			DurationMs:      row.arrivalAt - row.startAt,
			CompletedAt:     fromMillis(row.arrivalAt),
		}
		if trip.Landmark {
			// Landmarks are not stayable: arrival returns the player to the
			// origin, or to the fallback when the origin row is gone.
			trip.FinalLocationID = row.fromID
			if !s.locationExistsTx(ctx, tx, row.fromID) {
				trip.FinalLocationID = fallbackLocationID
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO travel_history (user_id, from_location_id, to_location_id, duration_ms, completed_at)
VALUES (?, ?, ?, ?, ?)
`,
			trip.UserID, trip.FromLocationID, trip.ToLocationID, trip.DurationMs, toMillis(trip.CompletedAt),
		); err != nil {
			return nil, fmt.Errorf("append travel history: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE players
SET location_id = ?,
    travel_from_id = '',
    travel_start_at = 0,
    travel_arrival_at = 0,
    updated_at = ?
WHERE user_id = ?
`,
			trip.FinalLocationID, toMillis(now), trip.UserID,
		); err != nil {
			return nil, fmt.Errorf("clear travel fields: %w", err)
		}
		completed = append(completed, trip)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit travel claim: %w", err)
	}
	return completed, nil
}

func (s *Store) locationExistsTx(ctx context.Context, tx *sql.Tx, id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	var exists int
	err := tx.QueryRowContext(ctx, `
SELECT COUNT(1) FROM locations WHERE id = ? AND archived = 0
`, id).Scan(&exists)
	return err == nil && exists > 0
}

// ListTravelHistory lists newest-first completed travels for a player.
func (s *Store) ListTravelHistory(ctx context.Context, userID string, limit int) ([]storage.TravelHistoryEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, platformerrors.New(platformerrors.CodePlayerEmptyID, "user id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, user_id, from_location_id, to_location_id, duration_ms, completed_at
FROM travel_history
WHERE user_id = ?
ORDER BY completed_at DESC, id DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list travel history: %w", err)
	}
	defer rows.Close()

	entries := make([]storage.TravelHistoryEntry, 0, limit)
	for rows.Next() {
		var entry storage.TravelHistoryEntry
		var completedAt int64
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.FromLocationID,
			&entry.ToLocationID,
			&entry.DurationMs,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("scan travel history: %w", err)
		}
		entry.CompletedAt = fromMillis(completedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate travel history: %w", err)
	}
	return entries, nil
}

var _ storage.TravelStore = (*Store)(nil)
