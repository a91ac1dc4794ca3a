package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	platformerrors "github.com/emberveil/emberveil/internal/platform/errors"
	"github.com/emberveil/emberveil/internal/services/world/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func testPlayer(userID string, at time.Time) storage.PlayerRecord {
	return storage.PlayerRecord{
		UserID:           userID,
		Health:           50,
		Stamina:          60,
		HealthUpdatedAt:  at,
		StaminaUpdatedAt: at,
		Biome:            "meadow",
		ActiveEffects:    map[string]time.Time{},
		LocationID:       "town-square",
		CreatedAt:        at,
		UpdatedAt:        at,
	}
}

func TestPutAndGetPlayer(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	player := testPlayer("u1", now)
	player.PremiumTier = true
	player.LastCombatAt = now.Add(-5 * time.Minute)
	player.ActiveEffects = map[string]time.Time{"regen_tonic": now.Add(time.Hour)}
	if err := store.PutPlayer(context.Background(), player); err != nil {
		t.Fatalf("put player: %v", err)
	}

	got, err := store.GetPlayer(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Health != 50 || got.Stamina != 60 {
		t.Fatalf("vitals = %v/%v, want 50/60", got.Health, got.Stamina)
	}
	if !got.PremiumTier {
		t.Fatalf("premium tier lost on round trip")
	}
	if !got.LastCombatAt.Equal(now.Add(-5 * time.Minute)) {
		t.Fatalf("last combat at = %v, want %v", got.LastCombatAt, now.Add(-5*time.Minute))
	}
	if expiresAt, ok := got.ActiveEffects["regen_tonic"]; !ok || !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("active effects = %v, want regen_tonic at %v", got.ActiveEffects, now.Add(time.Hour))
	}
	if !got.TravelArrivalAt.IsZero() {
		t.Fatalf("travel arrival = %v, want zero for idle player", got.TravelArrivalAt)
	}
}

func TestGetPlayerMissing(t *testing.T) {
	store := openTempStore(t)
	_, err := store.GetPlayer(context.Background(), "ghost")
	if !platformerrors.IsCode(err, platformerrors.CodeNotFound) {
		t.Fatalf("get player = %v, want CodeNotFound", err)
	}
}

func TestEnsurePlayerCreatesOnce(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	created, err := store.EnsurePlayer(context.Background(), testPlayer("u1", now))
	if err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	if created.Health != 50 {
		t.Fatalf("created health = %v, want 50", created.Health)
	}

	// A second ensure with different defaults returns the stored row.
	defaults := testPlayer("u1", now)
	defaults.Health = 1
	again, err := store.EnsurePlayer(context.Background(), defaults)
	if err != nil {
		t.Fatalf("ensure player again: %v", err)
	}
	if again.Health != 50 {
		t.Fatalf("health = %v, want original 50", again.Health)
	}
}

func TestUpdateVitals(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(10 * time.Minute)

	if err := store.PutPlayer(context.Background(), testPlayer("u1", now)); err != nil {
		t.Fatalf("put player: %v", err)
	}
	if err := store.UpdateVitals(context.Background(), "u1", storage.VitalsUpdate{
		Health:           70,
		HealthUpdatedAt:  later,
		Stamina:          90,
		StaminaUpdatedAt: later,
		ActiveEffects:    map[string]time.Time{},
	}); err != nil {
		t.Fatalf("update vitals: %v", err)
	}

	got, err := store.GetPlayer(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Health != 70 || got.Stamina != 90 {
		t.Fatalf("vitals = %v/%v, want 70/90", got.Health, got.Stamina)
	}
	if !got.HealthUpdatedAt.Equal(later) {
		t.Fatalf("health updated at = %v, want %v", got.HealthUpdatedAt, later)
	}
}

func TestUpdateVitalsMissingPlayer(t *testing.T) {
	store := openTempStore(t)
	err := store.UpdateVitals(context.Background(), "ghost", storage.VitalsUpdate{})
	if !platformerrors.IsCode(err, platformerrors.CodeNotFound) {
		t.Fatalf("update vitals = %v, want CodeNotFound", err)
	}
}

func TestUpdateAllVitalsIsolatesFailures(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(10 * time.Minute)

	for _, id := range []string{"u1", "u2", "u3"} {
		if err := store.PutPlayer(context.Background(), testPlayer(id, now)); err != nil {
			t.Fatalf("put player %s: %v", id, err)
		}
	}

	result, err := store.UpdateAllVitals(context.Background(), func(player storage.PlayerRecord) (storage.VitalsUpdate, bool, error) {
		switch player.UserID {
		case "u1":
			return storage.VitalsUpdate{
				Health: 99, HealthUpdatedAt: later,
				Stamina: 99, StaminaUpdatedAt: later,
				ActiveEffects: player.ActiveEffects,
			}, true, nil
		case "u2":
			return storage.VitalsUpdate{}, false, nil
		default:
			return storage.VitalsUpdate{}, false, errors.New("corrupt row")
		}
	})
	if err != nil {
		t.Fatalf("update all vitals: %v", err)
	}
	if result.Updated != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1/1/1", result)
	}

	got, err := store.GetPlayer(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.Health != 99 {
		t.Fatalf("u1 health = %v, want 99 despite u3 failing", got.Health)
	}
	unchanged, err := store.GetPlayer(context.Background(), "u2")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if unchanged.Health != 50 {
		t.Fatalf("u2 health = %v, want untouched 50", unchanged.Health)
	}
}

func TestSettingTimeRoundTrip(t *testing.T) {
	store := openTempStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	unset, err := store.SettingTime(context.Background(), "last_global_defeat_at")
	if err != nil {
		t.Fatalf("setting time: %v", err)
	}
	if !unset.IsZero() {
		t.Fatalf("unset setting = %v, want zero time", unset)
	}

	if err := store.SetSettingTime(context.Background(), "last_global_defeat_at", now); err != nil {
		t.Fatalf("set setting time: %v", err)
	}
	got, err := store.SettingTime(context.Background(), "last_global_defeat_at")
	if err != nil {
		t.Fatalf("setting time: %v", err)
	}
	if !got.Equal(now) {
		t.Fatalf("setting = %v, want %v", got, now)
	}
}
