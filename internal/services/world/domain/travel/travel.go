// Package travel owns the completion half of player travel. Starting a
// travel is driven by the command layer; this package detects due arrivals,
// finalizes them exactly once, and fires the downstream reward hooks.
package travel

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emberveil/emberveil/internal/platform/grpc/pagination"
	"github.com/emberveil/emberveil/internal/services/world/domain/hooks"
	"github.com/emberveil/emberveil/internal/services/world/storage"
)

// Page size bounds for travel history queries.
const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
)

// LandmarkPrefix marks virtual landmark destinations. Landmark ids share the
// players' location id namespace but never correspond to a stayable location:
// arrival visits the point of interest and returns the player home.
const LandmarkPrefix = "landmark:"

// IsLandmarkID reports whether a destination id names a virtual landmark.
func IsLandmarkID(id string) bool {
	return strings.HasPrefix(id, LandmarkPrefix)
}

// LandmarkID builds the virtual destination id for a landmark.
func LandmarkID(landmark string) string {
	return LandmarkPrefix + landmark
}

// Lifecycle completes due travels and fires post-commit side effects.
type Lifecycle struct {
	store        storage.TravelStore
	resolver     hooks.LandmarkResolver
	rewards      hooks.RewardGranter
	achievements hooks.AchievementChecker
	challenges   hooks.ChallengeTracker

	homeLocationID  string
	firstVisitBonus int64
	now             func() time.Time
	logf            func(string, ...any)
}

// Config carries the travel lifecycle tuning values.
type Config struct {
	// HomeLocationID is the fallback location when a landmark arrival cannot
	// return the player to a known origin.
	HomeLocationID string
	// FirstVisitBonus is the one-time currency award for a first landmark visit.
	FirstVisitBonus int64
}

// NewLifecycle builds a travel Lifecycle. Hook collaborators may be nil; the
// corresponding side effect is then skipped. now and logf may be nil.
func NewLifecycle(store storage.TravelStore, resolver hooks.LandmarkResolver, rewards hooks.RewardGranter, achievements hooks.AchievementChecker, challenges hooks.ChallengeTracker, cfg Config, now func() time.Time, logf func(string, ...any)) *Lifecycle {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Lifecycle{
		store:           store,
		resolver:        resolver,
		rewards:         rewards,
		achievements:    achievements,
		challenges:      challenges,
		homeLocationID:  cfg.HomeLocationID,
		firstVisitBonus: cfg.FirstVisitBonus,
		now:             now,
		logf:            logf,
	}
}

// CompleteDueTravels finalizes every travel whose arrival time has passed and
// returns how many were completed. The select-and-clear runs in a single
// storage transaction, so calling this from concurrent ticks processes each
// travel exactly once. Side effects run after the transaction commits and are
// individually best-effort.
func (l *Lifecycle) CompleteDueTravels(ctx context.Context) (int, error) {
	completed, err := l.store.ClaimDueTravels(ctx, l.now(), l.homeLocationID)
	if err != nil {
		return 0, fmt.Errorf("claim due travels: %w", err)
	}

	for _, trip := range completed {
		l.fireArrivalHooks(ctx, trip)
	}
	return len(completed), nil
}

func (l *Lifecycle) fireArrivalHooks(ctx context.Context, trip storage.CompletedTravel) {
	if trip.Landmark && l.resolver != nil {
		l.fireLandmarkHooks(ctx, trip)
	}
	if l.achievements != nil {
		hooks.BestEffort(l.logf, "travel achievement check", func() error {
			return l.achievements.CheckAchievements(ctx, trip.UserID, "travel")
		})
	}
	if l.challenges != nil {
		hooks.BestEffort(l.logf, "travel challenge progress", func() error {
			return l.challenges.UpdateChallengeProgress(ctx, trip.UserID, "travel", 1)
		})
	}
}

func (l *Lifecycle) fireLandmarkHooks(ctx context.Context, trip storage.CompletedTravel) {
	poi, err := l.resolver.ResolveLandmark(ctx, trip.ToLocationID)
	if err != nil {
		l.logf("resolve landmark %s: %v", trip.ToLocationID, err)
		return
	}
	if poi == nil {
		// Unknown landmark: the travel itself already completed, nothing to award.
		return
	}

	first, err := l.resolver.RecordFirstVisit(ctx, trip.UserID, poi.ID)
	if err != nil {
		l.logf("record first visit %s for %s: %v", poi.ID, trip.UserID, err)
		return
	}
	if first && l.rewards != nil && l.firstVisitBonus > 0 {
		hooks.BestEffort(l.logf, "first visit bonus", func() error {
			return l.rewards.AwardCurrency(ctx, trip.UserID, l.firstVisitBonus, "first_visit:"+poi.ID)
		})
	}
}

// History returns a player's most recent completed travels, newest first.
// pageSize is clamped to the history bounds; zero selects the default.
func (l *Lifecycle) History(ctx context.Context, userID string, pageSize int32) ([]storage.TravelHistoryEntry, error) {
	limit := pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{
		Default: defaultHistoryPageSize,
		Max:     maxHistoryPageSize,
	})
	entries, err := l.store.ListTravelHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list travel history: %w", err)
	}
	return entries, nil
}
