// Package hooks declares the collaborator contracts the world service calls
// out to. Implementations live in the command, economy, and social services;
// the world service receives them as constructor arguments.
package hooks

import "context"

// POI is a resolved landmark point of interest.
type POI struct {
	ID         string
	Name       string
	LocationID string
}

// RewardGranter credits currency or gems to a player.
type RewardGranter interface {
	AwardCurrency(ctx context.Context, userID string, amount int64, reason string) error
}

// AchievementChecker re-evaluates achievement progress for a category.
type AchievementChecker interface {
	CheckAchievements(ctx context.Context, userID, category string) error
}

// ChallengeTracker advances generic challenge progress counters.
type ChallengeTracker interface {
	UpdateChallengeProgress(ctx context.Context, userID, kind string, delta int) error
}

// LandmarkResolver maps virtual landmark ids to points of interest and
// records first visits.
type LandmarkResolver interface {
	// ResolveLandmark returns nil without error when the landmark is unknown.
	ResolveLandmark(ctx context.Context, landmarkID string) (*POI, error)
	// RecordFirstVisit reports true when this is the user's first visit.
	RecordFirstVisit(ctx context.Context, userID, poiID string) (bool, error)
}

// Notifier publishes fire-and-forget world events.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]any) error
}

// FightingCapability grants and revokes the derived capability marking a user
// as an active encounter participant.
type FightingCapability interface {
	GrantFightingRole(ctx context.Context, locationID, userID string) error
	RevokeFightingRole(ctx context.Context, locationID, userID string) error
	// FightingRoleHolders lists every user currently holding the capability.
	FightingRoleHolders(ctx context.Context) ([]string, error)
}
