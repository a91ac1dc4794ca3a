package hooks

import (
	"context"
	"log"
)

// LogHooks is a stand-in collaborator that records every hook call to the
// log. It serves deployments where the economy and social services are not
// wired yet; the world loop behaves the same either way.
type LogHooks struct {
	Logf func(format string, args ...any)
}

// NewLogHooks returns a LogHooks writing to log.Printf when logf is nil.
func NewLogHooks(logf func(format string, args ...any)) *LogHooks {
	if logf == nil {
		logf = log.Printf
	}
	return &LogHooks{Logf: logf}
}

func (h *LogHooks) AwardCurrency(_ context.Context, userID string, amount int64, reason string) error {
	h.Logf("award currency user=%s amount=%d reason=%s", userID, amount, reason)
	return nil
}

func (h *LogHooks) CheckAchievements(_ context.Context, userID, category string) error {
	h.Logf("check achievements user=%s category=%s", userID, category)
	return nil
}

func (h *LogHooks) UpdateChallengeProgress(_ context.Context, userID, kind string, delta int) error {
	h.Logf("challenge progress user=%s kind=%s delta=%d", userID, kind, delta)
	return nil
}

func (h *LogHooks) ResolveLandmark(_ context.Context, landmarkID string) (*POI, error) {
	h.Logf("resolve landmark id=%s", landmarkID)
	return nil, nil
}

func (h *LogHooks) RecordFirstVisit(_ context.Context, userID, poiID string) (bool, error) {
	h.Logf("record first visit user=%s poi=%s", userID, poiID)
	return false, nil
}

func (h *LogHooks) Notify(_ context.Context, event string, payload map[string]any) error {
	h.Logf("notify event=%s payload=%v", event, payload)
	return nil
}

func (h *LogHooks) GrantFightingRole(_ context.Context, locationID, userID string) error {
	h.Logf("grant fighting role location=%s user=%s", locationID, userID)
	return nil
}

func (h *LogHooks) RevokeFightingRole(_ context.Context, locationID, userID string) error {
	h.Logf("revoke fighting role location=%s user=%s", locationID, userID)
	return nil
}

func (h *LogHooks) FightingRoleHolders(_ context.Context) ([]string, error) {
	return nil, nil
}

var (
	_ RewardGranter      = (*LogHooks)(nil)
	_ AchievementChecker = (*LogHooks)(nil)
	_ ChallengeTracker   = (*LogHooks)(nil)
	_ LandmarkResolver   = (*LogHooks)(nil)
	_ Notifier           = (*LogHooks)(nil)
	_ FightingCapability = (*LogHooks)(nil)
)
