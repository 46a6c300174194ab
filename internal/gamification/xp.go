package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

// levelThresholds is the ascending XP table: level i (1-based) requires
// total XP >= levelThresholds[i-1].
var levelThresholds = []int{0, 100, 250, 500, 1000, 1750, 2750, 4000, 5500, 7500, 10000}

// LevelForXP returns the highest level whose threshold totalXP meets.
func LevelForXP(totalXP int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if totalXP < threshold {
			break
		}
		level = i + 1
	}
	return level
}

// NextLevelThreshold returns the XP required for the next level, or
// (0, false) when the level is already the highest in the table.
func NextLevelThreshold(level int) (int, bool) {
	if level < 1 || level >= len(levelThresholds) {
		return 0, false
	}
	return levelThresholds[level], true
}

// AwardResult reports the outcome of one XP award.
type AwardResult struct {
	NewXP     int  `json:"new_xp"`
	NewLevel  int  `json:"new_level"`
	LeveledUp bool `json:"leveled_up"`
}

// XPEngine accumulates experience points and derives the level. Level
// never decreases even if the threshold table changes.
type XPEngine struct {
	store    store.Store
	notifier Notifier
	log      *logrus.Logger
}

// NewXPEngine builds an XP engine.
func NewXPEngine(s store.Store, notifier Notifier, log *logrus.Logger) *XPEngine {
	return &XPEngine{store: s, notifier: notifier, log: log}
}

// Award adds amount XP to the user, creating the record on first award.
// A level-up emits a notification; notification failure does not fail
// the award.
func (e *XPEngine) Award(ctx context.Context, userID string, amount int, reason string) (AwardResult, error) {
	if amount < 0 {
		return AwardResult{}, fmt.Errorf("xp amount must be non-negative, got %d", amount)
	}

	record, err := e.store.GetXPRecord(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		record = &model.XPRecord{UserID: userID, TotalXP: 0, Level: 1}
	} else if err != nil {
		return AwardResult{}, fmt.Errorf("read xp record: %w", err)
	}

	oldLevel := record.Level
	record.TotalXP += amount
	if newLevel := LevelForXP(record.TotalXP); newLevel > record.Level {
		record.Level = newLevel
	}

	if err := e.store.SaveXPRecord(ctx, record); err != nil {
		return AwardResult{}, fmt.Errorf("save xp record: %w", err)
	}

	result := AwardResult{
		NewXP:     record.TotalXP,
		NewLevel:  record.Level,
		LeveledUp: record.Level > oldLevel,
	}
	e.log.Infof("[Gamification] user %s +%d XP (%s), total %d level %d", userID, amount, reason, record.TotalXP, record.Level)

	if result.LeveledUp {
		err := e.notifier.Notify(ctx, &model.Notification{
			UserID:  userID,
			Type:    model.NotificationLevelUp,
			Title:   fmt.Sprintf("Level %d reached!", record.Level),
			Message: fmt.Sprintf("You've earned %d XP and reached level %d.", record.TotalXP, record.Level),
		})
		if err != nil {
			e.log.Warnf("[Gamification] level-up notification for user %s failed: %v", userID, err)
		}
	}
	return result, nil
}
