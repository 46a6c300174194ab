package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

// StreakDayXP is awarded once per calendar day of activity.
const StreakDayXP = 10

// StreakMilestones are the streak lengths that trigger a milestone on
// the exact day they are reached.
var StreakMilestones = []int{7, 30, 90}

func isMilestone(days int) bool {
	for _, m := range StreakMilestones {
		if days == m {
			return true
		}
	}
	return false
}

// Tracker advances the per-user daily streak. Transitions compare
// calendar days (midnight UTC), never instants.
type Tracker struct {
	store store.Store
	log   *logrus.Logger
}

// NewTracker builds a streak tracker.
func NewTracker(s store.Store, log *logrus.Logger) *Tracker {
	return &Tracker{store: s, log: log}
}

// Record marks activity on the given day. It returns the updated streak,
// whether the day's XP bonus should be awarded (false on a same-day
// repeat), and whether a milestone length was reached by this update.
func (t *Tracker) Record(ctx context.Context, userID string, day time.Time) (*model.Streak, bool, bool, error) {
	day = model.DateOnly(day)

	streak, err := t.store.GetStreak(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		streak = &model.Streak{UserID: userID}
	} else if err != nil {
		return nil, false, false, fmt.Errorf("read streak: %w", err)
	}

	if streak.LastActivity != nil {
		last := model.DateOnly(*streak.LastActivity)
		if !day.After(last) {
			// Repeat or backdated activity. The last counted day only
			// advances, so anything at or before it is already counted.
			return streak, false, false, nil
		}
		if day.Equal(last.AddDate(0, 0, 1)) {
			streak.Current++
		} else {
			streak.Current = 1
		}
	} else {
		streak.Current = 1
	}
	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}
	streak.LastActivity = &day

	if err := t.store.SaveStreak(ctx, streak); err != nil {
		return nil, false, false, fmt.Errorf("save streak: %w", err)
	}

	milestone := isMilestone(streak.Current)
	t.log.Infof("[Gamification] user %s streak %d (longest %d), milestone=%v", userID, streak.Current, streak.Longest, milestone)
	return streak, true, milestone, nil
}
