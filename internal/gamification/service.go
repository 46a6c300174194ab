package gamification

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

// lockShards bounds the keyed mutexes to a fixed set regardless of how
// many users the process sees. Users hashing to the same shard contend
// with each other, which is harmless beyond a little extra waiting.
const lockShards = 64

// Service orchestrates the streak → XP → badge sequence. Mutations are
// serialized per user with a sharded keyed mutex. Each step checks
// current state before writing, so a retry after a mid-sequence failure
// never double-awards.
type Service struct {
	store   store.Store
	tracker *Tracker
	xp      *XPEngine
	badges  *BadgeEvaluator
	log     *logrus.Logger

	locks [lockShards]sync.Mutex
}

// NewService wires the gamification components over one store.
func NewService(s store.Store, notifier Notifier, log *logrus.Logger) *Service {
	xp := NewXPEngine(s, notifier, log)
	return &Service{
		store:   s,
		tracker: NewTracker(s, log),
		xp:      xp,
		badges:  NewBadgeEvaluator(s, xp, notifier, log),
		log:     log,
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockShards]
}

// ActivityResult is the outcome of one logged activity.
type ActivityResult struct {
	Streak    *model.Streak  `json:"streak"`
	XPAwarded int            `json:"xp_awarded"`
	XP        *AwardResult   `json:"xp,omitempty"`
	NewBadges []*model.Badge `json:"new_badges,omitempty"`
}

// RecordActivity advances the user's streak for activityDate, awards the
// daily XP bonus and runs the badge checks. A repeated call on an
// already-counted day returns the unchanged streak and awards nothing.
func (s *Service) RecordActivity(ctx context.Context, userID string, activityDate time.Time) (*ActivityResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	streak, awardXP, milestone, err := s.tracker.Record(ctx, userID, activityDate)
	if err != nil {
		return nil, err
	}
	result := &ActivityResult{Streak: streak}
	if !awardXP {
		return result, nil
	}

	award, err := s.xp.Award(ctx, userID, StreakDayXP, "daily_activity")
	if err != nil {
		return nil, err
	}
	result.XPAwarded = StreakDayXP
	result.XP = &award

	if milestone {
		badge, err := s.badges.EvaluateConsistency(ctx, userID, streak.Current, activityDate)
		if err != nil {
			return nil, err
		}
		if badge != nil {
			result.NewBadges = append(result.NewBadges, badge)
		}
	}
	return result, nil
}

// AwardXP grants XP outside the streak flow, e.g. for completing a goal.
func (s *Service) AwardXP(ctx context.Context, userID string, amount int, reason string) (AwardResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.xp.Award(ctx, userID, amount, reason)
}

// EvaluateBadges runs every badge check for the user and returns the
// newly awarded badges.
func (s *Service) EvaluateBadges(ctx context.Context, userID string, now time.Time) ([]*model.Badge, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	streakDays := 0
	streak, err := s.store.GetStreak(ctx, userID)
	if err == nil {
		streakDays = streak.Current
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read streak: %w", err)
	}
	return s.badges.EvaluateAll(ctx, userID, streakDays, now)
}

// Progress is the dashboard read model: streak, XP/level with the next
// threshold, and the earned badges.
type Progress struct {
	Streak        *model.Streak  `json:"streak"`
	TotalXP       int            `json:"total_xp"`
	Level         int            `json:"level"`
	NextLevelXP   int            `json:"next_level_xp,omitempty"`
	LevelProgress float64        `json:"level_progress"`
	Badges        []*model.Badge `json:"badges"`
}

// GetProgress assembles the progress read model. Missing streak or XP
// rows read as zero values rather than errors.
func (s *Service) GetProgress(ctx context.Context, userID string) (*Progress, error) {
	streak, err := s.store.GetStreak(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		streak = &model.Streak{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("read streak: %w", err)
	}

	record, err := s.store.GetXPRecord(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		record = &model.XPRecord{UserID: userID, Level: 1}
	} else if err != nil {
		return nil, fmt.Errorf("read xp record: %w", err)
	}

	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}

	progress := &Progress{
		Streak:  streak,
		TotalXP: record.TotalXP,
		Level:   record.Level,
		Badges:  badges,
	}
	if next, ok := NextLevelThreshold(record.Level); ok {
		progress.NextLevelXP = next
		current := levelThresholds[record.Level-1]
		if span := next - current; span > 0 {
			progress.LevelProgress = float64(record.TotalXP-current) / float64(span)
			if progress.LevelProgress > 1 {
				progress.LevelProgress = 1
			}
		}
	} else {
		progress.LevelProgress = 1
	}
	return progress, nil
}
