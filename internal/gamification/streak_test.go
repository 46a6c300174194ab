package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

var streakToday = time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)

func seedStreak(t *testing.T, s *store.MemoryStore, current, longest int, last time.Time) {
	t.Helper()
	if err := s.SaveStreak(context.Background(), &model.Streak{
		UserID:       "u1",
		Current:      current,
		Longest:      longest,
		LastActivity: &last,
	}); err != nil {
		t.Fatalf("seed streak: %v", err)
	}
}

func TestTrackerRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("first activity starts the streak", func(t *testing.T) {
		tracker := NewTracker(store.NewMemoryStore(), quietLogger())

		streak, awarded, milestone, err := tracker.Record(ctx, "u1", streakToday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if streak.Current != 1 || streak.Longest != 1 {
			t.Errorf("expected 1/1, got %d/%d", streak.Current, streak.Longest)
		}
		if !awarded {
			t.Error("first activity must award the day's XP")
		}
		if milestone {
			t.Error("day 1 is not a milestone")
		}
	})

	t.Run("same day repeat is a no-op", func(t *testing.T) {
		s := store.NewMemoryStore()
		seedStreak(t, s, 4, 6, streakToday)
		tracker := NewTracker(s, quietLogger())

		streak, awarded, milestone, err := tracker.Record(ctx, "u1", streakToday.Add(8*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if streak.Current != 4 || streak.Longest != 6 {
			t.Errorf("streak must be unchanged, got %d/%d", streak.Current, streak.Longest)
		}
		if awarded || milestone {
			t.Errorf("repeat must award nothing, got awarded=%v milestone=%v", awarded, milestone)
		}
	})

	t.Run("backdated day is a no-op", func(t *testing.T) {
		s := store.NewMemoryStore()
		seedStreak(t, s, 4, 6, streakToday)
		tracker := NewTracker(s, quietLogger())

		streak, awarded, milestone, err := tracker.Record(ctx, "u1", streakToday.AddDate(0, 0, -1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if streak.Current != 4 || streak.Longest != 6 {
			t.Errorf("streak must be unchanged, got %d/%d", streak.Current, streak.Longest)
		}
		if !streak.LastActivity.Equal(streakToday) {
			t.Errorf("last activity must not rewind, got %v", streak.LastActivity)
		}
		if awarded || milestone {
			t.Errorf("a backdated day must award nothing, got awarded=%v milestone=%v", awarded, milestone)
		}
	})

	t.Run("consecutive day extends and tracks the record", func(t *testing.T) {
		s := store.NewMemoryStore()
		seedStreak(t, s, 6, 6, streakToday.AddDate(0, 0, -1))
		tracker := NewTracker(s, quietLogger())

		streak, awarded, milestone, err := tracker.Record(ctx, "u1", streakToday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if streak.Current != 7 || streak.Longest != 7 {
			t.Errorf("expected 7/7, got %d/%d", streak.Current, streak.Longest)
		}
		if !awarded {
			t.Error("a new day must award XP")
		}
		if !milestone {
			t.Error("day 7 is a milestone")
		}
	})

	t.Run("gap resets but still awards the day", func(t *testing.T) {
		s := store.NewMemoryStore()
		seedStreak(t, s, 12, 15, streakToday.AddDate(0, 0, -3))
		tracker := NewTracker(s, quietLogger())

		streak, awarded, milestone, err := tracker.Record(ctx, "u1", streakToday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if streak.Current != 1 || streak.Longest != 15 {
			t.Errorf("expected reset to 1 with longest 15, got %d/%d", streak.Current, streak.Longest)
		}
		if !awarded {
			t.Error("a fresh day must award XP even after a gap")
		}
		if milestone {
			t.Error("a reset day is not a milestone")
		}
	})

	t.Run("milestone days match the table", func(t *testing.T) {
		for _, days := range []int{7, 30, 90} {
			s := store.NewMemoryStore()
			seedStreak(t, s, days-1, days-1, streakToday.AddDate(0, 0, -1))
			tracker := NewTracker(s, quietLogger())

			_, _, milestone, err := tracker.Record(ctx, "u1", streakToday)
			if err != nil {
				t.Fatalf("day %d: unexpected error: %v", days, err)
			}
			if !milestone {
				t.Errorf("day %d must be a milestone", days)
			}
		}
	})
}
