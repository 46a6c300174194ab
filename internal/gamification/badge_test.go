package gamification

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

var badgeNow = time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)

func newEvaluator(t *testing.T, s *store.MemoryStore, notifier Notifier) *BadgeEvaluator {
	t.Helper()
	log := quietLogger()
	return NewBadgeEvaluator(s, NewXPEngine(s, notifier, log), notifier, log)
}

func TestSatisfiedTier(t *testing.T) {
	consistency := badgeSpecs[BadgeConsistency]
	if tier := consistency.satisfiedTier(6); tier != nil {
		t.Errorf("6 days should earn nothing, got %s", tier.Tier)
	}
	if tier := consistency.satisfiedTier(7); tier == nil || tier.Tier != model.TierBronze {
		t.Errorf("7 days should earn bronze, got %+v", tier)
	}
	if tier := consistency.satisfiedTier(45); tier == nil || tier.Tier != model.TierSilver {
		t.Errorf("45 days should earn silver, got %+v", tier)
	}
	if tier := consistency.satisfiedTier(90); tier == nil || tier.Tier != model.TierGold {
		t.Errorf("90 days should earn gold, got %+v", tier)
	}

	mindful := badgeSpecs[BadgeMindfulSpender]
	if tier := mindful.satisfiedTier(180); tier == nil || tier.Tier != model.TierBronze {
		t.Errorf("180 spend should earn bronze, got %+v", tier)
	}
	if tier := mindful.satisfiedTier(40); tier == nil || tier.Tier != model.TierGold {
		t.Errorf("40 spend should earn gold, got %+v", tier)
	}
	if tier := mindful.satisfiedTier(250); tier != nil {
		t.Errorf("250 spend should earn nothing, got %s", tier.Tier)
	}
}

func TestEvaluateConsistency(t *testing.T) {
	ctx := context.Background()

	t.Run("day seven earns bronze with bonus XP", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, n *model.Notification) error {
				if n.Type != model.NotificationBadgeEarned {
					t.Errorf("expected badge_earned, got %s", n.Type)
				}
				return nil
			})

		s := store.NewMemoryStore()
		evaluator := newEvaluator(t, s, notifier)

		badge, err := evaluator.EvaluateConsistency(ctx, "u1", 7, badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge == nil || badge.Name != BadgeConsistency || badge.Tier != model.TierBronze {
			t.Fatalf("expected bronze consistency, got %+v", badge)
		}

		record, err := s.GetXPRecord(ctx, "u1")
		if err != nil {
			t.Fatalf("read xp: %v", err)
		}
		if record.TotalXP != 25 {
			t.Errorf("expected 25 bonus XP, got %d", record.TotalXP)
		}
	})

	t.Run("re-evaluation is a no-op with one stored row", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(1)

		s := store.NewMemoryStore()
		evaluator := newEvaluator(t, s, notifier)

		if _, err := evaluator.EvaluateConsistency(ctx, "u1", 7, badgeNow); err != nil {
			t.Fatalf("first evaluation: %v", err)
		}
		badge, err := evaluator.EvaluateConsistency(ctx, "u1", 7, badgeNow)
		if err != nil {
			t.Fatalf("second evaluation: %v", err)
		}
		if badge != nil {
			t.Errorf("second evaluation must award nothing, got %+v", badge)
		}

		badges, err := s.ListBadges(ctx, "u1")
		if err != nil {
			t.Fatalf("list badges: %v", err)
		}
		if len(badges) != 1 {
			t.Errorf("expected exactly one badge row, got %d", len(badges))
		}
		record, err := s.GetXPRecord(ctx, "u1")
		if err != nil {
			t.Fatalf("read xp: %v", err)
		}
		if record.TotalXP != 25 {
			t.Errorf("bonus XP must not double, got %d", record.TotalXP)
		}
	})

	t.Run("short streak earns nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)

		evaluator := newEvaluator(t, store.NewMemoryStore(), notifier)
		badge, err := evaluator.EvaluateConsistency(ctx, "u1", 6, badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge != nil {
			t.Errorf("expected no badge, got %+v", badge)
		}
	})

	t.Run("long streak jumps straight to gold", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		evaluator := newEvaluator(t, store.NewMemoryStore(), notifier)
		badge, err := evaluator.EvaluateConsistency(ctx, "u1", 120, badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge == nil || badge.Tier != model.TierGold {
			t.Fatalf("expected gold, got %+v", badge)
		}
	})
}

func TestEvaluateMindfulSpender(t *testing.T) {
	ctx := context.Background()

	t.Run("modest month earns bronze", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

		s := store.NewMemoryStore()
		s.AddExpense(&model.Expense{UserID: "u1", Amount: 150, Category: model.CategoryDining, Date: badgeNow.AddDate(0, 0, -5)})
		s.AddExpense(&model.Expense{UserID: "u1", Amount: 30, Category: model.CategoryEntertainment, Date: badgeNow.AddDate(0, 0, -2)})

		evaluator := newEvaluator(t, s, notifier)
		badge, err := evaluator.EvaluateMindfulSpender(ctx, "u1", badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge == nil || badge.Name != BadgeMindfulSpender || badge.Tier != model.TierBronze {
			t.Fatalf("expected bronze mindful_spender, got %+v", badge)
		}
	})

	t.Run("a month with no expenses earns nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)

		evaluator := newEvaluator(t, store.NewMemoryStore(), notifier)
		badge, err := evaluator.EvaluateMindfulSpender(ctx, "u1", badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge != nil {
			t.Errorf("expected no badge, got %+v", badge)
		}
	})

	t.Run("heavy month earns nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)

		s := store.NewMemoryStore()
		s.AddExpense(&model.Expense{UserID: "u1", Amount: 400, Category: model.CategoryDining, Date: badgeNow.AddDate(0, 0, -3)})

		evaluator := newEvaluator(t, s, notifier)
		badge, err := evaluator.EvaluateMindfulSpender(ctx, "u1", badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge != nil {
			t.Errorf("expected no badge, got %+v", badge)
		}
	})
}

func TestEvaluateBudgetKeeper(t *testing.T) {
	ctx := context.Background()

	monthBudget := func(year int, month time.Month, amount float64) *model.Budget {
		start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return &model.Budget{
			UserID:    "u1",
			Period:    model.BudgetMonthly,
			Amount:    amount,
			StartDate: start,
			EndDate:   start.AddDate(0, 1, -1),
		}
	}

	t.Run("one on-budget month earns bronze", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

		s := store.NewMemoryStore()
		s.AddBudget(monthBudget(2025, time.May, 500))
		s.AddExpense(&model.Expense{UserID: "u1", Amount: 400, Category: model.CategoryGroceries, Date: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)})

		evaluator := newEvaluator(t, s, notifier)
		badge, err := evaluator.EvaluateBudgetKeeper(ctx, "u1", badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge == nil || badge.Name != BadgeBudgetKeeper || badge.Tier != model.TierBronze {
			t.Fatalf("expected bronze budget_keeper, got %+v", badge)
		}
	})

	t.Run("overrun in the last month breaks the chain", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)

		s := store.NewMemoryStore()
		s.AddBudget(monthBudget(2025, time.May, 500))
		s.AddExpense(&model.Expense{UserID: "u1", Amount: 600, Category: model.CategoryShopping, Date: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)})

		evaluator := newEvaluator(t, s, notifier)
		badge, err := evaluator.EvaluateBudgetKeeper(ctx, "u1", badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge != nil {
			t.Errorf("expected no badge after an overrun, got %+v", badge)
		}
	})

	t.Run("three covered months earn silver", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

		s := store.NewMemoryStore()
		for _, m := range []time.Month{time.March, time.April, time.May} {
			s.AddBudget(monthBudget(2025, m, 500))
			s.AddExpense(&model.Expense{UserID: "u1", Amount: 300, Category: model.CategoryGroceries, Date: time.Date(2025, m, 15, 0, 0, 0, 0, time.UTC)})
		}

		evaluator := newEvaluator(t, s, notifier)
		badge, err := evaluator.EvaluateBudgetKeeper(ctx, "u1", badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge == nil || badge.Tier != model.TierSilver {
			t.Fatalf("expected silver, got %+v", badge)
		}
	})

	t.Run("a month without budget coverage stops the walk", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

		s := store.NewMemoryStore()
		// May and March are covered, April is not: only May counts.
		s.AddBudget(monthBudget(2025, time.May, 500))
		s.AddBudget(monthBudget(2025, time.March, 500))

		evaluator := newEvaluator(t, s, notifier)
		badge, err := evaluator.EvaluateBudgetKeeper(ctx, "u1", badgeNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if badge == nil || badge.Tier != model.TierBronze {
			t.Fatalf("expected bronze from the single unbroken month, got %+v", badge)
		}
	})
}

func TestEvaluateAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	s := store.NewMemoryStore()
	s.AddExpense(&model.Expense{UserID: "u1", Amount: 60, Category: model.CategoryDining, Date: badgeNow.AddDate(0, 0, -4)})

	evaluator := newEvaluator(t, s, notifier)
	awarded, err := evaluator.EvaluateAll(context.Background(), "u1", 30, badgeNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Silver consistency (30 days) plus silver mindful_spender (60 spend).
	if len(awarded) != 2 {
		t.Fatalf("expected 2 badges, got %d", len(awarded))
	}
}
