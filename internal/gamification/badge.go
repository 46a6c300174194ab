package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

// Badge names. One row per (user, name, tier); re-awarding is a no-op.
const (
	BadgeConsistency    = "consistency"
	BadgeBudgetKeeper   = "budget_keeper"
	BadgeMindfulSpender = "mindful_spender"
)

// tierSpec is one rung of a badge's threshold table.
type tierSpec struct {
	Tier        model.BadgeTier
	Threshold   float64
	BonusXP     int
	Description string
}

// badgeSpec is an ordered tier table plus the comparison direction:
// atLeast badges reward metric >= threshold, the rest reward <=.
// Tiers are listed best first so the lookup returns the highest
// satisfied one.
type badgeSpec struct {
	Name    string
	AtLeast bool
	Tiers   []tierSpec
}

var badgeSpecs = map[string]badgeSpec{
	BadgeConsistency: {
		Name:    BadgeConsistency,
		AtLeast: true,
		Tiers: []tierSpec{
			{model.TierGold, 90, 200, "Logged activity 90 days in a row"},
			{model.TierSilver, 30, 75, "Logged activity 30 days in a row"},
			{model.TierBronze, 7, 25, "Logged activity 7 days in a row"},
		},
	},
	BadgeBudgetKeeper: {
		Name:    BadgeBudgetKeeper,
		AtLeast: true,
		Tiers: []tierSpec{
			{model.TierGold, 6, 200, "Stayed on budget 6 months in a row"},
			{model.TierSilver, 3, 75, "Stayed on budget 3 months in a row"},
			{model.TierBronze, 1, 25, "Stayed on budget for a full month"},
		},
	},
	BadgeMindfulSpender: {
		Name:    BadgeMindfulSpender,
		AtLeast: false,
		Tiers: []tierSpec{
			{model.TierGold, 50, 200, "Kept dining and entertainment under ₵50 this month"},
			{model.TierSilver, 100, 75, "Kept dining and entertainment under ₵100 this month"},
			{model.TierBronze, 200, 25, "Kept dining and entertainment under ₵200 this month"},
		},
	},
}

// satisfiedTier finds the highest tier the metric meets, or nil.
func (s badgeSpec) satisfiedTier(metric float64) *tierSpec {
	for i, tier := range s.Tiers {
		if (s.AtLeast && metric >= tier.Threshold) || (!s.AtLeast && metric <= tier.Threshold) {
			return &s.Tiers[i]
		}
	}
	return nil
}

// BadgeEvaluator awards tiered achievement badges. Awarding is
// idempotent: the store's (user, name, tier) uniqueness constraint makes
// concurrent or repeated evaluations converge on one row.
type BadgeEvaluator struct {
	store    store.Store
	xp       *XPEngine
	notifier Notifier
	log      *logrus.Logger
}

// NewBadgeEvaluator builds a badge evaluator.
func NewBadgeEvaluator(s store.Store, xp *XPEngine, notifier Notifier, log *logrus.Logger) *BadgeEvaluator {
	return &BadgeEvaluator{store: s, xp: xp, notifier: notifier, log: log}
}

// award inserts the badge row if absent, grants the tier's bonus XP and
// emits a notification. Returns nil, nil when the tier was already held.
func (e *BadgeEvaluator) award(ctx context.Context, userID string, spec badgeSpec, tier tierSpec, now time.Time) (*model.Badge, error) {
	held, err := e.store.HasBadge(ctx, userID, spec.Name, tier.Tier)
	if err != nil {
		return nil, fmt.Errorf("check badge %s/%s: %w", spec.Name, tier.Tier, err)
	}
	if held {
		return nil, nil
	}

	badge := &model.Badge{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        spec.Name,
		Tier:        tier.Tier,
		Description: tier.Description,
		EarnedAt:    now,
	}
	if err := e.store.CreateBadge(ctx, badge); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost an insert race; the other writer owns the award.
			return nil, nil
		}
		return nil, fmt.Errorf("create badge %s/%s: %w", spec.Name, tier.Tier, err)
	}
	e.log.Infof("[Gamification] user %s earned badge %s (%s)", userID, spec.Name, tier.Tier)

	if _, err := e.xp.Award(ctx, userID, tier.BonusXP, fmt.Sprintf("badge:%s:%s", spec.Name, tier.Tier)); err != nil {
		return nil, fmt.Errorf("badge bonus xp: %w", err)
	}
	err = e.notifier.Notify(ctx, &model.Notification{
		UserID:  userID,
		Type:    model.NotificationBadgeEarned,
		Title:   fmt.Sprintf("Badge earned: %s (%s)", spec.Name, tier.Tier),
		Message: tier.Description,
	})
	if err != nil {
		e.log.Warnf("[Gamification] badge notification for user %s failed: %v", userID, err)
	}
	return badge, nil
}

// EvaluateConsistency checks the streak-length badge for the given
// streak day count.
func (e *BadgeEvaluator) EvaluateConsistency(ctx context.Context, userID string, streakDays int, now time.Time) (*model.Badge, error) {
	spec := badgeSpecs[BadgeConsistency]
	tier := spec.satisfiedTier(float64(streakDays))
	if tier == nil {
		return nil, nil
	}
	return e.award(ctx, userID, spec, *tier, now)
}

// EvaluateBudgetKeeper checks the budget-adherence badge. An on-budget
// month is a completed calendar month fully covered by a monthly budget
// row whose expense sum stayed within the budgeted amount; the count
// walks backwards from the most recently completed month and stops at
// the first gap or overrun.
func (e *BadgeEvaluator) EvaluateBudgetKeeper(ctx context.Context, userID string, now time.Time) (*model.Badge, error) {
	months, err := e.consecutiveOnBudgetMonths(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	spec := badgeSpecs[BadgeBudgetKeeper]
	tier := spec.satisfiedTier(float64(months))
	if tier == nil {
		return nil, nil
	}
	return e.award(ctx, userID, spec, *tier, now)
}

func (e *BadgeEvaluator) consecutiveOnBudgetMonths(ctx context.Context, userID string, now time.Time) (int, error) {
	budgets, err := e.store.ListBudgets(ctx, userID, model.BudgetMonthly)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return 0, nil
	}

	day := model.DateOnly(now)
	count := 0
	// Walk back month by month from the last completed month.
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	for {
		monthEnd := monthStart.AddDate(0, 1, 0)
		budget := coveringBudget(budgets, monthStart, monthEnd)
		if budget == nil {
			break
		}
		spent, err := e.store.SumExpenses(ctx, userID, monthStart, monthEnd)
		if err != nil {
			return 0, fmt.Errorf("sum month expenses: %w", err)
		}
		if spent > budget.Amount {
			break
		}
		count++
		monthStart = monthStart.AddDate(0, -1, 0)
	}
	return count, nil
}

// coveringBudget picks a budget row whose [StartDate, EndDate] spans the
// whole calendar month [monthStart, monthEnd).
func coveringBudget(budgets []*model.Budget, monthStart, monthEnd time.Time) *model.Budget {
	lastDay := monthEnd.AddDate(0, 0, -1)
	for _, b := range budgets {
		start := model.DateOnly(b.StartDate)
		end := model.DateOnly(b.EndDate)
		if !start.After(monthStart) && !end.Before(lastDay) {
			return b
		}
	}
	return nil
}

// EvaluateMindfulSpender checks the category-ceiling badge against the
// current month's dining plus entertainment spend. Months with no
// expenses at all are skipped so an unused account never earns gold.
func (e *BadgeEvaluator) EvaluateMindfulSpender(ctx context.Context, userID string, now time.Time) (*model.Badge, error) {
	day := model.DateOnly(now)
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	byCategory, err := e.store.SumExpensesByCategory(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("sum month categories: %w", err)
	}
	if len(byCategory) == 0 {
		return nil, nil
	}
	metric := byCategory[model.CategoryDining] + byCategory[model.CategoryEntertainment]

	spec := badgeSpecs[BadgeMindfulSpender]
	tier := spec.satisfiedTier(metric)
	if tier == nil {
		return nil, nil
	}
	return e.award(ctx, userID, spec, *tier, now)
}

// EvaluateAll runs every badge check and returns the newly awarded
// badges, empty if none.
func (e *BadgeEvaluator) EvaluateAll(ctx context.Context, userID string, streakDays int, now time.Time) ([]*model.Badge, error) {
	var awarded []*model.Badge
	checks := []func() (*model.Badge, error){
		func() (*model.Badge, error) { return e.EvaluateConsistency(ctx, userID, streakDays, now) },
		func() (*model.Badge, error) { return e.EvaluateBudgetKeeper(ctx, userID, now) },
		func() (*model.Badge, error) { return e.EvaluateMindfulSpender(ctx, userID, now) },
	}
	for _, check := range checks {
		badge, err := check()
		if err != nil {
			return awarded, err
		}
		if badge != nil {
			awarded = append(awarded, badge)
		}
	}
	return awarded, nil
}
