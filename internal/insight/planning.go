package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

// budgetProximityGenerator reports how far the user is through the
// active monthly budget.
type budgetProximityGenerator struct{}

func (budgetProximityGenerator) Name() string { return "budget_proximity" }

func (budgetProximityGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	budget, err := s.ActiveBudget(ctx, userID, model.BudgetMonthly, now)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if budget.Amount <= 0 {
		return nil, nil
	}

	spent, err := s.SumExpenses(ctx, userID, budget.StartDate, tomorrow(now))
	if err != nil {
		return nil, err
	}

	ratio := round1(spent / budget.Amount * 100)
	switch {
	case ratio >= 100:
		return &Insight{
			Type:     TypeAlert,
			Icon:     "alert-octagon",
			Priority: 1,
			Title:    "Budget exceeded",
			Message: fmt.Sprintf("You're %s over your %s monthly budget (%s spent).",
				cedis(spent-budget.Amount), cedis(budget.Amount), cedis(spent)),
			Tip:    "Pause non-essential spending for the rest of the period.",
			Source: "budget_proximity",
		}, nil
	case ratio >= 80:
		return &Insight{
			Type:     TypeWarning,
			Icon:     "gauge",
			Priority: 2,
			Title:    "Approaching your budget",
			Message: fmt.Sprintf("You've used %.1f%% of your monthly budget (%s of %s).",
				ratio, cedis(spent), cedis(budget.Amount)),
			Tip:    fmt.Sprintf("Only %s left for the rest of the period.", cedis(budget.Amount-spent)),
			Source: "budget_proximity",
		}, nil
	case ratio <= 40:
		return &Insight{
			Type:     TypePositive,
			Icon:     "gauge",
			Priority: 6,
			Title:    "Budget well under control",
			Message: fmt.Sprintf("You've used just %.1f%% of your monthly budget (%s of %s).",
				ratio, cedis(spent), cedis(budget.Amount)),
			Source: "budget_proximity",
		}, nil
	}
	return nil, nil
}

// goalPaceGenerator looks at the active goal with the nearest deadline.
type goalPaceGenerator struct{}

func (goalPaceGenerator) Name() string { return "goal_pace" }

func (goalPaceGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	goals, err := s.ListGoals(ctx, userID, model.GoalActive)
	if err != nil {
		return nil, err
	}

	var nearest *model.Goal
	for _, g := range goals {
		if g.Deadline == nil || g.TargetAmount <= 0 {
			continue
		}
		if nearest == nil || g.Deadline.Before(*nearest.Deadline) {
			nearest = g
		}
	}
	if nearest == nil {
		return nil, nil
	}

	pct := round1(nearest.CurrentAmount / nearest.TargetAmount * 100)
	daysLeft := int(startOfDay(*nearest.Deadline).Sub(startOfDay(now)).Hours() / 24)

	switch {
	case daysLeft < 0 && pct < 100:
		return &Insight{
			Type:     TypeWarning,
			Icon:     "target",
			Priority: 3,
			Title:    fmt.Sprintf("\"%s\" deadline has passed", nearest.Title),
			Message: fmt.Sprintf("The goal reached %.1f%% (%s of %s) before its deadline.",
				pct, cedis(nearest.CurrentAmount), cedis(nearest.TargetAmount)),
			Tip:    "Extend the deadline or adjust the target to keep it motivating.",
			Source: "goal_pace",
		}, nil
	case daysLeft <= 7 && pct < 90:
		return &Insight{
			Type:     TypeWarning,
			Icon:     "target",
			Priority: 3,
			Title:    fmt.Sprintf("\"%s\" is due soon", nearest.Title),
			Message: fmt.Sprintf("%d days left and the goal is at %.1f%% (%s of %s).",
				daysLeft, pct, cedis(nearest.CurrentAmount), cedis(nearest.TargetAmount)),
			Tip:    fmt.Sprintf("You'd need %s more to hit the target.", cedis(nearest.TargetAmount-nearest.CurrentAmount)),
			Source: "goal_pace",
		}, nil
	case pct >= 90 && pct < 100:
		return &Insight{
			Type:     TypePositive,
			Icon:     "target",
			Priority: 4,
			Title:    fmt.Sprintf("\"%s\" is almost there", nearest.Title),
			Message: fmt.Sprintf("The goal is at %.1f%% — just %s to go.",
				pct, cedis(nearest.TargetAmount-nearest.CurrentAmount)),
			Source: "goal_pace",
		}, nil
	}
	return nil, nil
}

// savingsRateGenerator computes (income − expenses) / income for the
// current month.
type savingsRateGenerator struct{}

func (savingsRateGenerator) Name() string { return "savings_rate" }

func (savingsRateGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	monthStart := startOfMonth(now)
	income, err := s.SumIncome(ctx, userID, monthStart, tomorrow(now))
	if err != nil {
		return nil, err
	}
	if income <= 0 {
		return nil, nil
	}
	expenses, err := s.SumExpenses(ctx, userID, monthStart, tomorrow(now))
	if err != nil {
		return nil, err
	}

	rate := round1((income - expenses) / income * 100)
	switch {
	case rate < 0:
		return &Insight{
			Type:     TypeAlert,
			Icon:     "alert-octagon",
			Priority: 1,
			Title:    "Spending more than you earn",
			Message: fmt.Sprintf("Expenses of %s exceed this month's income of %s.",
				cedis(expenses), cedis(income)),
			Tip:    "Look for recurring costs you can trim to get back above zero.",
			Source: "savings_rate",
		}, nil
	case rate >= 30:
		return &Insight{
			Type:     TypePositive,
			Icon:     "piggy-bank",
			Priority: 4,
			Title:    "Strong savings rate",
			Message:  fmt.Sprintf("You're saving %.1f%% of this month's income.", rate),
			Source:   "savings_rate",
		}, nil
	case rate < 10:
		return &Insight{
			Type:     TypeWarning,
			Icon:     "piggy-bank",
			Priority: 4,
			Title:    "Thin savings margin",
			Message:  fmt.Sprintf("Only %.1f%% of this month's income is left after expenses.", rate),
			Tip:      "A 10%+ savings rate gives you a buffer for surprises.",
			Source:   "savings_rate",
		}, nil
	}
	return nil, nil
}

// forecastGenerator projects month-end spend linearly from the month so
// far and compares it against the active monthly budget when present.
type forecastGenerator struct{}

func (forecastGenerator) Name() string { return "forecast" }

func (forecastGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	monthStart := startOfMonth(now)
	spent, err := s.SumExpenses(ctx, userID, monthStart, tomorrow(now))
	if err != nil {
		return nil, err
	}
	if spent <= 0 {
		return nil, nil
	}

	daysElapsed := now.UTC().Day()
	projected := spent / float64(daysElapsed) * float64(daysIn(now))

	budget, err := s.ActiveBudget(ctx, userID, model.BudgetMonthly, now)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if budget != nil && budget.Amount > 0 && projected > budget.Amount*1.1 {
		return &Insight{
			Type:     TypeWarning,
			Icon:     "line-chart",
			Priority: 3,
			Title:    "On pace to exceed your budget",
			Message: fmt.Sprintf("At the current rate you'll spend about %s this month, against a budget of %s.",
				cedis(projected), cedis(budget.Amount)),
			Tip: fmt.Sprintf("Keeping daily spend under %s would bring the month back on budget.",
				cedis(budget.Amount/float64(daysIn(now)))),
			Source: "forecast",
		}, nil
	}

	return &Insight{
		Type:     TypeInfo,
		Icon:     "line-chart",
		Priority: 7,
		Title:    "Month-end projection",
		Message: fmt.Sprintf("You're on pace to spend about %s this month (%s so far).",
			cedis(projected), cedis(spent)),
		Source: "forecast",
	}, nil
}
