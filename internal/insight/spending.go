package insight

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

// categoryLabel turns an enum value into display text ("mobile_money"
// is the only multi-word enum but keep it general).
func categoryLabel(v string) string {
	parts := strings.Split(v, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// weeklyChangeGenerator compares this week's spend with the prior week.
type weeklyChangeGenerator struct{}

func (weeklyChangeGenerator) Name() string { return "weekly_change" }

func (weeklyChangeGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	weekStart := startOfWeek(now)
	thisWeek, err := s.SumExpenses(ctx, userID, weekStart, tomorrow(now))
	if err != nil {
		return nil, err
	}
	prevWeek, err := s.SumExpenses(ctx, userID, weekStart.AddDate(0, 0, -7), weekStart)
	if err != nil {
		return nil, err
	}
	if prevWeek <= 0 {
		return nil, nil
	}

	change := round1((thisWeek - prevWeek) / prevWeek * 100)
	switch {
	case change > 25:
		return &Insight{
			Type:     TypeWarning,
			Icon:     "trending-up",
			Priority: 3,
			Title:    "Spending is up this week",
			Message: fmt.Sprintf("You've spent %s so far this week, %.1f%% more than last week's %s.",
				cedis(thisWeek), change, cedis(prevWeek)),
			Tip:    "Review this week's larger purchases to see what changed.",
			Source: "weekly_change",
		}, nil
	case change < -10:
		return &Insight{
			Type:     TypePositive,
			Icon:     "trending-down",
			Priority: 5,
			Title:    "Spending is down this week",
			Message: fmt.Sprintf("You've spent %s so far this week, %.1f%% less than last week's %s. Keep it up!",
				cedis(thisWeek), -change, cedis(prevWeek)),
			Source: "weekly_change",
		}, nil
	case change > 0:
		return &Insight{
			Type:     TypeInfo,
			Icon:     "activity",
			Priority: 8,
			Title:    "Slightly higher spending",
			Message: fmt.Sprintf("This week's spend of %s is %.1f%% above last week's.",
				cedis(thisWeek), change),
			Source: "weekly_change",
		}, nil
	}
	return nil, nil
}

// topCategoryGenerator reports the largest category's share of the
// trailing 30 days. Surfaced whenever any spend exists.
type topCategoryGenerator struct{}

func (topCategoryGenerator) Name() string { return "top_category" }

func (topCategoryGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	byCat, err := s.SumExpensesByCategory(ctx, userID, tomorrow(now).AddDate(0, 0, -30), tomorrow(now))
	if err != nil {
		return nil, err
	}

	var total, top float64
	var topCat model.Category
	for cat, amount := range byCat {
		total += amount
		if amount > top || (amount == top && cat < topCat) {
			top = amount
			topCat = cat
		}
	}
	if total <= 0 {
		return nil, nil
	}

	share := round1(top / total * 100)
	return &Insight{
		Type:     TypeInfo,
		Icon:     "pie-chart",
		Priority: 7,
		Title:    fmt.Sprintf("%s leads your spending", categoryLabel(string(topCat))),
		Message: fmt.Sprintf("%s made up %.1f%% of your last 30 days of spending (%s of %s).",
			categoryLabel(string(topCat)), share, cedis(top), cedis(total)),
		Source: "top_category",
	}, nil
}

// anomalyGenerator flags a day whose total is far above the trailing
// 30-day mean. Examines today, or yesterday when today has no spend.
type anomalyGenerator struct{}

func (anomalyGenerator) Name() string { return "unusual_spending" }

func (anomalyGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	today := startOfDay(now)
	totals, err := s.DailyExpenseTotals(ctx, userID, today.AddDate(0, 0, -30), tomorrow(now))
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]float64, len(totals))
	for _, dt := range totals {
		byDay[dt.Date] = dt.Total
	}

	day := today
	amount := byDay[day.Format(time.DateOnly)]
	if amount == 0 {
		day = today.AddDate(0, 0, -1)
		amount = byDay[day.Format(time.DateOnly)]
	}
	if amount == 0 {
		return nil, nil
	}

	// Baseline: the 30 calendar days before the examined day, zero-spend
	// days included.
	var sum float64
	for i := 1; i <= 30; i++ {
		sum += byDay[day.AddDate(0, 0, -i).Format(time.DateOnly)]
	}
	mean := sum / 30

	var variance float64
	for i := 1; i <= 30; i++ {
		diff := byDay[day.AddDate(0, 0, -i).Format(time.DateOnly)] - mean
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / 30)
	if stddev <= 0 {
		return nil, nil
	}

	if amount <= mean+1.5*stddev {
		return nil, nil
	}

	label := "Today's"
	if !day.Equal(today) {
		label = "Yesterday's"
	}
	return &Insight{
		Type:     TypeWarning,
		Icon:     "alert-triangle",
		Priority: 2,
		Title:    "Unusual spending detected",
		Message: fmt.Sprintf("%s total of %s is well above your typical daily spend of %s.",
			label, cedis(amount), cedis(mean)),
		Tip:    "Check whether everything was logged correctly, or plan a lighter day tomorrow.",
		Source: "unusual_spending",
	}, nil
}

// categoryTrendGenerator reports the category with the largest
// month-over-month swing, among categories with prior-month spend.
type categoryTrendGenerator struct{}

func (categoryTrendGenerator) Name() string { return "category_trend" }

func (categoryTrendGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	monthStart := startOfMonth(now)
	thisMonth, err := s.SumExpensesByCategory(ctx, userID, monthStart, tomorrow(now))
	if err != nil {
		return nil, err
	}
	prevMonth, err := s.SumExpensesByCategory(ctx, userID, monthStart.AddDate(0, -1, 0), monthStart)
	if err != nil {
		return nil, err
	}

	var swingCat model.Category
	var swing float64
	found := false
	for cat, prev := range prevMonth {
		if prev <= 0 {
			continue
		}
		change := (thisMonth[cat] - prev) / prev * 100
		if !found || math.Abs(change) > math.Abs(swing) {
			swing = change
			swingCat = cat
			found = true
		}
	}
	if !found {
		return nil, nil
	}

	swing = round1(swing)
	label := categoryLabel(string(swingCat))
	switch {
	case swing > 30:
		return &Insight{
			Type:     TypeWarning,
			Icon:     "trending-up",
			Priority: 3,
			Title:    fmt.Sprintf("%s spending is climbing", label),
			Message: fmt.Sprintf("%s is up %.1f%% this month compared with last month (%s vs %s).",
				label, swing, cedis(thisMonth[swingCat]), cedis(prevMonth[swingCat])),
			Tip:    fmt.Sprintf("Set a closer eye on %s purchases for the rest of the month.", strings.ToLower(label)),
			Source: "category_trend",
		}, nil
	case swing < -30:
		return &Insight{
			Type:     TypePositive,
			Icon:     "trending-down",
			Priority: 5,
			Title:    fmt.Sprintf("%s spending dropped", label),
			Message: fmt.Sprintf("%s is down %.1f%% this month compared with last month (%s vs %s).",
				label, -swing, cedis(thisMonth[swingCat]), cedis(prevMonth[swingCat])),
			Source: "category_trend",
		}, nil
	}
	return nil, nil
}
