package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/store"
)

// weekendWeekdayGenerator compares average daily spend on weekends
// against weekdays over the trailing 30 days. Surfaced only when one
// side exceeds the other by at least 50%.
type weekendWeekdayGenerator struct{}

func (weekendWeekdayGenerator) Name() string { return "weekend_weekday" }

func (weekendWeekdayGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	end := tomorrow(now)
	start := end.AddDate(0, 0, -30)
	totals, err := s.DailyExpenseTotals(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return nil, nil
	}

	byDay := make(map[string]float64, len(totals))
	for _, dt := range totals {
		byDay[dt.Date] = dt.Total
	}

	// Averages are over calendar days in the window, not just days with
	// spend, so a free Saturday counts in the weekend denominator.
	var weekendSum, weekdaySum float64
	var weekendDays, weekdayDays int
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		amount := byDay[d.Format(time.DateOnly)]
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			weekendSum += amount
			weekendDays++
		} else {
			weekdaySum += amount
			weekdayDays++
		}
	}
	if weekendDays == 0 || weekdayDays == 0 {
		return nil, nil
	}

	weekendAvg := weekendSum / float64(weekendDays)
	weekdayAvg := weekdaySum / float64(weekdayDays)
	switch {
	case weekdayAvg > 0 && weekendAvg >= 1.5*weekdayAvg:
		extra := round1((weekendAvg - weekdayAvg) / weekdayAvg * 100)
		return &Insight{
			Type:     TypeInfo,
			Icon:     "calendar",
			Priority: 6,
			Title:    "Weekends cost you more",
			Message: fmt.Sprintf("You spend %.1f%% more per day on weekends (%s) than on weekdays (%s).",
				extra, cedis(weekendAvg), cedis(weekdayAvg)),
			Tip:    "Planning weekend activities in advance can keep the difference in check.",
			Source: "weekend_weekday",
		}, nil
	case weekendAvg > 0 && weekdayAvg >= 1.5*weekendAvg:
		extra := round1((weekdayAvg - weekendAvg) / weekendAvg * 100)
		return &Insight{
			Type:     TypeInfo,
			Icon:     "calendar",
			Priority: 6,
			Title:    "Weekdays cost you more",
			Message: fmt.Sprintf("You spend %.1f%% more per day on weekdays (%s) than on weekends (%s).",
				extra, cedis(weekdayAvg), cedis(weekendAvg)),
			Source: "weekend_weekday",
		}, nil
	}
	return nil, nil
}

// noSpendDaysGenerator counts zero-spend days in the current week so far.
type noSpendDaysGenerator struct{}

func (noSpendDaysGenerator) Name() string { return "no_spend_days" }

func (noSpendDaysGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	weekStart := startOfWeek(now)
	totals, err := s.DailyExpenseTotals(ctx, userID, weekStart, tomorrow(now))
	if err != nil {
		return nil, err
	}

	spent := make(map[string]bool, len(totals))
	for _, dt := range totals {
		if dt.Total > 0 {
			spent[dt.Date] = true
		}
	}

	elapsed := 0
	noSpend := 0
	for d := weekStart; d.Before(tomorrow(now)); d = d.AddDate(0, 0, 1) {
		elapsed++
		if !spent[d.Format(time.DateOnly)] {
			noSpend++
		}
	}

	switch {
	case noSpend >= 3:
		return &Insight{
			Type:     TypePositive,
			Icon:     "shield-check",
			Priority: 5,
			Title:    "No-spend days add up",
			Message:  fmt.Sprintf("You've had %d no-spend days this week. Great discipline!", noSpend),
			Source:   "no_spend_days",
		}, nil
	case noSpend == 0 && elapsed >= 3:
		return &Insight{
			Type:     TypeInfo,
			Icon:     "coins",
			Priority: 7,
			Title:    "No break from spending yet",
			Message:  fmt.Sprintf("You've spent money on each of the last %d days.", elapsed),
			Tip:      "Try one no-spend day this week.",
			Source:   "no_spend_days",
		}, nil
	}
	return nil, nil
}

// bestDayGenerator names the weekday with the lowest average daily spend
// over the trailing 60 days.
type bestDayGenerator struct{}

func (bestDayGenerator) Name() string { return "best_day" }

func (bestDayGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	end := tomorrow(now)
	start := end.AddDate(0, 0, -60)
	totals, err := s.DailyExpenseTotals(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return nil, nil
	}

	byDay := make(map[string]float64, len(totals))
	for _, dt := range totals {
		byDay[dt.Date] = dt.Total
	}

	var sums [7]float64
	var counts [7]int
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		wd := int(d.Weekday())
		sums[wd] += byDay[d.Format(time.DateOnly)]
		counts[wd]++
	}

	best := -1
	var bestAvg float64
	for wd := 0; wd < 7; wd++ {
		if counts[wd] == 0 {
			continue
		}
		avg := sums[wd] / float64(counts[wd])
		if best == -1 || avg < bestAvg {
			best = wd
			bestAvg = avg
		}
	}
	if best == -1 {
		return nil, nil
	}

	return &Insight{
		Type:     TypeInfo,
		Icon:     "sun",
		Priority: 8,
		Title:    fmt.Sprintf("%s is your lightest day", time.Weekday(best)),
		Message: fmt.Sprintf("Over the last two months you've averaged just %s on %ss.",
			cedis(bestAvg), time.Weekday(best)),
		Source: "best_day",
	}, nil
}

// paymentMethodGenerator surfaces heavy concentration on a single
// payment method (>70% of trailing-30-day spend).
type paymentMethodGenerator struct{}

func (paymentMethodGenerator) Name() string { return "payment_concentration" }

func (paymentMethodGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	byMethod, err := s.SumExpensesByPaymentMethod(ctx, userID, tomorrow(now).AddDate(0, 0, -30), tomorrow(now))
	if err != nil {
		return nil, err
	}

	var total, top float64
	var topMethod model.PaymentMethod
	for method, amount := range byMethod {
		total += amount
		if amount > top || (amount == top && method < topMethod) {
			top = amount
			topMethod = method
		}
	}
	if total <= 0 {
		return nil, nil
	}

	share := round1(top / total * 100)
	if share <= 70 {
		return nil, nil
	}

	return &Insight{
		Type:     TypeInfo,
		Icon:     "credit-card",
		Priority: 6,
		Title:    fmt.Sprintf("Most spending goes through %s", categoryLabel(string(topMethod))),
		Message: fmt.Sprintf("%.1f%% of your last 30 days of spending was paid via %s.",
			share, categoryLabel(string(topMethod))),
		Tip:    "Concentrated payments are easy to track, but check the method's fees and limits.",
		Source: "payment_concentration",
	}, nil
}
