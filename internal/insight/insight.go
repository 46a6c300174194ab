// Package insight derives short, prioritized behavioral observations
// from a user's transaction history. Each generator encapsulates one
// fixed-threshold heuristic; the aggregator fans them out, tolerates
// individual failures and ranks whatever settled.
package insight

import (
	"context"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sika-app/backend/internal/store"
)

// Type classifies an insight for the consumer.
type Type string

const (
	TypePositive Type = "positive"
	TypeWarning  Type = "warning"
	TypeInfo     Type = "info"
	TypeAlert    Type = "alert"
)

// Insight is a single observation. It is produced fresh per request and
// never persisted. Lower Priority means more urgent.
type Insight struct {
	Type     Type   `json:"type"`
	Icon     string `json:"icon"`
	Priority int    `json:"priority"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Tip      string `json:"tip,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Generator is one behavioral heuristic. A nil insight with a nil error
// means "nothing to say". Implementations resolve data anomalies they
// cannot interpret (empty windows, zero denominators) to absence rather
// than errors; errors are reserved for store failures.
type Generator interface {
	Name() string
	Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error)
}

// DefaultGenerators returns the full generator set in registration
// order. The aggregator uses the order as the stable tie-break.
func DefaultGenerators() []Generator {
	return []Generator{
		weeklyChangeGenerator{},
		topCategoryGenerator{},
		weekendWeekdayGenerator{},
		noSpendDaysGenerator{},
		anomalyGenerator{},
		categoryTrendGenerator{},
		budgetProximityGenerator{},
		goalPaceGenerator{},
		bestDayGenerator{},
		streakGenerator{},
		savingsRateGenerator{},
		paymentMethodGenerator{},
		forecastGenerator{},
	}
}

var printer = message.NewPrinter(language.English)

// cedis formats a monetary amount for display: rounded to the nearest
// whole cedi with thousands grouping.
func cedis(amount float64) string {
	return printer.Sprintf("₵%d", int64(math.Round(amount)))
}

// round1 rounds a percentage to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the preceding (or same) Sunday at midnight UTC.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// tomorrow is the exclusive upper bound that includes all of today.
func tomorrow(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1)
}

func daysIn(month time.Time) int {
	first := startOfMonth(month)
	return first.AddDate(0, 1, -1).Day()
}
