// Package store defines the narrow persistence surface the engine
// consumes. Transaction data (expenses, incomes, budgets, goals) is
// owned by the external CRUD layer and exposed here as read-only
// aggregate queries; gamification rows and notifications are written by
// the engine itself.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sika-app/backend/internal/model"
)

// Sentinel errors shared by all backends. Callers compare with errors.Is.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the engine's view of the database. All date ranges are
// half-open [start, end) and compared against midnight-UTC dates.
type Store interface {
	// Expense aggregates.
	SumExpenses(ctx context.Context, userID string, start, end time.Time) (float64, error)
	SumExpensesByCategory(ctx context.Context, userID string, start, end time.Time) (map[model.Category]float64, error)
	SumExpensesByPaymentMethod(ctx context.Context, userID string, start, end time.Time) (map[model.PaymentMethod]float64, error)
	// DailyExpenseTotals returns per-day sums ordered by date ascending.
	// Days without spend are omitted.
	DailyExpenseTotals(ctx context.Context, userID string, start, end time.Time) ([]model.DailyTotal, error)

	// Income aggregates.
	SumIncome(ctx context.Context, userID string, start, end time.Time) (float64, error)

	// Budgets and goals.
	// ActiveBudget returns the active budget of the given period type
	// whose [StartDate, EndDate] covers asOf, or ErrNotFound.
	ActiveBudget(ctx context.Context, userID string, period model.BudgetPeriod, asOf time.Time) (*model.Budget, error)
	// ListBudgets returns all budget rows of the given period type,
	// including inactive historical ones, newest first.
	ListBudgets(ctx context.Context, userID string, period model.BudgetPeriod) ([]*model.Budget, error)
	ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]*model.Goal, error)

	// Gamification records.
	GetStreak(ctx context.Context, userID string) (*model.Streak, error)
	SaveStreak(ctx context.Context, streak *model.Streak) error
	GetXPRecord(ctx context.Context, userID string) (*model.XPRecord, error)
	SaveXPRecord(ctx context.Context, record *model.XPRecord) error
	ListBadges(ctx context.Context, userID string) ([]*model.Badge, error)
	HasBadge(ctx context.Context, userID, name string, tier model.BadgeTier) (bool, error)
	// CreateBadge inserts a badge row. A duplicate (user, name, tier)
	// returns ErrAlreadyExists; backends enforce this with a uniqueness
	// constraint so concurrent evaluations cannot double-award.
	CreateBadge(ctx context.Context, badge *model.Badge) error

	// Notifications.
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error)
	// MarkNotificationsRead flags all of the user's unread notifications
	// as read and returns how many rows changed.
	MarkNotificationsRead(ctx context.Context, userID string) (int, error)
}
