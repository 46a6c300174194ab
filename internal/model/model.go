// Package model holds the domain types shared by the insight and
// progression engine. All records are owned and mutated by the external
// CRUD layer except Streak, XPRecord, Badge and Notification, which are
// written by the gamification components.
package model

import "time"

// Category classifies an expense.
type Category string

const (
	CategoryDining        Category = "dining"
	CategoryGroceries     Category = "groceries"
	CategoryTransport     Category = "transport"
	CategoryUtilities     Category = "utilities"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategoryHousing       Category = "housing"
	CategoryOther         Category = "other"
)

// PaymentMethod records how an expense was paid.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentMobileMoney  PaymentMethod = "mobile_money"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

// IncomeSource classifies an income entry.
type IncomeSource string

const (
	IncomeSalary     IncomeSource = "salary"
	IncomeBusiness   IncomeSource = "business"
	IncomeInvestment IncomeSource = "investment"
	IncomeGift       IncomeSource = "gift"
	IncomeOther      IncomeSource = "other"
)

// BudgetPeriod is the cadence a budget covers.
type BudgetPeriod string

const (
	BudgetWeekly  BudgetPeriod = "weekly"
	BudgetMonthly BudgetPeriod = "monthly"
)

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
)

// BadgeTier ranks an achievement within one badge type.
type BadgeTier string

const (
	TierBronze BadgeTier = "bronze"
	TierSilver BadgeTier = "silver"
	TierGold   BadgeTier = "gold"
)

// NotificationType labels engine-emitted notifications.
type NotificationType string

const (
	NotificationLevelUp     NotificationType = "level_up"
	NotificationBadgeEarned NotificationType = "badge_earned"
)

// Expense is a single spend record. Read-only to the engine.
type Expense struct {
	ID            string        `json:"id" firestore:"ID"`
	UserID        string        `json:"user_id" firestore:"UserID"`
	Amount        float64       `json:"amount" firestore:"Amount"`
	Category      Category      `json:"category" firestore:"Category"`
	PaymentMethod PaymentMethod `json:"payment_method" firestore:"PaymentMethod"`
	Date          time.Time     `json:"date" firestore:"Date"`
	Note          string        `json:"note,omitempty" firestore:"Note"`
	Recurrence    string        `json:"recurrence,omitempty" firestore:"Recurrence"`
}

// Income is a single income record. Read-only to the engine.
type Income struct {
	ID     string       `json:"id" firestore:"ID"`
	UserID string       `json:"user_id" firestore:"UserID"`
	Amount float64      `json:"amount" firestore:"Amount"`
	Source IncomeSource `json:"source" firestore:"Source"`
	Date   time.Time    `json:"date" firestore:"Date"`
}

// Budget is a spending cap for one period. At most one active budget per
// period type per user; the CRUD layer enforces that.
type Budget struct {
	ID        string       `json:"id" firestore:"ID"`
	UserID    string       `json:"user_id" firestore:"UserID"`
	Period    BudgetPeriod `json:"period" firestore:"Period"`
	Amount    float64      `json:"amount" firestore:"Amount"`
	StartDate time.Time    `json:"start_date" firestore:"StartDate"`
	EndDate   time.Time    `json:"end_date" firestore:"EndDate"`
	Active    bool         `json:"active" firestore:"Active"`
}

// Goal is a savings goal. CurrentAmount never exceeds TargetAmount.
type Goal struct {
	ID            string     `json:"id" firestore:"ID"`
	UserID        string     `json:"user_id" firestore:"UserID"`
	Title         string     `json:"title" firestore:"Title"`
	TargetAmount  float64    `json:"target_amount" firestore:"TargetAmount"`
	CurrentAmount float64    `json:"current_amount" firestore:"CurrentAmount"`
	Deadline      *time.Time `json:"deadline,omitempty" firestore:"Deadline"`
	Status        GoalStatus `json:"status" firestore:"Status"`
}

// Streak is the per-user daily-logging streak record. LastActivity is nil
// until the first activity and always a midnight-UTC date afterwards.
// Longest never decreases and is always >= Current.
type Streak struct {
	UserID       string     `json:"user_id" firestore:"UserID"`
	Current      int        `json:"current_streak" firestore:"Current"`
	Longest      int        `json:"longest_streak" firestore:"Longest"`
	LastActivity *time.Time `json:"last_activity_date,omitempty" firestore:"LastActivity"`
}

// XPRecord is the per-user experience total. Level is derived from
// TotalXP and never decreases.
type XPRecord struct {
	UserID  string `json:"user_id" firestore:"UserID"`
	TotalXP int    `json:"total_xp" firestore:"TotalXP"`
	Level   int    `json:"level" firestore:"Level"`
}

// Badge is one earned achievement tier. (UserID, Name, Tier) is unique.
type Badge struct {
	ID          string    `json:"id" firestore:"ID"`
	UserID      string    `json:"user_id" firestore:"UserID"`
	Name        string    `json:"name" firestore:"Name"`
	Tier        BadgeTier `json:"tier" firestore:"Tier"`
	Description string    `json:"description" firestore:"Description"`
	EarnedAt    time.Time `json:"earned_at" firestore:"EarnedAt"`
}

// Notification is an engine-emitted event handed to the notification
// sink. Persistence keeps the dashboard's unread list; delivery is an
// external concern.
type Notification struct {
	ID        string           `json:"id" firestore:"ID"`
	UserID    string           `json:"user_id" firestore:"UserID"`
	Type      NotificationType `json:"type" firestore:"Type"`
	Title     string           `json:"title" firestore:"Title"`
	Message   string           `json:"message" firestore:"Message"`
	Read      bool             `json:"read" firestore:"Read"`
	CreatedAt time.Time        `json:"created_at" firestore:"CreatedAt"`
}

// DailyTotal is one day's expense aggregate. Date is YYYY-MM-DD.
// Days with no spend are omitted by the store; callers that need a dense
// series fill the gaps from the calendar.
type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// DateOnly normalizes t to midnight UTC. Streak transitions and daily
// aggregates compare calendar days, never instants.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
