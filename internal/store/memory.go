package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sika-app/backend/internal/model"
)

// MemoryStore implements Store with in-memory maps. It backs local
// development and the engine's unit tests.
type MemoryStore struct {
	mu sync.RWMutex

	expenses      map[string]*model.Expense
	incomes       map[string]*model.Income
	budgets       map[string]*model.Budget
	goals         map[string]*model.Goal
	streaks       map[string]*model.Streak
	xpRecords     map[string]*model.XPRecord
	badges        map[string]*model.Badge // keyed by userID|name|tier
	notifications map[string]*model.Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expenses:      make(map[string]*model.Expense),
		incomes:       make(map[string]*model.Income),
		budgets:       make(map[string]*model.Budget),
		goals:         make(map[string]*model.Goal),
		streaks:       make(map[string]*model.Streak),
		xpRecords:     make(map[string]*model.XPRecord),
		badges:        make(map[string]*model.Badge),
		notifications: make(map[string]*model.Notification),
	}
}

func badgeKey(userID, name string, tier model.BadgeTier) string {
	return userID + "|" + name + "|" + string(tier)
}

// inRange reports whether day falls in the half-open range [start, end).
func inRange(day, start, end time.Time) bool {
	d := model.DateOnly(day)
	return !d.Before(model.DateOnly(start)) && d.Before(model.DateOnly(end))
}

// AddExpense seeds an expense row. Test/dev helper, not part of Store.
func (s *MemoryStore) AddExpense(e *model.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.expenses[e.ID] = e
}

// AddIncome seeds an income row.
func (s *MemoryStore) AddIncome(in *model.Income) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	s.incomes[in.ID] = in
}

// AddBudget seeds a budget row.
func (s *MemoryStore) AddBudget(b *model.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	s.budgets[b.ID] = b
}

// AddGoal seeds a goal row.
func (s *MemoryStore) AddGoal(g *model.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	s.goals[g.ID] = g
}

func (s *MemoryStore) SumExpenses(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, e := range s.expenses {
		if e.UserID == userID && inRange(e.Date, start, end) {
			total += e.Amount
		}
	}
	return total, nil
}

func (s *MemoryStore) SumExpensesByCategory(ctx context.Context, userID string, start, end time.Time) (map[model.Category]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[model.Category]float64)
	for _, e := range s.expenses {
		if e.UserID == userID && inRange(e.Date, start, end) {
			totals[e.Category] += e.Amount
		}
	}
	return totals, nil
}

func (s *MemoryStore) SumExpensesByPaymentMethod(ctx context.Context, userID string, start, end time.Time) (map[model.PaymentMethod]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[model.PaymentMethod]float64)
	for _, e := range s.expenses {
		if e.UserID == userID && inRange(e.Date, start, end) {
			totals[e.PaymentMethod] += e.Amount
		}
	}
	return totals, nil
}

func (s *MemoryStore) DailyExpenseTotals(ctx context.Context, userID string, start, end time.Time) ([]model.DailyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string]*model.DailyTotal)
	for _, e := range s.expenses {
		if e.UserID != userID || !inRange(e.Date, start, end) {
			continue
		}
		day := model.DateOnly(e.Date).Format(time.DateOnly)
		dt, ok := byDay[day]
		if !ok {
			dt = &model.DailyTotal{Date: day}
			byDay[day] = dt
		}
		dt.Total += e.Amount
		dt.Count++
	}

	totals := make([]model.DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		totals = append(totals, *dt)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Date < totals[j].Date })
	return totals, nil
}

func (s *MemoryStore) SumIncome(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, in := range s.incomes {
		if in.UserID == userID && inRange(in.Date, start, end) {
			total += in.Amount
		}
	}
	return total, nil
}

func (s *MemoryStore) ActiveBudget(ctx context.Context, userID string, period model.BudgetPeriod, asOf time.Time) (*model.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := model.DateOnly(asOf)
	for _, b := range s.budgets {
		if b.UserID != userID || b.Period != period || !b.Active {
			continue
		}
		if !day.Before(model.DateOnly(b.StartDate)) && !day.After(model.DateOnly(b.EndDate)) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListBudgets(ctx context.Context, userID string, period model.BudgetPeriod) ([]*model.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var budgets []*model.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && b.Period == period {
			copied := *b
			budgets = append(budgets, &copied)
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].StartDate.After(budgets[j].StartDate) })
	return budgets, nil
}

func (s *MemoryStore) ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]*model.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var goals []*model.Goal
	for _, g := range s.goals {
		if g.UserID == userID && g.Status == status {
			copied := *g
			goals = append(goals, &copied)
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID < goals[j].ID })
	return goals, nil
}

func (s *MemoryStore) GetStreak(ctx context.Context, userID string) (*model.Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streak, ok := s.streaks[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *streak
	return &copied, nil
}

func (s *MemoryStore) SaveStreak(ctx context.Context, streak *model.Streak) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *streak
	s.streaks[streak.UserID] = &copied
	return nil
}

func (s *MemoryStore) GetXPRecord(ctx context.Context, userID string) (*model.XPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.xpRecords[userID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryStore) SaveXPRecord(ctx context.Context, record *model.XPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.xpRecords[record.UserID] = &copied
	return nil
}

func (s *MemoryStore) ListBadges(ctx context.Context, userID string) ([]*model.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var badges []*model.Badge
	for _, b := range s.badges {
		if b.UserID == userID {
			copied := *b
			badges = append(badges, &copied)
		}
	}
	sort.Slice(badges, func(i, j int) bool { return badges[i].EarnedAt.Before(badges[j].EarnedAt) })
	return badges, nil
}

func (s *MemoryStore) HasBadge(ctx context.Context, userID, name string, tier model.BadgeTier) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.badges[badgeKey(userID, name, tier)]
	return ok, nil
}

func (s *MemoryStore) CreateBadge(ctx context.Context, badge *model.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := badgeKey(badge.UserID, badge.Name, badge.Tier)
	if _, ok := s.badges[key]; ok {
		return ErrAlreadyExists
	}
	copied := *badge
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	s.badges[key] = &copied
	return nil
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *n
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	s.notifications[copied.ID] = &copied
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var notifications []*model.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		copied := *n
		notifications = append(notifications, &copied)
	}
	sort.Slice(notifications, func(i, j int) bool {
		if notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].ID < notifications[j].ID
		}
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (s *MemoryStore) MarkNotificationsRead(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}
