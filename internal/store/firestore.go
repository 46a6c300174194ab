package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sika-app/backend/internal/model"
)

// FirestoreStore implements Store using Firestore. Firestore has no
// server-side SUM over arbitrary ranges on this schema, so aggregate
// queries fetch the range and reduce in memory; ranges here are bounded
// (at most ~60 days of one user's rows).
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func firestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// expensesInRange fetches one user's expenses with Date in [start, end).
// NOTE: field names must match Go struct field names (PascalCase), which
// is how Firestore serializes the model structs.
func (s *FirestoreStore) expensesInRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Expense, error) {
	docs, err := s.client.Collection("expenses").
		Where("UserID", "==", userID).
		Where("Date", ">=", model.DateOnly(start)).
		Where("Date", "<", model.DateOnly(end)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}

	expenses := make([]*model.Expense, 0, len(docs))
	for _, doc := range docs {
		var e model.Expense
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("parse expense: %w", err)
		}
		expenses = append(expenses, &e)
	}
	return expenses, nil
}

func (s *FirestoreStore) SumExpenses(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	expenses, err := s.expensesInRange(ctx, userID, start, end)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total, nil
}

func (s *FirestoreStore) SumExpensesByCategory(ctx context.Context, userID string, start, end time.Time) (map[model.Category]float64, error) {
	expenses, err := s.expensesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	totals := make(map[model.Category]float64)
	for _, e := range expenses {
		totals[e.Category] += e.Amount
	}
	return totals, nil
}

func (s *FirestoreStore) SumExpensesByPaymentMethod(ctx context.Context, userID string, start, end time.Time) (map[model.PaymentMethod]float64, error) {
	expenses, err := s.expensesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	totals := make(map[model.PaymentMethod]float64)
	for _, e := range expenses {
		totals[e.PaymentMethod] += e.Amount
	}
	return totals, nil
}

func (s *FirestoreStore) DailyExpenseTotals(ctx context.Context, userID string, start, end time.Time) ([]model.DailyTotal, error) {
	expenses, err := s.expensesInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*model.DailyTotal)
	for _, e := range expenses {
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

func (s *FirestoreStore) SumIncome(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	docs, err := s.client.Collection("incomes").
		Where("UserID", "==", userID).
		Where("Date", ">=", model.DateOnly(start)).
		Where("Date", "<", model.DateOnly(end)).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("query incomes: %w", err)
	}

	var total float64
	for _, doc := range docs {
		var in model.Income
		if err := doc.DataTo(&in); err != nil {
			return 0, fmt.Errorf("parse income: %w", err)
		}
		total += in.Amount
	}
	return total, nil
}

func (s *FirestoreStore) ActiveBudget(ctx context.Context, userID string, period model.BudgetPeriod, asOf time.Time) (*model.Budget, error) {
	// Firestore allows range filters on a single field only, so filter
	// StartDate server-side and EndDate/Active in memory.
	day := model.DateOnly(asOf)
	docs, err := s.client.Collection("budgets").
		Where("UserID", "==", userID).
		Where("Period", "==", string(period)).
		Where("StartDate", "<=", day).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}

	var best *model.Budget
	for _, doc := range docs {
		var b model.Budget
		if err := doc.DataTo(&b); err != nil {
			return nil, fmt.Errorf("parse budget: %w", err)
		}
		if !b.Active || model.DateOnly(b.EndDate).Before(day) {
			continue
		}
		if best == nil || b.StartDate.After(best.StartDate) {
			copied := b
			best = &copied
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (s *FirestoreStore) ListBudgets(ctx context.Context, userID string, period model.BudgetPeriod) ([]*model.Budget, error) {
	docs, err := s.client.Collection("budgets").
		Where("UserID", "==", userID).
		Where("Period", "==", string(period)).
		OrderBy("StartDate", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	budgets := make([]*model.Budget, 0, len(docs))
	for _, doc := range docs {
		var b model.Budget
		if err := doc.DataTo(&b); err != nil {
			return nil, fmt.Errorf("parse budget: %w", err)
		}
		budgets = append(budgets, &b)
	}
	return budgets, nil
}

func (s *FirestoreStore) ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]*model.Goal, error) {
	docs, err := s.client.Collection("goals").
		Where("UserID", "==", userID).
		Where("Status", "==", string(status)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	goals := make([]*model.Goal, 0, len(docs))
	for _, doc := range docs {
		var g model.Goal
		if err := doc.DataTo(&g); err != nil {
			return nil, fmt.Errorf("parse goal: %w", err)
		}
		goals = append(goals, &g)
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID < goals[j].ID })
	return goals, nil
}

func (s *FirestoreStore) GetStreak(ctx context.Context, userID string) (*model.Streak, error) {
	doc, err := s.client.Collection("streaks").Doc(userID).Get(ctx)
	if err != nil {
		if firestoreNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get streak: %w", err)
	}
	var streak model.Streak
	if err := doc.DataTo(&streak); err != nil {
		return nil, fmt.Errorf("parse streak: %w", err)
	}
	return &streak, nil
}

func (s *FirestoreStore) SaveStreak(ctx context.Context, streak *model.Streak) error {
	_, err := s.client.Collection("streaks").Doc(streak.UserID).Set(ctx, streak)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

func (s *FirestoreStore) GetXPRecord(ctx context.Context, userID string) (*model.XPRecord, error) {
	doc, err := s.client.Collection("xpRecords").Doc(userID).Get(ctx)
	if err != nil {
		if firestoreNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get xp record: %w", err)
	}
	var record model.XPRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("parse xp record: %w", err)
	}
	return &record, nil
}

func (s *FirestoreStore) SaveXPRecord(ctx context.Context, record *model.XPRecord) error {
	_, err := s.client.Collection("xpRecords").Doc(record.UserID).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("save xp record: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListBadges(ctx context.Context, userID string) ([]*model.Badge, error) {
	docs, err := s.client.Collection("badges").
		Where("UserID", "==", userID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}

	badges := make([]*model.Badge, 0, len(docs))
	for _, doc := range docs {
		var b model.Badge
		if err := doc.DataTo(&b); err != nil {
			return nil, fmt.Errorf("parse badge: %w", err)
		}
		badges = append(badges, &b)
	}
	sort.Slice(badges, func(i, j int) bool { return badges[i].EarnedAt.Before(badges[j].EarnedAt) })
	return badges, nil
}

// badgeDocID keys a badge by its uniqueness constraint so a duplicate
// award targets the same document.
func badgeDocID(userID, name string, tier model.BadgeTier) string {
	return userID + "_" + name + "_" + string(tier)
}

func (s *FirestoreStore) HasBadge(ctx context.Context, userID, name string, tier model.BadgeTier) (bool, error) {
	_, err := s.client.Collection("badges").Doc(badgeDocID(userID, name, tier)).Get(ctx)
	if err != nil {
		if firestoreNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("has badge: %w", err)
	}
	return true, nil
}

func (s *FirestoreStore) CreateBadge(ctx context.Context, badge *model.Badge) error {
	// Create fails on an existing document, which is exactly the
	// uniqueness semantics the evaluator needs for concurrent awards.
	_, err := s.client.Collection("badges").
		Doc(badgeDocID(badge.UserID, badge.Name, badge.Tier)).
		Create(ctx, badge)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create badge: %w", err)
	}
	return nil
}

func (s *FirestoreStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.client.Collection("notifications").Doc(n.ID).Set(ctx, n)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	query := s.client.Collection("notifications").Where("UserID", "==", userID)
	if unreadOnly {
		query = query.Where("Read", "==", false)
	}
	docs, err := query.OrderBy("CreatedAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	notifications := make([]*model.Notification, 0, len(docs))
	for _, doc := range docs {
		var n model.Notification
		if err := doc.DataTo(&n); err != nil {
			return nil, fmt.Errorf("parse notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, nil
}

func (s *FirestoreStore) MarkNotificationsRead(ctx context.Context, userID string) (int, error) {
	docs, err := s.client.Collection("notifications").
		Where("UserID", "==", userID).
		Where("Read", "==", false).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	for _, doc := range docs {
		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "Read", Value: true}}); err != nil {
			return 0, fmt.Errorf("mark notification %s read: %w", doc.Ref.ID, err)
		}
	}
	return len(docs), nil
}
