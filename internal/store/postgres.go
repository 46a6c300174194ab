package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sika-app/backend/internal/model"
)

// PostgresStore implements Store against the relational schema owned by
// the CRUD layer (expenses, incomes, budgets, goals) plus the engine's
// own tables (streaks, xp_records, badges, notifications). Aggregation
// happens in SQL so the engine never pages raw transaction rows.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool and verifies it with a ping.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) SumExpenses(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM expenses
		 WHERE user_id = $1 AND date >= $2 AND date < $3`,
		userID, model.DateOnly(start), model.DateOnly(end),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) SumExpensesByCategory(ctx context.Context, userID string, start, end time.Time) (map[model.Category]float64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT category, COALESCE(SUM(amount), 0)
		 FROM expenses
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 GROUP BY category`,
		userID, model.DateOnly(start), model.DateOnly(end),
	)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[model.Category]float64)
	for rows.Next() {
		var category model.Category
		var total float64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, err
		}
		totals[category] = total
	}
	return totals, rows.Err()
}

func (s *PostgresStore) SumExpensesByPaymentMethod(ctx context.Context, userID string, start, end time.Time) (map[model.PaymentMethod]float64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT payment_method, COALESCE(SUM(amount), 0)
		 FROM expenses
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 GROUP BY payment_method`,
		userID, model.DateOnly(start), model.DateOnly(end),
	)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by payment method: %w", err)
	}
	defer rows.Close()

	totals := make(map[model.PaymentMethod]float64)
	for rows.Next() {
		var method model.PaymentMethod
		var total float64
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		totals[method] = total
	}
	return totals, rows.Err()
}

func (s *PostgresStore) DailyExpenseTotals(ctx context.Context, userID string, start, end time.Time) ([]model.DailyTotal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT date::date, COALESCE(SUM(amount), 0), COUNT(*)
		 FROM expenses
		 WHERE user_id = $1 AND date >= $2 AND date < $3
		 GROUP BY date::date
		 ORDER BY date::date`,
		userID, model.DateOnly(start), model.DateOnly(end),
	)
	if err != nil {
		return nil, fmt.Errorf("daily expense totals: %w", err)
	}
	defer rows.Close()

	var totals []model.DailyTotal
	for rows.Next() {
		var day time.Time
		var dt model.DailyTotal
		if err := rows.Scan(&day, &dt.Total, &dt.Count); err != nil {
			return nil, err
		}
		dt.Date = day.Format(time.DateOnly)
		totals = append(totals, dt)
	}
	return totals, rows.Err()
}

func (s *PostgresStore) SumIncome(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM incomes
		 WHERE user_id = $1 AND date >= $2 AND date < $3`,
		userID, model.DateOnly(start), model.DateOnly(end),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum income: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) ActiveBudget(ctx context.Context, userID string, period model.BudgetPeriod, asOf time.Time) (*model.Budget, error) {
	var b model.Budget
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, period, amount, start_date, end_date, active
		 FROM budgets
		 WHERE user_id = $1 AND period = $2 AND active
		   AND start_date <= $3 AND end_date >= $3
		 ORDER BY start_date DESC
		 LIMIT 1`,
		userID, period, model.DateOnly(asOf),
	).Scan(&b.ID, &b.UserID, &b.Period, &b.Amount, &b.StartDate, &b.EndDate, &b.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active budget: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) ListBudgets(ctx context.Context, userID string, period model.BudgetPeriod) ([]*model.Budget, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, period, amount, start_date, end_date, active
		 FROM budgets
		 WHERE user_id = $1 AND period = $2
		 ORDER BY start_date DESC`,
		userID, period,
	)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*model.Budget
	for rows.Next() {
		var b model.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Period, &b.Amount, &b.StartDate, &b.EndDate, &b.Active); err != nil {
			return nil, err
		}
		budgets = append(budgets, &b)
	}
	return budgets, rows.Err()
}

func (s *PostgresStore) ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]*model.Goal, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, title, target_amount, current_amount, deadline, status
		 FROM goals
		 WHERE user_id = $1 AND status = $2
		 ORDER BY id`,
		userID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []*model.Goal
	for rows.Next() {
		var g model.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &g.Deadline, &g.Status); err != nil {
			return nil, err
		}
		goals = append(goals, &g)
	}
	return goals, rows.Err()
}

func (s *PostgresStore) GetStreak(ctx context.Context, userID string) (*model.Streak, error) {
	var streak model.Streak
	err := s.db.QueryRow(ctx,
		`SELECT user_id, current_streak, longest_streak, last_activity_date
		 FROM streaks
		 WHERE user_id = $1`,
		userID,
	).Scan(&streak.UserID, &streak.Current, &streak.Longest, &streak.LastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return &streak, nil
}

func (s *PostgresStore) SaveStreak(ctx context.Context, streak *model.Streak) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO streaks (user_id, current_streak, longest_streak, last_activity_date)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET current_streak = EXCLUDED.current_streak,
		     longest_streak = EXCLUDED.longest_streak,
		     last_activity_date = EXCLUDED.last_activity_date`,
		streak.UserID, streak.Current, streak.Longest, streak.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetXPRecord(ctx context.Context, userID string) (*model.XPRecord, error) {
	var record model.XPRecord
	err := s.db.QueryRow(ctx,
		`SELECT user_id, total_xp, level FROM xp_records WHERE user_id = $1`,
		userID,
	).Scan(&record.UserID, &record.TotalXP, &record.Level)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get xp record: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) SaveXPRecord(ctx context.Context, record *model.XPRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO xp_records (user_id, total_xp, level)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET total_xp = EXCLUDED.total_xp, level = EXCLUDED.level`,
		record.UserID, record.TotalXP, record.Level,
	)
	if err != nil {
		return fmt.Errorf("save xp record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBadges(ctx context.Context, userID string) ([]*model.Badge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, name, tier, description, earned_at
		 FROM badges
		 WHERE user_id = $1
		 ORDER BY earned_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []*model.Badge
	for rows.Next() {
		var b model.Badge
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Tier, &b.Description, &b.EarnedAt); err != nil {
			return nil, err
		}
		badges = append(badges, &b)
	}
	return badges, rows.Err()
}

func (s *PostgresStore) HasBadge(ctx context.Context, userID, name string, tier model.BadgeTier) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM badges WHERE user_id = $1 AND name = $2 AND tier = $3
		 )`,
		userID, name, tier,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has badge: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateBadge(ctx context.Context, badge *model.Badge) error {
	// The unique index on (user_id, name, tier) resolves insert races:
	// the loser's insert affects zero rows and reports ErrAlreadyExists.
	tag, err := s.db.Exec(ctx,
		`INSERT INTO badges (id, user_id, name, tier, description, earned_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, name, tier) DO NOTHING`,
		badge.ID, badge.UserID, badge.Name, badge.Tier, badge.Description, badge.EarnedAt,
	)
	if err != nil {
		return fmt.Errorf("create badge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *PostgresStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	query := `SELECT id, user_id, type, title, message, read, created_at
	          FROM notifications
	          WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

func (s *PostgresStore) MarkNotificationsRead(ctx context.Context, userID string) (int, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
