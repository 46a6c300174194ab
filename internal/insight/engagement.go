package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sika-app/backend/internal/store"
)

// streakGenerator celebrates a long daily-logging streak or nudges a
// user with none at all.
type streakGenerator struct{}

func (streakGenerator) Name() string { return "streak" }

func (streakGenerator) Generate(ctx context.Context, s store.Store, userID string, now time.Time) (*Insight, error) {
	streak, err := s.GetStreak(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		streak = nil
	} else if err != nil {
		return nil, err
	}

	if streak == nil || streak.Current == 0 {
		return &Insight{
			Type:     TypeInfo,
			Icon:     "flame",
			Priority: 7,
			Title:    "Start a logging streak",
			Message:  "Log an expense today to start a daily streak.",
			Tip:      "Daily logging keeps your insights accurate.",
			Source:   "streak",
		}, nil
	}

	if streak.Current >= 7 {
		msg := fmt.Sprintf("You've logged expenses %d days in a row.", streak.Current)
		if streak.Longest > streak.Current {
			msg = fmt.Sprintf("You've logged expenses %d days in a row — your record is %d.",
				streak.Current, streak.Longest)
		}
		return &Insight{
			Type:     TypePositive,
			Icon:     "flame",
			Priority: 5,
			Title:    fmt.Sprintf("%d-day streak", streak.Current),
			Message:  msg,
			Source:   "streak",
		}, nil
	}
	return nil, nil
}
