package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sika-app/backend/internal/config"
	"github.com/sika-app/backend/internal/gamification"
	"github.com/sika-app/backend/internal/insight"
	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/notifications"
	"github.com/sika-app/backend/internal/store"
)

func newTestHandler(t *testing.T) (http.Handler, *store.MemoryStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := store.NewMemoryStore()
	hub := notifications.NewHub()
	notifier := gamification.NewStoreNotifier(s, hub, log)
	game := gamification.NewService(s, notifier, log)
	agg := insight.NewAggregator(s, log)

	srv := New(s, agg, game, hub, log)
	return srv.Handler(config.RateLimitConfig{PerMinute: 6000, Burst: 1000}), s
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestInsightsEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	t.Run("empty history yields only the streak nudge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/u1/insights", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Insights []insight.Insight `json:"insights"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Insights, 1)
		assert.Equal(t, "streak", body.Insights[0].Source)
	})

	t.Run("bad limit is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/u1/insights?limit=zero", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestActivityEndpoint(t *testing.T) {
	handler, s := newTestHandler(t)

	t.Run("records with an explicit date", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/activity", strings.NewReader(`{"date":"2025-06-18"}`))
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var result gamification.ActivityResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Streak.Current)
		assert.Equal(t, gamification.StreakDayXP, result.XPAwarded)
	})

	t.Run("same day repeat awards nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/activity", strings.NewReader(`{"date":"2025-06-18"}`))
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var result gamification.ActivityResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 0, result.XPAwarded)

		record, err := s.GetXPRecord(req.Context(), "u1")
		require.NoError(t, err)
		assert.Equal(t, gamification.StreakDayXP, record.TotalXP)
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/activity", strings.NewReader(`{"date":"18/06/2025"}`))
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProgressEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	// Log one day of activity, then read the dashboard model back.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/users/u1/activity", strings.NewReader(`{"date":"2025-06-18"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/u1/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var progress gamification.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, 1, progress.Streak.Current)
	assert.Equal(t, gamification.StreakDayXP, progress.TotalXP)
	assert.Equal(t, 1, progress.Level)
	assert.Equal(t, 100, progress.NextLevelXP)
}

func TestNotificationsEndpoint(t *testing.T) {
	handler, s := newTestHandler(t)

	// Reaching a milestone persists a badge notification.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/users/u1/badges/evaluate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/u1/notifications", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Notifications []json.RawMessage `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Notifications)

	// Consistency across the store view.
	list, err := s.ListNotifications(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "u1", false)
	require.NoError(t, err)
	assert.Len(t, list, len(body.Notifications))
}

func TestMarkNotificationsReadEndpoint(t *testing.T) {
	handler, s := newTestHandler(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	require.NoError(t, s.CreateNotification(ctx, &model.Notification{
		ID:     "n1",
		UserID: "u1",
		Type:   model.NotificationLevelUp,
		Title:  "Level 2 reached!",
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/users/u1/notifications/read", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Updated int `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Updated)

	unread, err := s.ListNotifications(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRateLimiter(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	rl := newRateLimiter(config.RateLimitConfig{PerMinute: 60, Burst: 2}, log)

	assert.True(t, rl.allow("10.0.0.1:1234"))
	assert.True(t, rl.allow("10.0.0.1:1234"))
	assert.False(t, rl.allow("10.0.0.1:1234"), "burst of 2 is spent")
	assert.True(t, rl.allow("10.0.0.2:1234"), "limits are per client")
}
