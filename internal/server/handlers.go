package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sika-app/backend/internal/insight"
	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/notifications"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// GET /v1/users/{id}/insights?limit=N&all=true
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	opts := insight.Options{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = limit
	}
	if raw := r.URL.Query().Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "all must be a boolean")
			return
		}
		opts.IncludeAll = all
	}

	insights := s.insights.Generate(r.Context(), userID, time.Now().UTC(), opts)
	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

type activityRequest struct {
	Date string `json:"date"`
}

// POST /v1/users/{id}/activity with optional body {"date":"2025-06-18"}.
// Missing date means today.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	activityDate := time.Now().UTC()
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		activityDate = parsed
	}

	result, err := s.gamification.RecordActivity(r.Context(), userID, activityDate)
	if err != nil {
		s.log.Errorf("[Server] record activity for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to record activity")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /v1/users/{id}/badges/evaluate
func (s *Server) handleEvaluateBadges(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	badges, err := s.gamification.EvaluateBadges(r.Context(), userID, time.Now().UTC())
	if err != nil {
		s.log.Errorf("[Server] evaluate badges for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to evaluate badges")
		return
	}
	if badges == nil {
		badges = []*model.Badge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"new_badges": badges})
}

// GET /v1/users/{id}/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	progress, err := s.gamification.GetProgress(r.Context(), userID)
	if err != nil {
		s.log.Errorf("[Server] progress for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// GET /v1/users/{id}/notifications?unread=true
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unread must be a boolean")
			return
		}
		unreadOnly = parsed
	}

	list, err := s.store.ListNotifications(r.Context(), userID, unreadOnly)
	if err != nil {
		s.log.Errorf("[Server] list notifications for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if list == nil {
		list = []*model.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

// POST /v1/users/{id}/notifications/read flags every unread
// notification as read.
func (s *Server) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	updated, err := s.store.MarkNotificationsRead(r.Context(), userID)
	if err != nil {
		s.log.Errorf("[Server] mark notifications read for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// GET /v1/users/{id}/notifications/stream streams events as SSE until
// the client disconnects.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := s.hub.Subscribe(userID)
	defer unsubscribe()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event notifications.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
