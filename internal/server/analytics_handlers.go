package server

import (
	"chograce/internal/analytics"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// analyticsQueries writes a 503 when no database is configured.
func (s *Server) analyticsQueries(w http.ResponseWriter) *analytics.Queries {
	if s.DB == nil {
		http.Error(w, "Analytics requires a database connection", http.StatusServiceUnavailable)
		return nil
	}
	return analytics.NewQueries(s.DB)
}

func (s *Server) handleAnalyticsLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := s.analyticsQueries(w)
	if q == nil {
		return
	}
	category := r.URL.Query().Get("cat")
	if category == "" {
		category = analytics.CategoryWins
	}
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	entries, err := q.GetLeaderboard(category, limit)
	if err != nil {
		log.Error("analytics leaderboard", "err", err, "cat", category)
		http.Error(w, "Error loading leaderboard", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAnalyticsPlayer(w http.ResponseWriter, r *http.Request) {
	q := s.analyticsQueries(w)
	if q == nil {
		return
	}
	stats, err := q.GetPlayerLifetimeStats(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Player not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("analytics player", "err", err)
		http.Error(w, "Error loading player", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAnalyticsRace(w http.ResponseWriter, r *http.Request) {
	q := s.analyticsQueries(w)
	if q == nil {
		return
	}
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "Invalid race id", http.StatusBadRequest)
		return
	}
	recap, err := q.GetRaceRecap(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Race not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("analytics race", "err", err)
		http.Error(w, "Error loading race", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recap)
}
