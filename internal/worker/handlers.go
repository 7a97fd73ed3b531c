// Package worker provides the HTTP worker service for pathlight.
package worker

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/pathlight/pathlight/internal/decision"
	"github.com/pathlight/pathlight/pkg/models"
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleHealth handles health check requests.
// Returns 200 OK immediately (even during init) so clients can connect
// quickly. Use /api/ready for the full readiness check.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	} else if err := s.GetInitError(); err != nil {
		status = "error"
	}
	writeJSON(w, map[string]interface{}{
		"status":  status,
		"version": s.version,
	})
}

// handleVersion returns the worker version for version checking.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version": s.version,
	})
}

// handleReady handles readiness check requests.
// Returns 200 only when fully initialized, 503 otherwise.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		if err := s.GetInitError(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, "service initializing")
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

// requireReady is middleware that returns 503 if the service isn't ready.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			if err := s.GetInitError(); err != nil {
				writeError(w, http.StatusInternalServerError, "service initialization failed: "+err.Error())
				return
			}
			writeError(w, http.StatusServiceUnavailable, "service initializing")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TrackResponse is the response for interaction tracking.
type TrackResponse struct {
	ID      string `json:"id"`
	Tracked bool   `json:"tracked"`
}

// handleTrackInteraction records a single interaction.
func (s *Service) handleTrackInteraction(w http.ResponseWriter, r *http.Request) {
	var interaction models.Interaction
	if err := json.NewDecoder(r.Body).Decode(&interaction); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.getEngine().TrackInteraction(r.Context(), interaction); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.recordUsage(&s.usageStats.InteractionsTracked)

	writeJSON(w, TrackResponse{ID: interaction.ID, Tracked: true})
}

// handleGetAnalysis returns the behavior analysis for a user.
func (s *Service) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userID")
		return
	}

	analysis, err := s.getEngine().AnalyzeUser(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Analysis failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.recordUsage(&s.usageStats.AnalysesServed)

	writeJSON(w, analysis)
}

// handleGetRecommendations returns recommendations for a user.
func (s *Service) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userID")
		return
	}

	recs, err := s.getEngine().GetRecommendations(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Recommendation generation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.recordUsage(&s.usageStats.RecommendationsServed)

	writeJSON(w, map[string]interface{}{
		"userId":          userID,
		"recommendations": recs,
	})
}

// DecisionRequest is the request body for decision making.
type DecisionRequest struct {
	Context models.DecisionContext `json:"context"`
	Options []string               `json:"options"`
}

// handleMakeDecision runs the decision engine over the given options.
func (s *Service) handleMakeDecision(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.getEngine().MakeDecision(r.Context(), req.Context, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, decision.ErrNoOptions):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, decision.ErrNotInitialized):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			log.Error().Err(err).Str("userId", req.Context.UserID).Msg("Decision failed")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.recordUsage(&s.usageStats.DecisionsMade)

	writeJSON(w, result)
}

// LearnRequest is the request body for outcome learning.
type LearnRequest struct {
	Interaction models.Interaction `json:"interaction"`
	Outcome     string             `json:"outcome"`
}

// handleLearn feeds a decision outcome back into the learning store.
func (s *Service) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req LearnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Outcome == "" {
		writeError(w, http.StatusBadRequest, "missing outcome")
		return
	}

	if err := s.getEngine().Learn(r.Context(), req.Interaction, req.Outcome); err != nil {
		if errors.Is(err, decision.ErrNotInitialized) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.recordUsage(&s.usageStats.LearningEvents)

	writeJSON(w, map[string]bool{"learned": true})
}

// handleStatus returns the engine status with performance figures.
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.getEngine().Status())
}

// StatsResponse aggregates service-level statistics.
type StatsResponse struct {
	Version       string     `json:"version"`
	UptimeSeconds float64    `json:"uptimeSeconds"`
	Users         int        `json:"users"`
	Interactions  int        `json:"interactions"`
	Decisions     int        `json:"decisions"`
	LearnedKeys   int        `json:"learnedKeys"`
	Usage         UsageStats `json:"usage"`
}

// handleStats returns service statistics.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	eng := s.getEngine()
	store := eng.Interactions()

	total := 0
	users := store.Users()
	for _, userID := range users {
		total += store.Len(userID)
	}

	writeJSON(w, StatsResponse{
		Version:       s.version,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Users:         len(users),
		Interactions:  total,
		Decisions:     eng.Decisions().History().Len(),
		LearnedKeys:   eng.Decisions().Learning().Size(),
		Usage:         s.GetUsageStats(),
	})
}
