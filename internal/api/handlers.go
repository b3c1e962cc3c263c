package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/export"
)

const defaultSessionID = "default"

// sessionID resolves the caller's session from the X-Session-ID
// header, falling back to a shared default session.
func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	if id := r.URL.Query().Get("session"); id != "" {
		return id
	}
	return defaultSessionID
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	// Absent headless_mode means headless; decoding over the preset
	// keeps an explicit false from the caller.
	cfg := domain.JobConfig{Headless: true}
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(cfg.Categories) == 0 || len(cfg.Locations) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "Categories and locations cannot be empty")
		return
	}

	id := sessionID(r)
	if err := s.sessions.StartJob(id, cfg); err != nil {
		switch {
		case errors.Is(err, domain.ErrJobAlreadyActive):
			s.respondWithError(w, http.StatusConflict, "Your session is already scraping. Please wait.")
		case errors.Is(err, domain.ErrConcurrencyLimitExceeded):
			s.respondWithError(w, http.StatusTooManyRequests, err.Error())
		default:
			s.logger.Error("failed to start job", zap.String("session", id), zap.Error(err))
			s.respondWithError(w, http.StatusInternalServerError, "Could not start job")
		}
		return
	}

	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "success", "message": "Started"})
}

func (s *Server) handleStopJob(w http.ResponseWriter, r *http.Request) {
	s.sessions.Cancel(sessionID(r))
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Stopping"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.sessions.Status(sessionID(r)))
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	records := s.sessions.Results(sessionID(r))
	if records == nil {
		records = []domain.BusinessRecord{}
	}
	s.respondWithJSON(w, http.StatusOK, records)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	records := s.sessions.Results(sessionID(r))
	if len(records) == 0 {
		s.respondWithError(w, http.StatusNotFound, "No data")
		return
	}

	filename := fmt.Sprintf("scraped_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	if err := export.WriteCSV(w, records); err != nil {
		s.logger.Error("csv export failed", zap.Error(err))
	}
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"server": "healthy"}
	healthy := true

	if s.pgStore != nil {
		if err := s.pgStore.Ping(ctx); err != nil {
			healthStatus["postgres"] = "unhealthy"
			healthy = false
			s.logger.Error("health check failed for postgres", zap.Error(err))
		} else {
			healthStatus["postgres"] = "healthy"
		}
	}
	if s.redisStore != nil {
		if err := s.redisStore.Ping(ctx); err != nil {
			healthStatus["redis"] = "unhealthy"
			healthy = false
			s.logger.Error("health check failed for redis", zap.Error(err))
		} else {
			healthStatus["redis"] = "healthy"
		}
	}

	if !healthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
