package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/domain"
	"github.com/user/ferry-watch/internal/storage"
)

type checkResponse struct {
	Outcome string `json:"outcome"`
	*domain.CheckResult
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.busy.TryLock() {
		s.respondWithError(w, http.StatusConflict, "a check is already running")
		return
	}
	defer s.busy.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.checkTimeout)
	defer cancel()

	result, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("check request failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "check failed")
		return
	}
	s.respondWithJSON(w, http.StatusOK, checkResponse{Outcome: result.Outcome(), CheckResult: result})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"status": "healthy"}
	for name, err := range storage.PingAll(ctx, s.recorders) {
		if err != nil {
			healthStatus[name] = "unhealthy"
			healthStatus["status"] = "degraded"
			s.logger.Error("health check failed", zap.String("sink", name), zap.Error(err))
			continue
		}
		healthStatus[name] = "healthy"
	}

	if healthStatus["status"] != "healthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		code, response = http.StatusInternalServerError, []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
