package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"mediminds/internal/docstore"
	"mediminds/internal/middleware"
	"mediminds/internal/reminders"
	"mediminds/internal/services"
	"mediminds/internal/session"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound), errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reminders.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, status, map[string]string{"error": "Internal server error", "details": err.Error()})
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", services.ErrValidation, err)
	}
	return nil
}

// caregiverSession resolves the caller's session; on failure the response is written.
func (s *Server) caregiverSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	caregiver, ok := middleware.CaregiverFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return nil, false
	}
	sess, err := s.deps.Manager.Get(r.Context(), caregiver)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}
