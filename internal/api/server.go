// Package api is the HTTP surface: the prescription parsing proxy, the
// caregiver JSON API and the live reminder feed.
package api

import (
	"context"
	"net/http"
	"time"

	"mediminds/internal/database"
	"mediminds/internal/gemini"
	"mediminds/internal/middleware"
	"mediminds/internal/session"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HistoryReader is the reminder audit log.
type HistoryReader interface {
	ReminderHistory(ctx context.Context, userID, elderID string, limit int) ([]database.ReminderEvent, error)
}

// LiveFeed serves the WebSocket reminder feed.
type LiveFeed interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
	Total() int
}

// Deps are the collaborators of the HTTP layer. History and Feed are optional.
type Deps struct {
	Manager        *session.Manager
	Parser         gemini.Parser
	History        HistoryReader
	Feed           LiveFeed
	Auth           *middleware.Authenticator
	MaxUploadBytes int64
	// Checks are pinged by /api/health; any failure reports unhealthy.
	Checks map[string]func(ctx context.Context) error
	// Info is merged into the /api/stats body.
	Info   func() map[string]interface{}
	Logger *zap.Logger
}

type Server struct {
	deps      Deps
	logger    *zap.Logger
	startTime time.Time
}

func NewServer(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Server{
		deps:      deps,
		logger:    deps.Logger,
		startTime: time.Now(),
	}
}

// Router builds the full handler tree, wrapped in CORS and request logging.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	api.HandleFunc("/parse-prescription-text", s.parseTextHandler).Methods(http.MethodPost)
	api.HandleFunc("/parse-prescription-image", s.parseImageHandler).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.deps.Auth.Middleware)

	authed.HandleFunc("/elders", s.listElders).Methods(http.MethodGet)
	authed.HandleFunc("/elders", s.addElder).Methods(http.MethodPost)
	authed.HandleFunc("/elders/{id}", s.deleteElder).Methods(http.MethodDelete)

	authed.HandleFunc("/elders/{id}/medicines", s.listMedicines).Methods(http.MethodGet)
	authed.HandleFunc("/elders/{id}/medicines", s.addMedicine).Methods(http.MethodPost)
	authed.HandleFunc("/elders/{id}/medicines/import", s.importPrescription).Methods(http.MethodPost)
	authed.HandleFunc("/medicines/{id}", s.updateMedicine).Methods(http.MethodPut)
	authed.HandleFunc("/medicines/{id}", s.deleteMedicine).Methods(http.MethodDelete)

	authed.HandleFunc("/elders/{id}/vitals", s.listVitals).Methods(http.MethodGet)
	authed.HandleFunc("/elders/{id}/vitals", s.addVital).Methods(http.MethodPost)
	authed.HandleFunc("/vitals/{id}", s.deleteVital).Methods(http.MethodDelete)

	authed.HandleFunc("/elders/{id}/prescriptions", s.listPrescriptions).Methods(http.MethodGet)
	authed.HandleFunc("/elders/{id}/prescriptions", s.addPrescription).Methods(http.MethodPost)
	authed.HandleFunc("/elders/{id}/care-plan", s.listCarePlan).Methods(http.MethodGet)
	authed.HandleFunc("/elders/{id}/care-plan", s.addCarePlanEvent).Methods(http.MethodPost)
	authed.HandleFunc("/elders/{id}/appointments", s.listAppointments).Methods(http.MethodGet)
	authed.HandleFunc("/elders/{id}/summary", s.summary).Methods(http.MethodGet)
	authed.HandleFunc("/elders/{id}/assistant", s.askAssistant).Methods(http.MethodPost)

	authed.HandleFunc("/elders/{id}/reminders", s.listElderReminders).Methods(http.MethodGet)
	authed.HandleFunc("/elders/{id}/reminder-history", s.reminderHistory).Methods(http.MethodGet)
	authed.HandleFunc("/reminders/today", s.todaysReminders).Methods(http.MethodGet)
	authed.HandleFunc("/reminders/{id}/status", s.updateReminderStatus).Methods(http.MethodPost)
	authed.HandleFunc("/reminders/{id}/snooze", s.snoozeReminder).Methods(http.MethodPost)

	if s.deps.Feed != nil {
		router.Handle("/ws", s.deps.Auth.Middleware(http.HandlerFunc(s.liveFeed))).Methods(http.MethodGet)
	}

	return middleware.RequestLogger(s.logger)(middleware.CORS(router))
}

func (s *Server) liveFeed(w http.ResponseWriter, r *http.Request) {
	caregiver, _ := middleware.CaregiverFrom(r.Context())
	s.deps.Feed.Serve(w, r, caregiver.UserID)
}
