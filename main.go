package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediminds/internal/api"
	"mediminds/internal/cache"
	"mediminds/internal/config"
	"mediminds/internal/database"
	"mediminds/internal/docstore"
	"mediminds/internal/email"
	"mediminds/internal/gemini"
	"mediminds/internal/logger"
	"mediminds/internal/middleware"
	"mediminds/internal/push"
	"mediminds/internal/scheduler"
	"mediminds/internal/services"
	"mediminds/internal/session"
	"mediminds/internal/signaling"
	"mediminds/internal/sms"
	"mediminds/internal/workers"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "mediminds")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("starting MediMinds backend", zap.String("environment", cfg.Environment))

	app, err := push.NewApp(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID)
	if err != nil {
		lg.Warn("Firebase unavailable, using in-memory store", zap.Error(err))
	}

	checks := map[string]func(context.Context) error{}

	// Document store
	var store docstore.Store
	if app != nil {
		fs, err := app.Firestore(ctx)
		if err != nil {
			lg.Fatal("failed to open Firestore", zap.Error(err))
		}
		defer fs.Close()
		store = docstore.NewFirestoreStore(fs)
		lg.Info("Firestore initialized")
	} else {
		store = docstore.NewMemoryStore()
	}

	authenticator := middleware.NewAuthenticator(authVerifier(ctx, app, cfg, lg), cfg.AuthDisabled, lg)

	// Reminder audit log
	var (
		history  api.HistoryReader
		recorder session.Recorder
		restorer session.Restorer
	)
	if cfg.DatabaseURL != "" {
		db, err := database.NewDB(cfg.DatabaseURL)
		if err != nil {
			lg.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			lg.Fatal("failed to create reminder schema", zap.Error(err))
		}
		history, recorder, restorer = db, db, db
		checks["database"] = db.Ping
		lg.Info("reminder audit log enabled")
	}

	// Prescription parsing
	var parser gemini.Parser = gemini.NewClient(gemini.OptionsFromConfig(cfg), lg)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			lg.Warn("Redis unavailable, prescription cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			parser = cache.NewPrescriptionCache(parser, rdb, cfg.ParseCacheTTL, lg)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			lg.Info("prescription cache enabled", zap.Duration("ttl", cfg.ParseCacheTTL))
		}
	}
	if cfg.GeminiAPIKey == "" {
		lg.Warn("GEMINI_API_KEY is not set; prescription parsing will fail")
	}

	loc, err := cfg.Location()
	if err != nil {
		lg.Fatal("invalid timezone", zap.Error(err))
	}

	hub := signaling.NewHub(lg)
	manager := session.NewManager(session.Services{
		Elders:        services.NewElderService(store),
		Medicines:     services.NewMedicineService(store),
		Vitals:        services.NewVitalService(store),
		Prescriptions: services.NewPrescriptionService(store),
		CarePlan:      services.NewCarePlanService(store),
		Appointments:  services.NewAppointmentService(store),
	}, session.Options{
		Location:  loc,
		Snooze:    cfg.SnoozeDuration,
		Recorder:  recorder,
		Restorer:  restorer,
		Publisher: hub,
	}, lg)

	// Notification channels
	schedOpts := scheduler.Options{
		Interval:          cfg.SchedulerInterval,
		MissedGracePeriod: cfg.MissedGracePeriod,
	}
	if app != nil {
		msg, err := app.Messaging(ctx)
		if err != nil {
			lg.Warn("FCM unavailable, voice reminders disabled", zap.Error(err))
		} else {
			schedOpts.Push = push.NewFirebaseService(msg, lg)
		}
	}
	if cfg.SMSEnabled() {
		schedOpts.SMS = sms.NewTwilioClient(cfg.TwilioBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, lg)
	}
	if cfg.EmailEnabled() {
		mailer, err := email.NewEmailService(cfg, lg)
		if err != nil {
			lg.Warn("email alerts disabled", zap.Error(err))
		} else {
			schedOpts.Mailer = mailer
		}
	}

	sch := scheduler.NewScheduler(manager, schedOpts, lg)
	go sch.Start(ctx)
	defer sch.Stop()

	wm := workers.NewWorkerManager(lg)
	if cfg.EnableDayRollover {
		wm.RegisterWorker(workers.NewDayRolloverWorker(manager, time.Minute, lg))
	}
	wm.Start()
	defer wm.Stop()

	server := api.NewServer(api.Deps{
		Manager:        manager,
		Parser:         parser,
		History:        history,
		Feed:           hub,
		Auth:           authenticator,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Checks:         checks,
		Info: func() map[string]interface{} {
			return map[string]interface{}{
				"firebase_ok": app != nil,
				"sms_enabled": schedOpts.SMS != nil,
				"email_ok":    schedOpts.Mailer != nil,
				"workers":     wm.GetStats(),
			}
		},
		Logger: lg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("server ready", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}

// authVerifier returns nil when tokens cannot be verified; the authenticator
// then rejects every caregiver request unless auth is disabled.
func authVerifier(ctx context.Context, app *firebase.App, cfg *config.Config, lg *zap.Logger) middleware.TokenVerifier {
	if cfg.AuthDisabled {
		lg.Warn("AUTH_DISABLED is set; caregivers are identified by the X-User-ID header")
		return nil
	}
	if app == nil {
		return nil
	}
	client, err := app.Auth(ctx)
	if err != nil {
		lg.Error("Firebase Auth unavailable", zap.Error(err))
		return nil
	}
	return client
}
