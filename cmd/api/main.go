package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-crm/internal/audit"
	"sales-crm/internal/auth"
	"sales-crm/internal/calls"
	"sales-crm/internal/config"
	"sales-crm/internal/contacts"
	"sales-crm/internal/dialpolicy"
	"sales-crm/internal/dnc"
	"sales-crm/internal/httpapi"
	"sales-crm/internal/messaging"
	"sales-crm/internal/recordings"
	"sales-crm/internal/reminders"
	"sales-crm/internal/reporting"
	"sales-crm/internal/telephony"
	"sales-crm/internal/templates"
	"sales-crm/internal/voice"
	"sales-crm/pkg/logger"
	"sales-crm/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Storage
	contactRepo := contacts.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	dncStore := dnc.NewRedisStore(rdb)
	reminderStore := reminders.NewRedisStore(rdb)
	templateRepo := templates.NewPostgresRepo(db)
	messageRepo := messaging.NewMemoryRepo()
	recordingRepo := recordings.NewPostgresRepo(db)
	auditRepo := audit.NewPostgresRepo(db)

	// Services
	contactSvc := contacts.NewService(contactRepo)
	callSvc := calls.NewService(callRepo, contactSvc, log)
	dncSvc := dnc.NewService(dncStore)
	reminderSvc := reminders.NewService(reminderStore, log)
	templateSvc := templates.NewService(templateRepo)
	auditSvc := audit.NewService(auditRepo)
	recordingSvc := recordings.NewService(recordingRepo, callRepo, log)
	reportingSvc := reporting.NewService(&reporting.SourceRepo{
		Calls:     callRepo,
		Messages:  messageRepo,
		Reminders: reminderStore,
	})

	senders := map[messaging.Channel]messaging.Sender{}
	if cfg.Twilio.Configured() {
		senders[messaging.ChannelSMS] = messaging.NewTwilioSMSSender(cfg.Twilio, "")
	}
	messagingSvc := messaging.NewService(messageRepo, senders, messaging.NewDrafter(cfg.AI), log)

	// Voice session: one registered device per process, supervised across
	// token refreshes and fatal device errors.
	voiceMgr := voice.NewManager(log)
	voiceMgr.SetCallLogger(calls.NewLogger(callSvc, cfg.Agent.WorkspaceID, cfg.Agent.UserID))

	hub := telephony.NewHub()
	statusCallback := ""
	if cfg.App.PublicURL != "" {
		statusCallback = cfg.App.PublicURL + "/webhooks/twilio/status"
	}
	deviceFactory := telephony.NewDeviceFactory(telephony.Options{
		Config:            cfg.Twilio,
		StatusCallbackURL: statusCallback,
		Log:               log,
	}, hub)
	tokens := telephony.NewAccessTokenProvider(cfg.Twilio)

	supervisor := voice.NewSupervisor(log, voiceMgr, tokens, deviceFactory, cfg.Agent.UserID)
	supervisor.Start(rootCtx)

	// Due reminders surface in the process log; the API exposes the same
	// list for the UI to poll.
	poller := reminders.NewPoller(reminderSvc, func(ctx context.Context, r reminders.Reminder) {
		log.Info("reminder due",
			"reminder_id", r.ID,
			"workspace_id", r.WorkspaceID,
			"user_id", r.UserID,
			"note", r.Note,
		)
	}, 30*time.Second)
	go poller.Run(rootCtx)

	api := httpapi.Handlers{
		Auth:       authManager,
		Contacts:   contactSvc,
		Calls:      callSvc,
		DNC:        dncSvc,
		Reminders:  reminderSvc,
		Templates:  templateSvc,
		Messaging:  messagingSvc,
		Recordings: recordingSvc,
		Reporting:  reportingSvc,
		Audit:      auditSvc,
	}
	voiceAPI := voice.Handlers{
		Manager: voiceMgr,
		Tokens:  tokens,
		Policy:  dialpolicy.NewEngine(dncSvc),
		Audit:   auditSvc,
	}
	webhooks := &telephony.WebhookHandlers{
		Cfg:        cfg.Twilio,
		Hub:        hub,
		Recordings: recordingSink{svc: recordingSvc},
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		auth:     authManager,
		db:       db,
		api:      api,
		voice:    voiceAPI,
		webhooks: webhooks,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// recordingSink bridges provider recording callbacks into recording storage
// without telephony importing the recordings package.
type recordingSink struct {
	svc *recordings.Service
}

func (s recordingSink) AttachRecording(ctx context.Context, ev telephony.RecordingEvent) error {
	_, err := s.svc.Attach(ctx, ev.CallSID, ev.RecordingURL, ev.Duration)
	return err
}
