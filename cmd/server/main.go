package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mirae-imaging/backoffice/internal/auth"
	"github.com/mirae-imaging/backoffice/internal/board"
	"github.com/mirae-imaging/backoffice/internal/config"
	"github.com/mirae-imaging/backoffice/internal/console"
	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/messenger"
	"github.com/mirae-imaging/backoffice/internal/notify"
	"github.com/mirae-imaging/backoffice/internal/relay"
	"github.com/mirae-imaging/backoffice/internal/reservation"
	"github.com/mirae-imaging/backoffice/internal/storage/pg"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

func main() {
	config.LoadConfig()

	log := logger.New(logger.FromConfig(config.AppConfig.LogLevel, config.AppConfig.LogFormat))

	log.Info("starting back-office server",
		slog.String("instance_id", logger.GetInstanceID()),
		slog.String("gin_mode", config.AppConfig.GinMode))
	gin.SetMode(config.AppConfig.GinMode)

	// Initialize database.
	db, err := pg.InitDatabase(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// Relay transport: NATS when configured, otherwise the shared Postgres
	// buffer carries everything alone.
	var bus relay.Bus
	if config.AppConfig.NatsURL != "" {
		natsConn, err := nats.Connect(config.AppConfig.NatsURL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			log.Warn("failed to connect to nats, relying on fallback buffer only",
				slog.String("error", err.Error()))
		} else {
			defer natsConn.Close()
			bus = relay.NewNATSBus(natsConn, log)
		}
	}

	buffer := relay.NewPGBuffer(db.DB, config.AppConfig.DatabaseURL, config.AppConfig.RelayBufferCap, log)

	transport := relay.NewTransport(bus, buffer, log, relay.Options{
		FreshnessWindow: config.AppConfig.RelayFreshnessWindow,
		PollInterval:    config.AppConfig.RelayPollInterval,
		CleanupDelay:    config.AppConfig.RelayCleanupDelay,
	})
	defer transport.Close()
	relay.RegisterMetrics()

	// Instance-local notification inbox.
	store, err := notify.OpenStore(config.AppConfig.InboxPath, config.AppConfig.InboxCap, log)
	if err != nil {
		log.Error("failed to open notification inbox", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	// Console hub doubles as the desktop notifier.
	hub := console.NewHub(log)

	notifier := notify.NewNotifier(store, transport, hub, log)
	if err := notifier.Start(); err != nil {
		log.Error("failed to start notifier", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer notifier.Stop()

	// Patient/staff messaging.
	var emailSender messenger.EmailSender
	if config.AppConfig.EmailProviderURL != "" {
		emailSender = messenger.NewHTTPEmailClient(
			config.AppConfig.EmailProviderURL,
			config.AppConfig.EmailAPIKey,
			config.AppConfig.EmailFrom)
	}
	var smsSender messenger.SMSSender
	if config.AppConfig.SMSProviderURL != "" {
		smsSender = messenger.NewHTTPSMSClient(
			config.AppConfig.SMSProviderURL,
			config.AppConfig.SMSAPIKey,
			config.AppConfig.SMSSender)
	}
	dispatcher := messenger.NewDispatcher(emailSender, smsSender, messenger.Options{
		ClinicName:  config.AppConfig.ClinicName,
		ClinicPhone: config.AppConfig.ClinicPhone,
		StaffEmails: config.AppConfig.AdminEmails,
		WorkerPool:  config.AppConfig.MessengerWorkerPoolSize,
		BufferSize:  config.AppConfig.MessengerBufferSize,
		SendTimeout: time.Duration(config.AppConfig.MessengerTimeoutSeconds) * time.Second,
	}, log)
	defer dispatcher.Shutdown()

	// Initialize services.
	authService := auth.NewService(
		auth.NewPGAccountStorage(db.DB),
		auth.NewTokenIssuer(config.AppConfig.JWTSecret, time.Duration(config.AppConfig.TokenTTLHours)*time.Hour),
		config.AppConfig.AdminEmails,
		log)
	reservationService := reservation.NewService(reservation.NewPGStorage(db.DB), notifier, dispatcher, log)
	boardService := board.NewService(board.NewPGStorage(db.DB), log)

	// Initialize handlers.
	authMiddleware := auth.NewMiddleware(authService)
	authHandler := auth.NewHandler(authService, log)
	reservationHandler := reservation.NewHandler(reservationService, log)
	boardHandler := board.NewHandler(boardService, log)
	consoleHandler := console.NewHandler(hub, store, originChecker(config.AppConfig.CORSAllowedOrigins), log)

	// Periodic prune keeps the shared relay buffer free of expired entries
	// even when no broadcast has run lately.
	janitor := cron.New()
	if _, err := janitor.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := transport.PruneExpired(ctx); err != nil {
			log.Warn("relay buffer prune failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		log.Error("failed to schedule relay janitor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	janitor.Start()
	defer janitor.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(config.AppConfig.CORSAllowedOrigins))
	router.Use(requestIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "instance_id": logger.GetInstanceID()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		// Public routes.
		api.POST("/reservations", reservationHandler.Create)
		api.GET("/board", boardHandler.ListPublic)
		api.GET("/board/:id", boardHandler.Get)
		api.POST("/auth/signin", authHandler.SignIn)

		// Admin routes.
		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth())
		{
			admin.GET("/me", authHandler.Me)

			admin.GET("/reservations", reservationHandler.List)
			admin.PATCH("/reservations/:id/status", reservationHandler.UpdateStatus)
			admin.GET("/reservations/patient", reservationHandler.ListByPatient)
			admin.GET("/patients", reservationHandler.Patients)

			admin.GET("/board", boardHandler.ListAll)
			admin.POST("/board", boardHandler.Create)
			admin.PATCH("/board/:id", boardHandler.Update)
			admin.DELETE("/board/:id", boardHandler.Delete)

			admin.GET("/console/ws", consoleHandler.Connect)
			admin.GET("/notifications", consoleHandler.ListNotifications)
			admin.POST("/notifications/read-all", consoleHandler.MarkAllRead)
			admin.POST("/notifications/:id/read", consoleHandler.MarkRead)
			admin.DELETE("/notifications", consoleHandler.ClearAll)
			admin.DELETE("/notifications/:id", consoleHandler.Dismiss)
		}
	}

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", slog.String("port", config.AppConfig.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(config.AppConfig.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
}

// corsMiddleware allows the public site and the admin console origins.
func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		} else if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags every request with an ID for log correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// originChecker builds the WebSocket upgrade origin check from the CORS
// allow-list.
func originChecker(allowedOrigins string) func(r *http.Request) bool {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		} else if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
