package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/live-classroom/internal/config"
	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/handler"
	"github.com/iliyamo/live-classroom/internal/queue"
	"github.com/iliyamo/live-classroom/internal/repository"
	"github.com/iliyamo/live-classroom/internal/router"
	"github.com/iliyamo/live-classroom/internal/rtc"
	"github.com/iliyamo/live-classroom/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		logger.Error("database open failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), logger)
	if rdb != nil {
		defer rdb.Close()
	}

	sessionRepo := repository.NewSessionRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	attendanceRepo := repository.NewAttendanceRepo(db)
	moderationRepo := repository.NewModerationRepo(db)
	orgRepo := repository.NewOrgRepo(db)
	roleStore := repository.NewCachedRoleStore(orgRepo, rdb, "roles", cfg.RoleCacheTTL)

	var pub service.EventPublisher = service.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub = queue.NewPublisher(cfg.AMQPURL, logger)
	}

	builder, err := rtc.New(rtc.Credentials{
		Provider:         cfg.RTC.Provider,
		AgoraAppID:       cfg.RTC.AgoraAppID,
		AgoraAppCert:     cfg.RTC.AgoraAppCert,
		LiveKitAPIKey:    cfg.RTC.LiveKitAPIKey,
		LiveKitAPISecret: cfg.RTC.LiveKitAPISecret,
	})
	if err != nil {
		logger.Warn("realtime transport not configured", "provider", cfg.RTC.Provider, "err", err, "allow_dummy", cfg.Tokens.AllowDummy)
	}

	sessions := service.NewSessionService(sessionRepo, service.SessionConfig{
		DefaultCapacity:    cfg.DefaultCapacity,
		DefaultDurationMin: cfg.DefaultDurationMin,
	})
	admission := service.NewAdmissionService(db, sessionRepo, reservationRepo, attendanceRepo, pub,
		service.AdmissionConfig{Grace: cfg.SeatGrace, HoldTTL: cfg.HoldTTL}, logger)
	attendance := service.NewAttendanceService(db, sessionRepo, attendanceRepo, pub, nil, logger)
	moderation := service.NewModerationService(db, sessionRepo, reservationRepo, attendanceRepo, moderationRepo, pub,
		service.ModerationConfig{UnlockCapacity: cfg.UnlockCapacity}, logger)
	issuer := service.NewTokenIssuer(builder, service.TokenConfig{
		DefaultTTL: cfg.Tokens.DefaultTTL,
		MinTTL:     cfg.Tokens.MinTTL,
		MaxTTL:     cfg.Tokens.MaxTTL,
		AllowDummy: cfg.Tokens.AllowDummy,
	}, logger)

	go service.NewSweeper(db, reservationRepo, cfg.SweepInterval, nil, logger).Run(ctx)

	if cfg.AMQPURL != "" {
		sink := queue.NewAttendanceLog(cfg.AttendanceDir)
		go func() {
			if err := queue.StartAttendanceConsumer(ctx, cfg.AMQPURL, sink, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("attendance consumer stopped", "err", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	h := router.Handlers{
		Health:     handler.NewHealthHandler(db),
		Sessions:   handler.NewSessionHandler(sessions, logger),
		Admission:  handler.NewAdmissionHandler(sessions, admission, logger),
		Tokens:     handler.NewTokenHandler(sessions, issuer, logger),
		Attendance: handler.NewAttendanceHandler(sessions, attendance, logger),
		Moderation: handler.NewModerationHandler(sessions, moderation, logger),
	}
	opts := router.Options{
		JWTSecret:      cfg.JWTSecret,
		Guard:          service.NewTenancyGuard(orgRepo),
		Resolver:       service.NewRoleResolver(roleStore, logger),
		Redis:          rdb,
		MetricsEnabled: cfg.MetricsEnabled,
		Logger:         logger,
	}
	router.RegisterRoutes(e, h, opts)
	router.RegisterV1(e, h, opts)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}

func openDB(cfg config.Config) (*database.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return database.OpenSQLite(cfg.SQLiteDSN)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
