package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/app"
	"github.com/Freeeeeet/reception_core/internal/calendar"
	"github.com/Freeeeeet/reception_core/internal/config"
	"github.com/Freeeeeet/reception_core/internal/dialog"
	"github.com/Freeeeeet/reception_core/internal/events"
	"github.com/Freeeeeet/reception_core/internal/metrics"
	"github.com/Freeeeeet/reception_core/internal/repository"
	"github.com/Freeeeeet/reception_core/internal/service"
	"github.com/Freeeeeet/reception_core/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Репозитории
	businesses := repository.NewBusinessRepository(pool)
	services := repository.NewServiceRepository(pool)
	staff := repository.NewStaffRepository(pool)
	hours := repository.NewHoursRepository(pool)
	appts := repository.NewAppointmentRepository(pool)
	drafts := repository.NewDraftRepository(pool)
	states := repository.NewStateRepository(pool)

	// Сервисы
	availability := service.NewAvailabilityService(pool, hours, appts, logger)
	staffResolver := service.NewStaffService(staff, logger)
	booking := service.NewBookingService(pool, drafts, appts, availability, logger)

	// Опциональные зависимости: каждая выключается отсутствием конфига
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, session locking degraded", zap.Error(err))
		}
	}
	lock := session.NewTurnLock(rdb, 15*time.Second, logger)

	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		}
		defer writer.Close()
		publisher = events.NewPublisher(writer, logger)
	}

	var syncer calendar.Syncer
	if cfg.GoogleCredentialsFile != "" {
		gs, err := calendar.NewGoogleSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GoogleCalendarID, logger)
		if err != nil {
			logger.Warn("Google Calendar unavailable, mirroring disabled", zap.Error(err))
		} else {
			syncer = gs
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	orchestrator := dialog.NewOrchestrator(dialog.Deps{
		States:        states,
		Businesses:    businesses,
		Services:      services,
		Staff:         staff,
		Availability:  availability,
		StaffResolver: staffResolver,
		Booking:       booking,
		Calendar:      syncer,
		Events:        publisher,
		Metrics:       m,
		Logger:        logger,
	})

	janitor := app.NewJanitor(drafts, states, logger)
	janitor.Start(ctx)
	defer janitor.Stop()

	server := app.NewServer(cfg.HTTPAddr, orchestrator, lock, pool, registry, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Reception core stopped")
}
