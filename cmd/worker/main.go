// Package main - точка входа для фоновых процессов (Worker) Cohort Engine.
//
// Worker отвечает за периодические задачи:
// - Пересчёт и кеширование снимков статистики сообщества
// - Переключение advisory-флагов released у записей релизов
// - Обработка доменных событий (счётчик учеников, письма-подтверждения)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cohort-hub/cohort-engine/config"
	"github.com/cohort-hub/cohort-engine/internal/application/eventhandler"
	"github.com/cohort-hub/cohort-engine/internal/application/query"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
	"github.com/cohort-hub/cohort-engine/internal/infrastructure/external/mailer"
	"github.com/cohort-hub/cohort-engine/internal/infrastructure/messaging"
	"github.com/cohort-hub/cohort-engine/internal/infrastructure/persistence/postgres"
	"github.com/cohort-hub/cohort-engine/internal/infrastructure/persistence/redis"
	"github.com/cohort-hub/cohort-engine/internal/infrastructure/scheduler"
	"github.com/cohort-hub/cohort-engine/internal/infrastructure/scheduler/jobs"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env опционален: в проде переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Cohort Engine Worker",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache     *redis.Cache
		presence       *redis.PresenceTracker
		dashboardCache *redis.DashboardCache
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisCache.Close()

		presence = redis.NewPresenceTracker(redisCache)
		dashboardCache = redis.NewDashboardCache(redisCache)
		log.Info("Redis connection established")
	} else {
		log.Warn("Redis disabled: presence and dashboard snapshots unavailable")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	cohortRepo := postgres.NewCohortRepository(dbConn)
	if !cfg.Features.IsEnabled(config.FeatureCouponsLockedRedeem, nil) {
		log.Warn("row-locked coupon redemption disabled by feature flag")
		cohortRepo.SetLockedRedeem(false)
	}
	releaseRepo := postgres.NewReleaseRepository(dbConn)
	lessonRepo := postgres.NewLessonRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)
	questionRepo := postgres.NewQuestionRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	var eventBus messaging.EventBus
	if redisCache != nil {
		eventBus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewCacheRedisClient(redisCache),
			LocalBusConfig: busConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
	} else {
		eventBus = messaging.NewInMemoryEventBus(busConfig)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ВНЕШНИЕ КЛИЕНТЫ И ОБРАБОТЧИКИ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	var enrollmentMailer eventhandler.Mailer
	if !cfg.Features.IsEnabled(config.FeatureNotifyEnrollmentEmail, nil) {
		log.Warn("enrollment emails disabled by feature flag")
	} else if !cfg.Mailer.Disabled && cfg.Mailer.APIKey != "" {
		enrollmentMailer = mailer.NewSendGridMailer(mailer.Config{
			APIKey:      cfg.Mailer.APIKey,
			FromName:    cfg.Mailer.FromName,
			FromAddress: cfg.Mailer.FromAddress,
			Logger:      log,
		})
	} else {
		log.Warn("mailer disabled: enrollment confirmations will not be sent")
	}

	onEnrollment := eventhandler.NewOnEnrollmentCreatedHandler(cohortRepo, enrollmentMailer, log)
	if err := eventBus.SubscribeHandler(onEnrollment); err != nil {
		return fmt.Errorf("failed to subscribe enrollment handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. SCHEDULER И ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	if cfg.Scheduler.Enabled {
		if dashboardCache != nil && cfg.Features.IsEnabled(config.FeatureDashboardLiveStats, nil) {
			statsHandler := query.NewGetCommunityStatsHandler(
				presence,
				questionRepo,
				progressRepo,
				enrollmentRepo,
				lessonRepo,
				cohortRepo,
				shared.SystemClock{},
				cfg.App.Location,
				nil,
			)

			refreshJob := jobs.NewRefreshDashboardJob(statsHandler, dashboardCache, log)
			refreshJob.SetCohorts(splitList(os.Getenv("DASHBOARD_COHORT_IDS")))
			// Джиттер разводит воркеры, чтобы они не пересчитывали снимок
			// одновременно.
			refreshSchedule := scheduler.NewJitteredIntervalSchedule(
				cfg.Scheduler.DashboardRefreshInterval,
				cfg.Scheduler.DashboardRefreshInterval/10,
			)
			if err := sched.Register(refreshJob, refreshSchedule); err != nil {
				return fmt.Errorf("failed to register dashboard job: %w", err)
			}
		}

		if cfg.Features.IsEnabled(config.FeatureReleaseAdvisorySweep, nil) {
			sweepJob := jobs.NewSweepReleaseFlagsJob(releaseRepo, shared.SystemClock{}, log)
			sweepSchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.ReleaseSweepCron)
			if err != nil {
				return fmt.Errorf("invalid release sweep cron: %w", err)
			}
			if err := sched.Register(sweepJob, sweepSchedule); err != nil {
				return fmt.Errorf("failed to register sweep job: %w", err)
			}
		} else {
			log.Warn("release flag sweep disabled by feature flag")
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	} else {
		log.Warn("scheduler disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Cohort Engine Worker is running",
		"timezone", cfg.App.Timezone,
		"jobs", len(sched.ListJobs()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	if cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// splitList разбирает список идентификаторов через запятую.
func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
