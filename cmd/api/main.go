package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go-recruitment-scheduler/config"
	_ "go-recruitment-scheduler/docs" // Important for Swagger
	v1 "go-recruitment-scheduler/internal/delivery/http/v1"
	"go-recruitment-scheduler/internal/domain"
	"go-recruitment-scheduler/internal/repository/memory"
	"go-recruitment-scheduler/internal/repository/postgres"
	"go-recruitment-scheduler/internal/scheduler"
	"go-recruitment-scheduler/internal/usecase"
	"go-recruitment-scheduler/pkg/audit"
	"go-recruitment-scheduler/pkg/database"
	"go-recruitment-scheduler/pkg/logger"
	"go-recruitment-scheduler/pkg/notify"
	"go-recruitment-scheduler/pkg/redis"
	"go-recruitment-scheduler/pkg/validation"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

type repositories struct {
	interviews domain.InterviewRepository
	slots      domain.SlotRepository
	reminders  domain.ReminderRepository
}

// @title           Interview Scheduling API
// @version         1.0
// @description     Interview scheduling, interviewer availability and reminders.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting interview scheduler", "port", cfg.Port, "storage", cfg.StorageDriver)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	auditLog := audit.New("interview-scheduler", cfg.Environment)
	defer auditLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]usecase.HealthCheck{}

	// 3. Setup Storage
	var repos repositories
	switch cfg.StorageDriver {
	case "memory":
		store := memory.NewStore()
		if cfg.MemorySeedFile != "" {
			n, err := store.LoadSeed(cfg.MemorySeedFile)
			if err != nil {
				logger.Log.Error("Failed to load memory seed", "error", err)
				os.Exit(1)
			}
			logger.Log.Info("Memory store seeded", "applications", n)
		}
		logger.Log.Warn("Using in-memory storage; data is lost on restart")
		repos = repositories{
			interviews: memory.NewInterviewRepository(store),
			slots:      memory.NewSlotRepository(store),
			reminders:  memory.NewReminderRepository(store),
		}
	case "postgres":
		dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
		if err != nil {
			logger.Log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		healthChecks["database"] = dbPool.Ping
		repos = repositories{
			interviews: postgres.NewInterviewRepository(dbPool),
			slots:      postgres.NewSlotRepository(dbPool),
			reminders:  postgres.NewReminderRepository(dbPool),
		}
	default:
		logger.Log.Error("Unknown STORAGE_DRIVER", "driver", cfg.StorageDriver)
		os.Exit(1)
	}

	// 4. Setup Redis (optional)
	var redisClient *goredis.Client
	rc, err := redis.Connect(ctx, redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword})
	switch {
	case errors.Is(err, redis.ErrNotConfigured):
	case err != nil:
		logger.Log.Warn("Redis unavailable; notifications will be logged only", "error", err)
	default:
		redisClient = rc
		defer redisClient.Close()
		healthChecks["redis"] = func(ctx context.Context) error { return redis.HealthCheck(ctx, rc) }
		logger.Log.Info("Redis connected")
	}

	// 5. Setup Notifications
	var sink notify.Sink = notify.NewLogSink(logger.Log)
	if redisClient != nil {
		sink = notify.NewRedisSink(redisClient, cfg.NotificationQueueKey)
	}
	dispatcher := notify.NewDispatcher(sink, cfg.NotificationBuffer, logger.Log)

	// 6. Setup UseCases
	validate := validation.Default()
	interviewUC := usecase.NewInterviewUsecase(repos.interviews, dispatcher, validate, auditLog, cfg.SchedulingTimeout)
	availabilityUC := usecase.NewAvailabilityUsecase(repos.slots, repos.interviews, validate, auditLog, usecase.AvailabilityConfig{
		Granularity:  cfg.Policy.Granularity(),
		MaxRangeDays: cfg.Policy.Availability.MaxRangeDays,
		Timeout:      cfg.SchedulingTimeout,
	})
	reminderUC := usecase.NewReminderUsecase(repos.interviews, repos.reminders, dispatcher, auditLog,
		reminderRules(cfg.Policy), cfg.Policy.Reminders.Concurrency)
	healthUC := usecase.NewHealthUsecase(healthChecks)

	// 7. Start Reminder Sweeper
	var wg sync.WaitGroup
	if cfg.ReminderEnabled {
		startReminderSweeper(ctx, &wg, cfg, reminderUC)
	}

	// 8. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		InterviewUC:    interviewUC,
		AvailabilityUC: availabilityUC,
		HealthUC:       healthUC,
		Redis:          redisClient,
		Audit:          auditLog,
		Config:         cfg,
	})

	// 9. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}
	wg.Wait()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Log.Warn("Notifications still queued at shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}

func reminderRules(p config.Policy) []usecase.ReminderRule {
	rules := make([]usecase.ReminderRule, 0, len(p.Reminders.Rules))
	for _, r := range p.Reminders.Rules {
		rules = append(rules, usecase.ReminderRule{Kind: domain.ReminderKind(r.Kind), Lead: r.Lead})
	}
	return rules
}

// startReminderSweeper runs the sweep loop until ctx is done. With a lock
// file configured only one process per host sweeps.
func startReminderSweeper(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, reminderUC domain.ReminderUsecase) {
	release := func() error { return nil }
	if cfg.ReminderLockFile != "" {
		unlock, err := scheduler.Lock(cfg.ReminderLockFile)
		if errors.Is(err, scheduler.ErrLocked) {
			logger.Log.Info("Reminder sweeper already running in another process", "lock_file", cfg.ReminderLockFile)
			return
		}
		if err != nil {
			logger.Log.Error("Reminder sweeper disabled", "error", err)
			return
		}
		release = unlock
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer release()
		scheduler.Every(ctx, cfg.ReminderSweepInterval, "interview-reminders", func(ctx context.Context) error {
			sent, err := reminderUC.SendDueReminders(ctx, time.Now().UTC())
			if sent > 0 {
				logger.Log.Info("Interview reminders sent", "count", sent)
			}
			return err
		})
	}()
}
