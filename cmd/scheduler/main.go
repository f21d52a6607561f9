package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/scheduler"
	"github.com/segyhp/lending-engine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(cfg.Logging.Level, cfg.LogFormat())
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("starting loan scheduler")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Written loans are pushed to the same cache the API reads from
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanService := service.NewLoanService(
		repository.NewLoanRepository(db),
		repository.NewEventRepository(db),
		cache.NewRedisLoanCache(redisClient, cfg.Redis.CacheTTL),
		cfg,
		log,
	)

	location := cfg.GetSchedulerLocation()
	c := scheduler.NewCron(log, location)
	jobs := scheduler.NewJobs(loanService, log, location, cfg.Scheduler.JobTimeout)

	if _, err := jobs.Register(c, cfg.Scheduler.OverdueCron); err != nil {
		log.Fatal("error scheduling daily sweep", zap.Error(err))
	}

	// Start the scheduler
	c.Start()
	log.Info("scheduler started",
		zap.String("spec", cfg.Scheduler.OverdueCron),
		zap.String("timezone", location.String()),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scheduler")
	<-c.Stop().Done()
	log.Info("scheduler stopped")
}
