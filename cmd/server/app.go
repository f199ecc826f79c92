package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/career"
	"careercoach/ai/internal/chat"
	"careercoach/ai/internal/config"
	"careercoach/ai/internal/feedback"
	"careercoach/ai/internal/handlers"
	"careercoach/ai/internal/history"
	"careercoach/ai/internal/interview"
	"careercoach/ai/internal/jobs"
	"careercoach/ai/internal/llm"
	"careercoach/ai/internal/metrics"
	"careercoach/ai/internal/middleware"
	"careercoach/ai/internal/prompts"
	"careercoach/ai/internal/routers"
)

// app holds the wired service and the background parts main has to stop.
type app struct {
	router         *chi.Mux
	local          *agent.LocalRunner
	scheduler      *jobs.Scheduler
	requestTimeout time.Duration
}

// newApp wires every component. rdb may be nil, which disables the history cache and locks.
func newApp(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, provider llm.Provider, logger *zap.Logger) (*app, error) {
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt manager: %w", err)
	}

	gormStore, err := history.NewGormStore(db, logger)
	if err != nil {
		return nil, err
	}
	var store history.Store = gormStore
	var locker middleware.RecordLocker
	if rdb != nil {
		store = history.NewCachedStore(gormStore, rdb, cfg.HistoryCacheTTL, logger)
		locker = history.NewLocker(rdb, cfg.LockTTL, logger)
		logger.Info("History cache and record locks enabled", zap.Duration("cache_ttl", cfg.HistoryCacheTTL))
	}

	a := &app{}
	var runner agent.Runner
	switch cfg.Runner {
	case config.RunnerRemote:
		runner, err = agent.NewRemoteRunner(agent.RemoteConfig{
			BaseURL:        cfg.RunnerURL,
			EventKey:       cfg.EventKey,
			SigningKey:     cfg.SigningKey,
			MaxPromptBytes: cfg.MaxPromptBytes,
		}, logger)
		if err != nil {
			return nil, err
		}
	default:
		a.local, err = agent.NewLocalRunner(db, provider, agent.LocalConfig{
			Workers:        cfg.Workers,
			QueueSize:      cfg.QueueSize,
			MaxPromptBytes: cfg.MaxPromptBytes,
			JobTimeout:     cfg.JobTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.local.Start(ctx)
		runner = a.local
	}
	logger.Info("Agent runner ready", zap.String("runner", cfg.Runner))

	poller := agent.NewPoller(runner, logger)
	ratings, err := feedback.NewFeedbackManager(db, cfg.RatingCacheTTL, provider.GetProviderName(), logger)
	if err != nil {
		return nil, err
	}
	poller.OnResolved(ratings.Hook())
	go ratings.Cache().Run(ctx, 5*time.Minute)

	ceilings := agent.DefaultCeilings(cfg.PollInterval, cfg.ChatAttempts, cfg.InterviewAttempts, cfg.ReportAttempts)
	orchestrator := interview.NewOrchestrator(poller, promptManager, store, interview.Config{
		RecentTurns: cfg.RecentTurns,
		Ceiling:     ceilings.For(agent.TaskInterview),
	}, logger)
	chatService := chat.NewService(poller, promptManager, store, ceilings.For(agent.TaskCareerChat), logger)
	careerService := career.NewService(poller, promptManager, store, ceilings, logger)

	var sweeper jobs.Sweeper
	if a.local != nil {
		sweeper = a.local
	}
	a.scheduler = jobs.NewScheduler(sweeper, jobs.NewFeedbackExporter(ratings, cfg.RatingExportDir, logger), jobs.SchedulerConfig{
		Schedule:      cfg.MaintenanceSchedule,
		JobRetention:  cfg.JobRetention,
		ExportEnabled: cfg.RatingExportEnabled,
	}, logger)

	// a request may wait for the slowest ceiling, plus submission and persistence
	a.requestTimeout = ceilings.For(agent.TaskRoadmap).Max() + 15*time.Second

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Logger, chimiddleware.Recoverer)
	router.Use(metrics.Middleware("careercoach-ai"), chimiddleware.Timeout(a.requestTimeout))

	routers.HealthRoutes(router, handlers.NewHealthHandler(provider, promptManager, cfg, gormStore))
	routers.APIRoutes(router, routers.Handlers{
		Interview: handlers.NewInterviewHandler(orchestrator, store, logger).WithLocker(locker),
		Career:    handlers.NewCareerHandler(chatService, careerService, store, logger),
		Jobs:      handlers.NewJobHandler(runner, logger),
		History:   handlers.NewHistoryHandler(store, logger),
		Feedback:  handlers.NewFeedbackHandler(ratings, logger),
	}, locker, logger)

	a.router = router
	return a, nil
}

// stop shuts down background work in dependency order.
func (a *app) stop() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.local != nil {
		a.local.Stop()
	}
}
