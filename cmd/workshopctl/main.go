package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"workshop-client/internal/api"
	"workshop-client/internal/cache"
	"workshop-client/internal/config"
	"workshop-client/internal/session"
	"workshop-client/internal/sync"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	cfgPath := flag.String("config", "configs/config.yml", "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Session store for resumable state between runs
	sessionStore, err := session.Open(cfg.Session.DBPath, logger)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer sessionStore.Close()

	// Identity from the configured bearer token
	var identity *session.Identity
	if cfg.API.Token != "" {
		identity, err = session.ParseIdentity(cfg.API.Token)
		if err != nil {
			logger.Fatal("Failed to parse identity from token", zap.Error(err))
		}
		logger.Info("Identity resolved",
			zap.String("user_id", identity.UserID),
			zap.String("role", identity.Role))
	}

	// Resume the active workshop when none is configured
	workshopID := cfg.Workshop.ID
	if workshopID == "" {
		var resumed string
		found, err := sessionStore.Load("", session.KindActiveWorkshop, &resumed)
		if err != nil {
			logger.Warn("Failed to load resumable workshop", zap.Error(err))
		}
		if found {
			workshopID = resumed
			logger.Info("Resumed workshop from session", zap.String("workshop_id", workshopID))
		}
	}
	if workshopID == "" {
		logger.Fatal("No workshop configured and none resumable from session")
	}
	if err := sessionStore.Save("", session.KindActiveWorkshop, workshopID, session.TTLNotes); err != nil {
		logger.Warn("Failed to persist active workshop", zap.Error(err))
	}

	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.Token, logger)
	store := cache.NewStore(logger)

	retry := sync.RetryPolicy{
		Base:               time.Duration(cfg.Retry.BaseMs) * time.Millisecond,
		Cap:                time.Duration(cfg.Retry.CapMs) * time.Millisecond,
		JitterMax:          time.Duration(cfg.Retry.JitterMs) * time.Millisecond,
		SubmissionAttempts: cfg.Retry.SubmissionAttempts,
		BackgroundAttempts: cfg.Retry.BackgroundAttempts,
	}
	stale := sync.DefaultStaleness()
	stale.Workshop = time.Duration(cfg.Cache.WorkshopStaleSeconds) * time.Second
	stale.Annotations = time.Duration(cfg.Cache.AnnotationsStaleSeconds) * time.Second

	engine := sync.NewEngine(apiClient, store, retry, stale, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workshop, err := engine.Workshop(ctx, workshopID)
	if err != nil {
		logger.Fatal("Failed to fetch workshop", zap.Error(err))
	}
	logger.Info("Workshop loaded",
		zap.String("workshop_id", workshop.ID),
		zap.String("phase", string(workshop.CurrentPhase)))

	// Keep the workshop and own annotations fresh in the background
	go engine.PollWorkshop(ctx, workshopID, time.Duration(cfg.Cache.WorkshopPollSeconds)*time.Second)
	if identity != nil {
		go engine.PollOwnAnnotations(ctx, workshopID, identity.UserID, time.Duration(cfg.Cache.AnnotationsPollSeconds)*time.Second)
	}

	<-ctx.Done()
	logger.Info("Application stopped.")
}
