package cmd

import (
	"context"
	"fmt"
	"time"

	"totopool/application"
	"totopool/config"
	"totopool/database"
	"totopool/domain/entities"
	"totopool/domain/interfaces"
	"totopool/domain/services"
	"totopool/infrastructure"
	"totopool/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run initializes and starts the round engine
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting totopool...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down metrics")
		}
	}()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("Closing database connection...")
		db.Close()
	}()

	checks := map[string]application.HealthChecker{"database": db}

	publisher, closeNATS, err := newEventPublisher(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeNATS()

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)

	var pools application.LivePoolReader
	var lease application.WorkerLease
	if cfg.RedisURL != "" {
		log.Info("Connecting to Redis...")
		redisClient, err := infrastructure.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.WithError(err).Error("Error closing Redis client")
			}
		}()

		poolCache := infrastructure.NewPoolCache(redisClient, cfg.PoolCacheTTL)
		poolCache.RegisterHandlers(uowFactory)
		pools = poolCache
		lease = infrastructure.NewWorkerLock(redisClient)
		checks["redis"] = redisClient
	} else {
		log.Info("REDIS_URL not set, live pool cache and worker lease disabled")
	}

	drawer, err := newOutcomeDrawer(cfg)
	if err != nil {
		return err
	}

	engineCfg := application.EngineConfig{
		PayoutPolicy:         entities.PayoutPolicyName(cfg.PayoutPolicy),
		HouseFeePercent:      cfg.HouseFeePercent,
		BiggestWinTTL:        cfg.BiggestWinTTL,
		SelectionDuration:    cfg.SelectionDuration,
		RoundLookahead:       cfg.RoundLookahead,
		MatchesPerRound:      cfg.MatchesPerRound,
		MaxVariantsPerCoupon: cfg.MaxVariantsPerCoupon,
		StartingBalance:      cfg.StartingBalance,
	}
	metrics := observability.GetMetrics()

	worker, err := application.NewRoundWorker(uowFactory, drawer, engineCfg, cfg.WorkerPollInterval, lease, metrics)
	if err != nil {
		return fmt.Errorf("failed to create round worker: %w", err)
	}
	betting := application.NewBettingService(uowFactory, engineCfg, metrics)
	opsServer := application.NewOpsServer(cfg.OpsAddr, uowFactory, betting, pools, checks)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stopWorker := worker.Start(gctx)
		<-gctx.Done()
		stopWorker()
		return nil
	})
	g.Go(func() error {
		return opsServer.ListenAndServe(gctx)
	})

	log.WithFields(log.Fields{
		"policy":  engineCfg.PayoutPolicy,
		"opsAddr": cfg.OpsAddr,
	}).Info("totopool is running")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service stopped: %w", err)
	}
	log.Info("Shutdown completed")
	return nil
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// newEventPublisher connects to NATS when configured and falls back to the
// no-op publisher otherwise
func newEventPublisher(ctx context.Context, cfg *config.Config, checks map[string]application.HealthChecker) (interfaces.EventPublisher, func(), error) {
	if cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, domain events will not be published")
		return infrastructure.NewNoopEventPublisher(), func() {}, nil
	}

	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, nil, err
	}
	closeNATS := func() {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS client")
		}
	}

	publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	if err := publisher.EnsureDomainEventStream(); err != nil {
		closeNATS()
		return nil, nil, fmt.Errorf("failed to ensure domain event stream: %w", err)
	}
	checks["nats"] = natsClient
	return publisher, closeNATS, nil
}

// newOutcomeDrawer uses random.org when an API key is configured and local
// randomness otherwise
func newOutcomeDrawer(cfg *config.Config) (interfaces.OutcomeDrawer, error) {
	var forced *entities.Outcome
	if cfg.ForceOutcome != "" {
		outcome, err := entities.ParseOutcome(cfg.ForceOutcome)
		if err != nil {
			return nil, fmt.Errorf("invalid FORCE_OUTCOME: %w", err)
		}
		log.WithField("outcome", outcome).Warn("Every match result is forced")
		forced = &outcome
	}

	var source interfaces.ResultSource
	if cfg.RandomOrgAPIKey != "" {
		source = infrastructure.NewRandomOrgSource(cfg.RandomOrgURL, cfg.RandomOrgAPIKey, cfg.ResultSourceTimeout)
	}
	return services.NewOutcomeDrawer(source, forced), nil
}
