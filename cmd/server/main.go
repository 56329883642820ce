package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/facility-placement/internal/allocation"
	"github.com/iliyamo/facility-placement/internal/config"
	"github.com/iliyamo/facility-placement/internal/database"
	"github.com/iliyamo/facility-placement/internal/handler"
	"github.com/iliyamo/facility-placement/internal/lock"
	"github.com/iliyamo/facility-placement/internal/middleware"
	"github.com/iliyamo/facility-placement/internal/queue"
	"github.com/iliyamo/facility-placement/internal/repository"
	"github.com/iliyamo/facility-placement/internal/router"
	"github.com/iliyamo/facility-placement/internal/service"
	"github.com/iliyamo/facility-placement/internal/utils"
)

const appName = "facility-placement"

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Logger.Fatalf("load config: %v", err)
	}
	utils.InitLogger(appName)
	log := utils.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	seed, err := repository.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if err := seed.Apply(ctx, store); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.WithField("facilities", len(seed.Facilities)).WithField("equipment_types", len(seed.EquipmentTypes)).Info("catalog seeded")

	// Redis is optional unless it backs the facility lock.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting, catalog cache and shared fact dedup disabled")
	} else {
		defer rdb.Close()
	}

	locker, err := newLocker(cfg, rdb)
	if err != nil {
		log.Fatalf("lock: %v", err)
	}

	var publisher allocation.Publisher = service.NewLogPublisher()
	if cfg.RabbitMQURL != "" {
		fp := service.NewFactPublisher(cfg.RabbitMQURL, cfg.FactExchange)
		defer fp.Close()
		publisher = fp

		if cfg.FactConsumerEnabled {
			startConsumer(ctx, cfg, rdb)
		}
	} else {
		log.Warn("RABBITMQ_URL not set: contract facts are only logged")
	}

	processor := allocation.NewProcessor(store, locker, publisher, allocation.Options{
		CommandTimeout:   cfg.CommandTimeout,
		MaxCommitRetries: cfg.MaxCommitRetries,
	})

	e := router.New(router.Deps{
		Contracts: handler.NewContractHandler(processor),
		Catalog:   handler.NewCatalogHandler(processor),
		Auth: middleware.AuthConfig{
			JWTSecret:  cfg.JWTSecret,
			APIKeyHash: cfg.APIKeyHash,
			APIKeyRole: cfg.APIKeyRole,
		},
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s, store=%s, lock=%s)", addr, cfg.Env, cfg.StoreBackend, cfg.LockBackend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, func(), error) {
	if cfg.StoreBackend == config.StoreMemory {
		utils.Logger.Warn("using in-memory store: contracts are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}
	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return repository.NewMySQLStore(db), func() { _ = db.Close() }, nil
}

func newLocker(cfg config.Config, rdb *redis.Client) (lock.Locker, error) {
	if cfg.LockBackend == config.LockRedis {
		if rdb == nil {
			return nil, errors.New("LOCK_BACKEND=redis but redis is unreachable")
		}
		return lock.NewRedisLocker(rdb, "lock", cfg.LockTTL, cfg.LockWait), nil
	}
	return lock.NewLocalLocker(), nil
}

func startConsumer(ctx context.Context, cfg config.Config, rdb *redis.Client) {
	var dedup queue.Deduper = queue.NewMemoryDeduper()
	if rdb != nil {
		dedup = queue.NewRedisDeduper(rdb, "fact", 24*time.Hour)
	}
	rec := queue.NewRecorder(cfg.FactLogDir, dedup)
	go func() {
		err := queue.StartFactConsumer(ctx, queue.ConsumerConfig{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.FactExchange,
			Queue:    cfg.FactQueue,
		}, rec)
		if err != nil && !errors.Is(err, context.Canceled) {
			utils.Logger.WithError(err).Error("fact consumer stopped")
		}
	}()
	utils.Logger.WithField("file", rec.Path()).Info("fact consumer started")
}
