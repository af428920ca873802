package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/example/prayer-debt/internal/application"
	"github.com/example/prayer-debt/internal/config"
	"github.com/example/prayer-debt/internal/dispatch"
	"github.com/example/prayer-debt/internal/domain"
	httptransport "github.com/example/prayer-debt/internal/http"
	"github.com/example/prayer-debt/internal/keylock"
	"github.com/example/prayer-debt/internal/logging"
	"github.com/example/prayer-debt/internal/metrics"
	"github.com/example/prayer-debt/internal/persistence"
	"github.com/example/prayer-debt/internal/persistence/memory"
	"github.com/example/prayer-debt/internal/persistence/sqlite"
	"github.com/example/prayer-debt/internal/secure"
)

// Storage backends selectable with --storage.
const (
	storageSQLite = "sqlite"
	storageMemory = "memory"
)

const (
	localQueueSize = 128
	lockPollDelay  = 20 * time.Millisecond
)

func serveCmd() *cobra.Command {
	var (
		envFile     string
		storageKind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, storageKind, logging.New(os.Stdout, level))
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default .env when present)")
	cmd.Flags().StringVar(&storageKind, "storage", storageSQLite, "storage backend (sqlite, memory)")

	return cmd
}

func serve(ctx context.Context, cfg config.Config, storageKind string, logger *slog.Logger) error {
	repos, err := openRepositories(ctx, cfg, storageKind, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repos.close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	dispatcher, local, closeDispatcher, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	m := metrics.New()
	service := application.NewPrayerDebtService(application.PrayerDebtDeps{
		Snapshots:  repos.snapshots,
		History:    repos.history,
		Jobs:       repos.jobs,
		Audit:      repos.audit,
		Locker:     locker,
		Dispatcher: dispatcher,
		Metrics:    m,
		Now:        time.Now,
		Logger:     logger,
	}, settingsFromConfig(cfg))

	if local != nil {
		local.Start(ctx, service.RunCalculation)
		defer local.Stop()
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		PrayerDebt: httptransport.NewPrayerDebtHandler(service, logger),
		Webhooks:   httptransport.NewWebhookHandler(service, logger),
		Metrics:    m,
		Health:     repos.health,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("prayer debt API listening",
		"addr", server.Addr,
		"storage", storageKind,
		"dispatch", cfg.Dispatch,
		"calc_version", cfg.CalcVersion,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

func settingsFromConfig(cfg config.Config) application.Settings {
	return application.Settings{
		CalcVersion:       cfg.CalcVersion,
		DefaultMadhab:     domain.Madhab(cfg.Madhab),
		MaxProgressAmount: cfg.MaxProgressAmount,
		WebhookSecret:     cfg.WebhookSecret,
		WebhookURL:        cfg.WebhookURL(),
		SnapshotCacheTTL:  cfg.SnapshotCacheTTL,
	}
}

type repositories struct {
	snapshots persistence.SnapshotRepository
	history   persistence.HistoryRepository
	jobs      persistence.JobRepository
	audit     persistence.AuditRepository
	health    func(ctx context.Context) error
	close     func() error
}

func openRepositories(ctx context.Context, cfg config.Config, kind string, logger *slog.Logger) (repositories, error) {
	switch kind {
	case storageMemory:
		store := memory.New()
		logger.Warn("using in-memory storage, data is lost on exit")
		return repositories{
			snapshots: store,
			history:   store,
			jobs:      store,
			audit:     store,
			close:     func() error { return nil },
		}, nil
	case storageSQLite, "":
		storage, err := openSQLite(ctx, cfg.SQLiteDSN, cfg, logger)
		if err != nil {
			return repositories{}, err
		}
		return repositories{
			snapshots: storage,
			history:   storage,
			jobs:      storage,
			audit:     storage,
			health:    storage.Ping,
			close:     storage.Close,
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown storage %q (want %s or %s)", kind, storageSQLite, storageMemory)
	}
}

// openSQLite opens and migrates the database at dsn. Personal facts are
// sealed when an encryption key is configured.
func openSQLite(ctx context.Context, dsn string, cfg config.Config, logger *slog.Logger) (*sqlite.Storage, error) {
	opts := []sqlite.Option{sqlite.WithLogger(logger)}
	if cfg.EncryptionKey != "" {
		sealer, err := secure.NewSealer(cfg.EncryptionKey, cfg.EncryptionSalt)
		if err != nil {
			return nil, fmt.Errorf("create sealer: %w", err)
		}
		opts = append(opts, sqlite.WithSealer(sealer))
	}

	storage, err := sqlite.Open(dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	applied, err := storage.Migrate(ctx)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("database ready", "dsn", dsn, "migrations_applied", applied, "sealed", cfg.EncryptionKey != "")
	return storage, nil
}

func newLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (keylock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return keylock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}

	locker := keylock.NewRedis(client,
		keylock.WithTTL(cfg.LockTTL),
		keylock.WithRetryDelay(lockPollDelay),
		keylock.WithReleaseHook(func(key string, err error) {
			logger.Warn("failed to release user lock", "key", key, "error", err)
		}),
	)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
	return locker, closeFn, nil
}

// newDispatcher returns the configured dispatcher. The *dispatch.Local is
// non-nil only for the in-process pool, which the caller must start.
func newDispatcher(cfg config.Config, logger *slog.Logger) (dispatch.Dispatcher, *dispatch.Local, func(), error) {
	switch cfg.Dispatch {
	case config.DispatchHTTP:
		return dispatch.NewHTTP(cfg.CalculatorURL, cfg.CalculatorAPIKey, nil), nil, func() {}, nil
	case config.DispatchNATS:
		n, err := dispatch.ConnectNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
		}
		return n, nil, func() {
			if err := n.Close(); err != nil {
				logger.Error("failed to close nats connection", "error", err)
			}
		}, nil
	default:
		local := dispatch.NewLocal(cfg.DispatchWorkers, localQueueSize, logger)
		return local, local, func() {}, nil
	}
}
