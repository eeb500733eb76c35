package di

import (
	"context"
	"fmt"
	"time"

	"UsagePrep/internal/domain/repository"
	"UsagePrep/internal/handler/api"
	internalrepo "UsagePrep/internal/repository"
	"UsagePrep/internal/service/cache"
	"UsagePrep/internal/usecase"
	"UsagePrep/pkg/config"
	xhttp "UsagePrep/pkg/http"
	pkgkafka "UsagePrep/pkg/kafka"
	applogger "UsagePrep/pkg/logger"
	"UsagePrep/pkg/metrics"
	"UsagePrep/pkg/postgres"
	"UsagePrep/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvidePostgresClient creates a Postgres client and materializes the
// prepared_layers schema.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, error) {
	client, err := postgres.NewClient(
		postgres.WithHost(cfg.Postgres.Host),
		postgres.WithPort(cfg.Postgres.Port),
		postgres.WithDatabase(cfg.Postgres.Database),
		postgres.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		postgres.WithSSLMode(cfg.Postgres.SSLMode),
		postgres.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
		postgres.WithConnLifetime(cfg.Postgres.ConnLifetime),
		postgres.WithConnTimeout(cfg.Postgres.ConnTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	return client, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickReader creates the raw forex tick reader.
func ProvideTickReader(client *postgres.Client) repository.TickReader {
	return internalrepo.NewTickRepository(client.DB())
}

// ProvideUsageReader creates the raw CDR event reader.
func ProvideUsageReader(client *postgres.Client) repository.UsageReader {
	return internalrepo.NewCDRRepository(client.DB())
}

// ProvideCustomerReader creates the CRM dimension reader, wrapped with a
// cache because the dimension changes far slower than the refresh interval.
func ProvideCustomerReader(client *postgres.Client, cfg *config.Config, log *applogger.Logger) repository.CustomerReader {
	inner := internalrepo.NewCRMRepository(client.DB())

	var c cache.BytesCache
	if cfg.Redis.Enabled {
		c = cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		c = cache.NewTTLCache()
	}
	return internalrepo.NewCachedCustomerReader(inner, c, cfg.Redis.CacheTTL, log)
}

// ProvidePreparedStore creates the derived-table store.
func ProvidePreparedStore(client *postgres.Client) repository.PreparedStore {
	return internalrepo.NewPreparedRepository(client.DB())
}

// ProvideCyclePublisher creates the Kafka cycle-event publisher. When Kafka
// is disabled it returns a no-op publisher.
func ProvideCyclePublisher(cfg *config.Config) (repository.CyclePublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewCycleEventPublisher(nil, ""), nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewCycleEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideForexAggregator creates the OHLC candle aggregator.
func ProvideForexAggregator(
	ticks repository.TickReader,
	store repository.PreparedStore,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.ForexAggregator {
	return usecase.NewForexAggregator(ticks, store, m, log, usecase.ForexConfig{
		Pairs:         cfg.Forex.Pairs,
		EMAFast:       cfg.Forex.EMAFast,
		EMASlow:       cfg.Forex.EMASlow,
		ATRFast:       cfg.Forex.ATRFast,
		ATRSlow:       cfg.Forex.ATRSlow,
		WindowBuckets: cfg.Refresh.WindowBuckets,
	})
}

// ProvideUsageAggregator creates the usage cost aggregator.
func ProvideUsageAggregator(
	events repository.UsageReader,
	store repository.PreparedStore,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.UsageAggregator {
	return usecase.NewUsageAggregator(events, store, m, log, usecase.UsageConfig{
		DataRatePerGB:   cfg.Usage.DataRatePerGB,
		VoiceRatePerMin: cfg.Usage.VoiceRatePerMin,
		BytesPerGB:      cfg.Usage.BytesPerGB,
		WindowBuckets:   cfg.Refresh.WindowBuckets,
	})
}

// ProvideTowerSessionizer creates the tower session deriver.
func ProvideTowerSessionizer(
	events repository.UsageReader,
	store repository.PreparedStore,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.TowerSessionizer {
	return usecase.NewTowerSessionizer(events, store, m, log, usecase.SessionConfig{
		IdleGap:         cfg.Sessions.IdleGap,
		MinInteractions: cfg.Sessions.MinInteractions,
		WindowBuckets:   cfg.Refresh.WindowBuckets,
	})
}

// ProvideBalanceFlattener creates the running-balance flattener.
func ProvideBalanceFlattener(
	customers repository.CustomerReader,
	store repository.PreparedStore,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.BalanceFlattener {
	return usecase.NewBalanceFlattener(customers, store, m, log, usecase.BalanceConfig{
		RatePair1:     cfg.Balance.RatePair1,
		RatePair2:     cfg.Balance.RatePair2,
		DefaultRate:   cfg.Balance.DefaultRate,
		WindowBuckets: cfg.Refresh.WindowBuckets,
	})
}

// ProvideScheduler creates the refresh scheduler.
func ProvideScheduler(
	cfg *config.Config,
	forex *usecase.ForexAggregator,
	usage *usecase.UsageAggregator,
	sessions *usecase.TowerSessionizer,
	flattener *usecase.BalanceFlattener,
	store repository.PreparedStore,
	publisher repository.CyclePublisher,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.RefreshScheduler {
	return usecase.NewRefreshScheduler(
		cfg.Refresh.Interval,
		usecase.RetryConfig{
			Attempts:   cfg.Refresh.RetryAttempts,
			BackoffMin: cfg.Refresh.RetryBackoffMin,
			BackoffMax: cfg.Refresh.RetryBackoffMax,
		},
		forex, usage, sessions, flattener,
		store, publisher, m, log,
		usecase.NewRealClock(),
	)
}

// ProvideStatusHandler creates the HTTP status handler.
func ProvideStatusHandler(log *applogger.Logger, scheduler *usecase.RefreshScheduler, client *postgres.Client) xhttp.Handler {
	return api.NewStatusHandler(log, scheduler, client)
}

// ProvideHTTPServer creates the HTTP server.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, log *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if !cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(""))
	} else if cfg.Metrics.Path != "" {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(handler, log, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	scheduler *usecase.RefreshScheduler,
	httpServer *xhttp.Server,
	client *postgres.Client,
	publisher repository.CyclePublisher,
) *server.App {
	return server.New(cfg, log, scheduler, httpServer, client, publisher)
}
