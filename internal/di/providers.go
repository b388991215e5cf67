package di

import (
	"context"
	"fmt"
	"time"

	"ScoutSync/internal/domain/repository"
	"ScoutSync/internal/domain/service"
	"ScoutSync/internal/handler/api"
	internalrepo "ScoutSync/internal/repository"
	"ScoutSync/internal/service/fetch"
	apimetrics "ScoutSync/internal/service/metrics"
	"ScoutSync/internal/service/notify"
	"ScoutSync/internal/service/ratelimit"
	"ScoutSync/internal/services/resolver"
	"ScoutSync/internal/services/sheet"
	"ScoutSync/internal/usecase"
	"ScoutSync/pkg/cache"
	pkgch "ScoutSync/pkg/clickhouse"
	"ScoutSync/pkg/config"
	xhttp "ScoutSync/pkg/http"
	pkgkafka "ScoutSync/pkg/kafka"
	applogger "ScoutSync/pkg/logger"
	"ScoutSync/pkg/metrics"
	pkgpg "ScoutSync/pkg/postgres"
	"ScoutSync/pkg/server"
	pkgsqlite "ScoutSync/pkg/sqlite"
	"ScoutSync/pkg/xlsx"
)

const initTimeout = 15 * time.Second

// ProvideKafkaProducer creates the Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.Producer.AutoCreateTopic),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. With log.collect enabled,
// error logs are aggregated and shipped to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collect.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collect.Interval,
			CountThreshold: cfg.Log.Collect.Threshold,
			Topic:          cfg.Log.Collect.Topic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates the Prometheus recorder, or a no-op one when metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.NewWithRegistry(nil)
	}
	apimetrics.Register()
	return metrics.New()
}

// ProvideFactStore opens the configured relational store and creates the schema.
func ProvideFactStore(cfg *config.Config, l *applogger.Logger) (repository.FactStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var (
		store  repository.FactStore
		schema []string
		initFn func(context.Context, []string) error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		client, err := pkgsqlite.NewClient(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		store, schema, initFn = internalrepo.NewSQLFactStore(client), internalrepo.SQLiteSchema, client.InitSchema
	default:
		client, err := pkgpg.NewClient(ctx,
			pkgpg.WithDSN(cfg.Store.DSN),
			pkgpg.WithPoolSize(cfg.Store.MaxConns, 1),
			pkgpg.WithConnectTimeout(cfg.Store.ConnectTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		store, schema, initFn = internalrepo.NewPGFactStore(client), internalrepo.PostgresSchema, client.InitSchema
	}

	if cfg.Store.InitSchema {
		if err := initFn(ctx, schema); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("store schema: %w", err)
		}
	}
	l.Info("fact store ready", applogger.String("driver", cfg.Store.Driver))
	return store, func() { _ = store.Close() }, nil
}

// ProvideFactMirror connects the ClickHouse mirror when enabled; nil otherwise.
func ProvideFactMirror(cfg *config.Config, l *applogger.Logger) (repository.FactMirror, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseMirrorSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	mirror := internalrepo.NewCHFactMirror(client, cfg.ClickHouse.Database)
	mirror.SetLogger(l)
	return mirror, func() { _ = client.Close() }, nil
}

// ProvideCache creates the resolver cache and run lock backend.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	c, err := cache.New(cfg.Cache.Driver,
		[]cache.RedisOption{
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		},
		cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("cache: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}

// ProvideNotifier fans outcomes out to every configured channel.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger, producer *pkgkafka.Producer) (service.Notifier, error) {
	m := notify.NewMulti(l)
	for _, ch := range cfg.Notify.Channels {
		switch ch {
		case "log":
			m.Add(ch, notify.NewLogNotifier(l))
		case "mailgun":
			mc := cfg.Notify.Mailgun
			mg, err := notify.NewMailgunNotifier(notify.MailgunConfig{
				Domain:  mc.Domain,
				APIKey:  mc.APIKey,
				BaseURL: mc.BaseURL,
				From:    mc.From,
				To:      mc.To,
			}, l)
			if err != nil {
				return nil, err
			}
			m.Add(ch, mg)
		case "kafka":
			if producer == nil {
				return nil, fmt.Errorf("notify channel kafka needs kafka.brokers")
			}
			m.Add(ch, notify.NewKafkaNotifier(producer, cfg.Notify.Kafka.Topic))
		}
	}
	if m.Len() == 0 {
		m.Add("log", notify.NewLogNotifier(l))
	}
	return m, nil
}

// ProvideFileSource selects the local directory or the SFTP source.
func ProvideFileSource(cfg *config.Config, l *applogger.Logger) (service.FileSource, error) {
	if cfg.Source.Type != "sftp" {
		return fetch.NewLocalSource(cfg.Source.Dir), nil
	}
	sc := cfg.Source.SFTP
	return fetch.NewSFTPSource(fetch.SFTPConfig{
		Host:           sc.Host,
		Port:           sc.Port,
		User:           sc.User,
		Password:       sc.Password,
		RemoteDir:      sc.RemoteDir,
		KnownHostsFile: sc.KnownHostsFile,
		Timeout:        sc.Timeout,
		DownloadDir:    cfg.Source.DownloadDir,
	}, l)
}

func ProvideWorkbookOpener(cfg *config.Config) repository.WorkbookOpener {
	return xlsx.NewOpener(xlsx.WithTitleRows(cfg.Workbook.TitleRows))
}

func ProvideDispatcher(cfg *config.Config) (*usecase.Dispatcher, error) {
	pairs := func(rules []config.DispatchRule) [][2]string {
		out := make([][2]string, len(rules))
		for i, r := range rules {
			out[i] = [2]string{r.Pattern, r.Value}
		}
		return out
	}
	return usecase.CompileDispatcher(pairs(cfg.ModeRules()), pairs(cfg.StreamRules()))
}

func ProvideNormalizer(cfg *config.Config) *sheet.Normalizer {
	cls := sheet.NewClassifier(
		sheet.WithMinYear(cfg.Reconcile.MinYear),
		sheet.WithTrailingLabels(cfg.Reconcile.TrailingLabels...),
	)
	return sheet.NewNormalizer(cls, cfg.Reconcile.DailyRowLimit)
}

func ProvideResolver(cfg *config.Config, c cache.Service, l *applogger.Logger) *resolver.Resolver {
	return resolver.New(
		resolver.WithCache(c, cfg.Cache.ResolverTTL),
		resolver.WithChunkSize(cfg.Reconcile.ResolverChunk),
		resolver.WithLogger(l),
	)
}

func ProvideReconciler(
	cfg *config.Config,
	store repository.FactStore,
	opener repository.WorkbookOpener,
	norm *sheet.Normalizer,
	res *resolver.Resolver,
	dispatch *usecase.Dispatcher,
	notifier service.Notifier,
	mirror repository.FactMirror,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Reconciler {
	opts := []usecase.ReconcilerOption{
		usecase.WithMetrics(m),
		usecase.WithReconcilerLogger(l),
		usecase.WithIgnoreSheets(cfg.Reconcile.IgnoreSheets...),
		usecase.WithNotifyTimeout(cfg.Notify.Timeout),
	}
	if mirror != nil {
		opts = append(opts, usecase.WithMirror(mirror))
	}
	return usecase.NewReconciler(store, opener, norm, res, dispatch, notifier, opts...)
}

func ProvideIngestRunner(
	cfg *config.Config,
	source service.FileSource,
	rec *usecase.Reconciler,
	dispatch *usecase.Dispatcher,
	c cache.Service,
	l *applogger.Logger,
) *usecase.IngestRunner {
	return usecase.NewIngestRunner(source, rec, dispatch, c, cfg.Cache.LockTTL, l)
}

func ProvideRunsHandler(cfg *config.Config, l *applogger.Logger, runner *usecase.IngestRunner, store repository.FactStore) *api.RunsEchoHandler {
	limiter := ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSecond)
	return api.NewRunsEchoHandler(l, runner, store, limiter)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, runs *api.RunsEchoHandler) *xhttp.Server {
	return xhttp.NewServer(l, []xhttp.Handler{runs},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetrics(cfg.Metrics.Enabled),
	)
}

func ProvideApp(cfg *config.Config, l *applogger.Logger, runner *usecase.IngestRunner, srv *xhttp.Server) *server.App {
	return server.New(cfg, l, runner, srv)
}
