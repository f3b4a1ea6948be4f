package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SigFuse/internal/domain/models"
	"SigFuse/internal/domain/repository"
	domsvc "SigFuse/internal/domain/service"
	"SigFuse/internal/fusion"
	"SigFuse/internal/handler/api"
	"SigFuse/internal/learning"
	mid "SigFuse/internal/middleware"
	"SigFuse/internal/regime"
	internalrepo "SigFuse/internal/repository"
	"SigFuse/internal/service/marketdata"
	"SigFuse/internal/services/signals"
	"SigFuse/internal/strategy"
	"SigFuse/internal/usecase"
	pkgcache "SigFuse/pkg/cache"
	pkgch "SigFuse/pkg/clickhouse"
	"SigFuse/pkg/config"
	pkgcron "SigFuse/pkg/cron"
	xhttp "SigFuse/pkg/http"
	pkgkafka "SigFuse/pkg/kafka"
	applogger "SigFuse/pkg/logger"
	"SigFuse/pkg/metrics"
	"SigFuse/pkg/queue"
	"SigFuse/pkg/server"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// ProvideLogger creates the application logger. Production environments log
// JSON, everything else gets the console writer.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideDecisionStore creates the ClickHouse decision store and initializes
// its schema.
func ProvideDecisionStore(chClient *pkgch.Client, lgr *applogger.Logger) (repository.DecisionStore, error) {
	store := internalrepo.NewCHDecisionStore(chClient)
	store.SetLogger(lgr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("decision store schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDecisionPublisher creates the Kafka decision publisher.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.DecisionPublisher {
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.OffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisCache creates the Redis-backed cache client shared by the
// regime cache and the outcome queue.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideCacheService layers an in-process cache over Redis so regime reads
// within one cycle never leave the process.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service {
	return pkgcache.NewLayeredCache(rc)
}

// ProvideQueuePublisher creates the Redis queue publisher used by the Kafka
// outcomes handler.
func ProvideQueuePublisher(lgr *applogger.Logger, rc *pkgcache.RedisCache) queue.QueueService {
	return queue.NewRedisPublisher(lgr, rc.Client())
}

// ProvideOutcomeIngestJob creates the queue job that settles outcomes.
func ProvideOutcomeIngestJob(
	learner *learning.Learner,
	coordinator *strategy.Coordinator,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.OutcomeIngestJob {
	return usecase.NewOutcomeIngestJob(learner, coordinator, m, lgr)
}

// ProvideQueueConsumer creates the Redis queue consumer with the outcome
// ingest job registered.
func ProvideQueueConsumer(lgr *applogger.Logger, rc *pkgcache.RedisCache, job *usecase.OutcomeIngestJob) *queue.RedisQueue {
	return queue.NewRedisConsumer(lgr, &queue.QueueConfig{
		Workers:    4,
		QueueSize:  256,
		RetryLimit: 3,
		RetryDelay: 2 * time.Second,
	}, rc.Client(), []queue.Job{job})
}

// ProvideSignalProviders creates the HTTP signal providers.
func ProvideSignalProviders(cfg *config.Config) []domsvc.SignalProvider {
	return []domsvc.SignalProvider{
		signals.NewHTTPTechnicalSignal(cfg),
		signals.NewHTTPSentimentSignal(cfg),
		signals.NewHTTPOptionsFlowSignal(cfg),
	}
}

// ProvideDirectionModel creates the HTTP direction model client.
func ProvideDirectionModel(cfg *config.Config) domsvc.DirectionModel {
	return signals.NewHTTPDirectionModel(cfg)
}

// ProvideContextProviders creates the context modifiers, in application order.
func ProvideContextProviders(cfg *config.Config) []domsvc.ContextProvider {
	return []domsvc.ContextProvider{
		signals.NewSectorAgreementContext(cfg),
		signals.NewEarningsProximityContext(cfg),
	}
}

// ProvideRegimeSource creates the cached HTTP regime source.
func ProvideRegimeSource(cfg *config.Config, cacheSvc pkgcache.Service) domsvc.RegimeSource {
	return signals.NewHTTPRegimeSource(cfg, cacheSvc)
}

// ProvideAdjuster creates the regime threshold adjuster.
func ProvideAdjuster(source domsvc.RegimeSource, m repository.Metrics, lgr *applogger.Logger) *regime.Adjuster {
	return regime.NewAdjuster(source, m, lgr)
}

// ProvideEngine creates the fusion engine.
func ProvideEngine(
	providers []domsvc.SignalProvider,
	model domsvc.DirectionModel,
	contexts []domsvc.ContextProvider,
	m repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) *fusion.Engine {
	return fusion.NewEngine(providers, model, contexts, m, lgr, fusion.Config{
		ProviderTimeout:     cfg.Fusion.ProviderTimeout,
		MLWeight:            cfg.Fusion.MLWeight,
		DisagreementPenalty: cfg.Fusion.DisagreementPenalty,
		BoostFloor:          cfg.Fusion.BoostFloor,
		ProviderRateLimit:   cfg.Signals.ProviderRateLimit,
	})
}

// ProvideLearner creates the adaptive weight learner seeded from the
// configured baseline.
func ProvideLearner(
	store repository.DecisionStore,
	m repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) (*learning.Learner, error) {
	return learning.NewLearner(store, cfg.Signals.Baseline, m, lgr, learning.Config{
		Window:       cfg.Learning.Window,
		MinSamples:   cfg.Learning.MinSamples,
		DeadZone:     cfg.Learning.DeadZone,
		ScoreFloor:   cfg.Learning.ScoreFloor,
		ScoreCap:     cfg.Learning.ScoreCap,
		ScoreBlend:   cfg.Learning.ScoreBlend,
		MaxRelChange: cfg.Learning.MaxRelChange,
	})
}

// ProvideCoordinator builds the strategy buckets from configuration and
// creates the coordinator over them.
func ProvideCoordinator(
	engine *fusion.Engine,
	m repository.Metrics,
	lgr *applogger.Logger,
	cfg *config.Config,
) (*strategy.Coordinator, error) {
	buckets := make([]*models.StrategyBucket, 0, len(cfg.Buckets))
	for _, bc := range cfg.Buckets {
		capital, err := decimal.NewFromString(bc.InitialCapital)
		if err != nil {
			return nil, fmt.Errorf("bucket %s initial_capital: %w", bc.StrategyID, err)
		}
		buckets = append(buckets, &models.StrategyBucket{
			StrategyID: bc.StrategyID,
			BaseThresholds: models.DecisionThresholds{
				MinSignalsAgreeing: bc.MinSignalsAgreeing,
				MinConfidence:      bc.MinConfidence,
				MinExpectedMove:    bc.MinExpectedMove,
			},
			InitialCapital: capital,
			CapitalBalance: capital,
		})
	}

	floor := decimal.Zero
	if cfg.Coordinator.CapitalFloor != "" {
		f, err := decimal.NewFromString(cfg.Coordinator.CapitalFloor)
		if err != nil {
			return nil, fmt.Errorf("coordinator capital_floor: %w", err)
		}
		floor = f
	}

	return strategy.NewCoordinator(buckets, engine, m, lgr, strategy.Config{
		TrailWindow:  cfg.Coordinator.TrailWindow,
		MinTrades:    cfg.Coordinator.MinTrades,
		BoostFactor:  cfg.Coordinator.BoostFactor,
		CapitalFloor: floor,
	})
}

// ProvideCycleRunner creates the per-snapshot cycle use case.
func ProvideCycleRunner(
	engine *fusion.Engine,
	coordinator *strategy.Coordinator,
	learner *learning.Learner,
	adjuster *regime.Adjuster,
	publisher repository.DecisionPublisher,
	m repository.Metrics,
	lgr *applogger.Logger,
) *usecase.CycleRunner {
	return usecase.NewCycleRunner(engine, coordinator, learner, adjuster, publisher, m, lgr)
}

// ProvideQuoteStream creates the market data WebSocket stream.
func ProvideQuoteStream(cfg *config.Config) repository.QuoteStream {
	return marketdata.New(
		cfg.MarketData.APIKey,
		cfg.MarketData.WebSocketURL,
		cfg.MarketData.Instrument,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
	)
}

// ProvideQuoteCollector creates the quote collector with the snapshot
// pipeline between the stream and the cycle runner.
func ProvideQuoteCollector(
	stream repository.QuoteStream,
	runner *usecase.CycleRunner,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.QuoteCollector {
	builder := marketdata.NewSnapshotBuilder(cfg.MarketData.Instrument, cfg.MarketData.SnapshotWindow)
	pipe := mid.NewSnapshotPipeline(runner, builder, m,
		mid.WithCycleInterval(cfg.MarketData.CycleInterval),
		mid.WithBufferSize(16),
	)
	return usecase.NewQuoteCollector(stream, m, pipe)
}

// ProvideKafkaOutcomesHandler registers the handler for the outcomes topic.
func ProvideKafkaOutcomesHandler(q queue.QueueService, m repository.Metrics, cfg *config.Config) *usecase.KafkaOutcomesHandler {
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.OutcomesTopic, q, m)
}

// ProvideHTTPHandler creates the diagnostics HTTP handler.
func ProvideHTTPHandler(
	lgr *applogger.Logger,
	store repository.DecisionStore,
	learner *learning.Learner,
	coordinator *strategy.Coordinator,
	adjuster *regime.Adjuster,
) xhttp.Handler {
	return api.NewDecisionsEchoHandler(lgr, store, learner, coordinator, adjuster)
}

// ProvideCronRunner creates the scheduler for the learning cycles.
func ProvideCronRunner(lgr *applogger.Logger) *pkgcron.Runner {
	return pkgcron.New(lgr, context.Background())
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOutcomesHandler,
	queueConsumer *queue.RedisQueue,
	cronRunner *pkgcron.Runner,
	learner *learning.Learner,
	coordinator *strategy.Coordinator,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
	m repository.Metrics,
) (*server.App, error) {
	if consumer != nil {
		consumer.WithConsumerHook(consumerMetricsHook(m))
	}
	app := server.New(cfg, lgr, collector, consumer, kh, queueConsumer, cronRunner, producer, chClient, httpHandler)
	if err := app.ScheduleLearning(learner, coordinator); err != nil {
		return nil, fmt.Errorf("schedule learning: %w", err)
	}
	return app, nil
}

// consumerMetricsHook times outcome handling and counts consume errors.
func consumerMetricsHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km segkafka.Message, data []byte) (context.Context, segkafka.Message, []byte, error) {
			return pkgkafka.WithStartTime(ctx, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, topic string, km segkafka.Message, data []byte, err error) {
			if start, ok := pkgkafka.StartTimeFrom(ctx); ok {
				m.RecordLatency("kafka_handle", time.Since(start).Seconds())
			}
		},
		Err: func(ctx context.Context, topic string, km segkafka.Message, data []byte, err error) {
			m.RecordError("kafka_consume")
		},
	}
}
