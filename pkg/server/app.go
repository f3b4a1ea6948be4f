package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SigFuse/internal/learning"
	"SigFuse/internal/strategy"
	"SigFuse/internal/usecase"
	pkgch "SigFuse/pkg/clickhouse"
	"SigFuse/pkg/config"
	pkgcron "SigFuse/pkg/cron"
	xhttp "SigFuse/pkg/http"
	pkgkafka "SigFuse/pkg/kafka"
	applogger "SigFuse/pkg/logger"
	"SigFuse/pkg/queue"
)

const (
	defaultLearningSchedule    = "0 * * * *"
	defaultCoordinatorSchedule = "*/15 * * * *"

	errorLogTopic = "sigfuse.logs"
)

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// App encapsulates the entire application lifecycle: the quote stream feeding
// fusion cycles, the outcomes consumer feeding the learner, the learning
// schedules, and the diagnostics HTTP server.
type App struct {
	cfg           *config.Config
	logger        *applogger.Logger
	collector     *usecase.QuoteCollector
	consumer      *pkgkafka.Consumer
	kh            pkgkafka.MessageHandler
	queueConsumer *queue.RedisQueue
	cron          *pkgcron.Runner
	producer      *pkgkafka.Producer
	chClient      *pkgch.Client
	httpHandler   xhttp.Handler
	httpServer    *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	queueConsumer *queue.RedisQueue,
	cronRunner *pkgcron.Runner,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:           cfg,
		logger:        lgr,
		collector:     collector,
		consumer:      consumer,
		kh:            kh,
		queueConsumer: queueConsumer,
		cron:          cronRunner,
		producer:      producer,
		chClient:      chClient,
		httpHandler:   httpHandler,
	}
}

// ScheduleLearning registers the weight recompute and cross-strategy
// propagation jobs on the cron runner.
func (a *App) ScheduleLearning(learner *learning.Learner, coordinator *strategy.Coordinator) error {
	learnSpec := a.cfg.Learning.Schedule
	if learnSpec == "" {
		learnSpec = defaultLearningSchedule
	}
	if _, err := a.cron.Add(learnSpec, "recompute_weights", func(ctx context.Context) error {
		_, err := learner.RecomputeWeights(ctx)
		return err
	}); err != nil {
		return err
	}

	coordSpec := a.cfg.Coordinator.Schedule
	if coordSpec == "" {
		coordSpec = defaultCoordinatorSchedule
	}
	if _, err := a.cron.Add(coordSpec, "propagate_learning", func(context.Context) error {
		coordinator.PropagateLearning()
		return nil
	}); err != nil {
		return err
	}
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Aggregate repeated error logs and ship them to Kafka.
	if a.producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          errorLogTopic,
			Publisher:      kafkaLogPublisher{p: a.producer},
		})
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start quote collector (stream + snapshot pipeline + fusion cycles)
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("quote collector started", applogger.String("instrument", a.cfg.MarketData.Instrument))

	// Start outcomes consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start outcome ingest queue workers
	if a.queueConsumer != nil {
		if err := a.queueConsumer.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
			return err
		}
		l.Info("outcome queue started")
	}

	// Start learning schedules
	if a.cron != nil {
		a.cron.Start()
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services in dependency order: no new cycles,
// then no new outcomes, then the infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop collector (pipeline + stream); no further cycles after this.
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Stop the learning schedules; waits for running jobs.
	if a.cron != nil {
		a.cron.Stop()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Stop consumer first so no new jobs are enqueued, then drain the queue.
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queueConsumer != nil {
		if err := a.queueConsumer.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// Flush the log collector before the producer goes away.
	l.RemoveCollector()

	// Close infrastructure clients
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
