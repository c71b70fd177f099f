package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/health"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/service/catalog"
	"github.com/vladislavdragonenkov/retail/internal/service/directory"
	"github.com/vladislavdragonenkov/retail/internal/service/outbox"
	"github.com/vladislavdragonenkov/retail/internal/service/workflow"
	"github.com/vladislavdragonenkov/retail/internal/version"
)

// Services — собранные доменные сервисы приложения.
type Services struct {
	Workflow  *workflow.Engine
	Directory *directory.Service
	Catalog   *catalog.Service
}

// BuildServices собирает доменные сервисы поверх зависимостей.
func BuildServices(deps *Dependencies) *Services {
	return &Services{
		Workflow: workflow.NewEngine(
			deps.Customers,
			deps.Products,
			deps.Orders,
			deps.Payments,
			deps.Workflow,
			deps.Outbox,
			deps.Timeline,
			deps.Logger.WithField("component", "workflow"),
		),
		Directory: directory.NewService(deps.Customers, deps.Orders, deps.Logger.WithField("component", "directory")),
		Catalog:   catalog.NewService(deps.Products, deps.Logger.WithField("component", "catalog")),
	}
}

// Run запускает приложение: хранилище, доменные сервисы, outbox worker
// и HTTP-сервер метрик/health. Блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	services := BuildServices(deps)

	kafkaProducer, kafkaErr := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	switch {
	case kafkaProducer != nil:
		worker := outbox.NewWorker(
			deps.Outbox,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents),
			outbox.WithDLQPublisher(kafka.NewDeadLetterPublisher(kafkaProducer, kafka.TopicDeadLetterQueue, kafka.TopicOrderEvents)),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
		)
		go worker.Run(workerCtx)
	case kafkaErr != nil:
		// Брокер задан, но недоступен: события копятся в outbox до рестарта.
		logger.WithError(kafkaErr).Error("kafka is configured but unavailable, outbox events will not be delivered")
	default:
		logger.Info("kafka is not configured, outbox worker is idle")
	}

	healthRegistry := health.NewRegistry(version.GetVersion())
	healthRegistry.Register("storage", func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.Ping(checkCtx)
	})
	healthRegistry.Register("directory", func() error {
		_, listErr := services.Directory.ListCustomers(1)
		return listErr
	})

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthRegistry)

	<-ctx.Done()
	logger.Info("получен сигнал остановки, завершаем работу")

	stopWorker()
	shutdownHTTP(metricsSrv, logger)

	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, registry *health.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", registry)
	mux.HandleFunc("/readyz", registry.Readiness)
	mux.HandleFunc("/livez", health.Liveness)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
