package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
	"github.com/vladislavdragonenkov/retail/internal/storage/postgres"
)

// Dependencies содержит хранилища и репозитории приложения.
type Dependencies struct {
	Customers domain.CustomerRepository
	Products  domain.ProductRepository
	Orders    domain.OrderRepository
	Payments  domain.PaymentRepository
	Workflow  domain.WorkflowStore
	Outbox    domain.OutboxRepository
	Timeline  domain.TimelineRepository
	Logger    *log.Entry

	// Ping проверяет доступность хранилища (для health-check).
	Ping func(ctx context.Context) error
	// Close освобождает ресурсы хранилища.
	Close func() error
}

// NewMemoryDependencies собирает зависимости поверх in-memory хранилища.
// Подходит для разработки и тестов: состояние живёт до перезапуска.
func NewMemoryDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store := memory.NewStore()
	return &Dependencies{
		Customers: memory.NewCustomerRepository(store),
		Products:  memory.NewProductRepository(store),
		Orders:    memory.NewOrderRepository(store),
		Payments:  memory.NewPaymentRepository(store),
		Workflow:  memory.NewWorkflowStore(store),
		Outbox:    memory.NewOutboxRepository(),
		Timeline:  memory.NewTimelineRepository(),
		Logger:    logger,
		Ping:      func(context.Context) error { return nil },
		Close:     func() error { return nil },
	}
}

// NewPostgresDependencies подключается к PostgreSQL, применяет миграции
// и собирает зависимости поверх базы.
func NewPostgresDependencies(ctx context.Context, dsn string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.MigrateUp(ctx, 0); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Dependencies{
		Customers: postgres.NewCustomerRepository(store),
		Products:  postgres.NewProductRepository(store),
		Orders:    postgres.NewOrderRepository(store),
		Payments:  postgres.NewPaymentRepository(store),
		Workflow:  postgres.NewWorkflowStore(store),
		Outbox:    postgres.NewOutboxRepository(store),
		Timeline:  postgres.NewTimelineRepository(store),
		Logger:    logger,
		Ping:      store.Ping,
		Close:     store.Close,
	}, nil
}

// NewDependencies выбирает хранилище по конфигурации: PostgreSQL при
// заполненном DSN, иначе in-memory.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if cfg.PostgresDSN != "" {
		deps, err := NewPostgresDependencies(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		deps.Logger.Info("using postgres storage")
		return deps, nil
	}

	deps := NewMemoryDependencies(logger)
	deps.Logger.Info("using in-memory storage")
	return deps, nil
}
