package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parcelio/api/internal/platform/config"
	"github.com/parcelio/api/internal/repositories"
	"github.com/parcelio/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders     services.OrderService
	Pickups    services.PickupService
	Ledger     services.LedgerService
	Settlement services.SettlementService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option injects optional infrastructure into the container build.
type Option func(*containerDeps)

type containerDeps struct {
	orderEvents  services.OrderEventPublisher
	pickupEvents services.PickupEventPublisher
	notifier     services.SettlementNotifier
	logger       func(ctx context.Context, event string, fields map[string]any)
}

// WithOrderEventPublisher wires the order domain event publisher.
func WithOrderEventPublisher(pub services.OrderEventPublisher) Option {
	return func(deps *containerDeps) {
		deps.orderEvents = pub
	}
}

// WithPickupEventPublisher wires the pickup domain event publisher.
func WithPickupEventPublisher(pub services.PickupEventPublisher) Option {
	return func(deps *containerDeps) {
		deps.pickupEvents = pub
	}
}

// WithSettlementNotifier wires the push notification dispatcher used after daily processing.
func WithSettlementNotifier(notifier services.SettlementNotifier) Option {
	return func(deps *containerDeps) {
		deps.notifier = notifier
	}
}

// WithServiceLogger wires the structured event logger shared by all services.
func WithServiceLogger(logger func(ctx context.Context, event string, fields map[string]any)) Option {
	return func(deps *containerDeps) {
		deps.logger = logger
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides the Firestore
// registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	var deps containerDeps
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}

	svc, err := buildServices(reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, cfg config.Config, deps containerDeps) (Services, error) {
	var svc Services

	ledgerSvc, err := services.NewLedgerService(services.LedgerServiceDeps{
		Transactions: reg.Transactions(),
		Businesses:   reg.Businesses(),
		Clock:        time.Now,
		Logger:       deps.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build ledger service: %w", err)
	}
	svc.Ledger = ledgerSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      reg.Orders(),
		Counters:    reg.Counters(),
		UnitOfWork:  reg,
		RetryDelay:  cfg.Delivery.RetryDelay,
		MaxAttempts: cfg.Delivery.MaxAttempts,
		Clock:       time.Now,
		Events:      deps.orderEvents,
		Logger:      deps.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	pickupSvc, err := services.NewPickupService(services.PickupServiceDeps{
		Pickups:    reg.Pickups(),
		Businesses: reg.Businesses(),
		Ledger:     ledgerSvc,
		Counters:   reg.Counters(),
		UnitOfWork: reg,
		Clock:      time.Now,
		Events:     deps.pickupEvents,
		Logger:     deps.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pickup service: %w", err)
	}
	svc.Pickups = pickupSvc

	settlementSvc, err := services.NewSettlementService(services.SettlementServiceDeps{
		Orders:       reg.Orders(),
		Transactions: reg.Transactions(),
		Releases:     reg.Releases(),
		JobLogs:      reg.JobLogs(),
		Ledger:       ledgerSvc,
		Notifier:     deps.notifier,
		Clock:        time.Now,
		Logger:       deps.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build settlement service: %w", err)
	}
	svc.Settlement = settlementSvc

	return svc, nil
}
