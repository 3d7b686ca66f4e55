package main

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	"github.com/storelinehq/storeline-backend/pkg/outbox"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 2 * time.Second
	defaultMaxAttempts    = 8
	defaultPublishTimeout = 15 * time.Second
)

type outboxRepository interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.inner.Publish(ctx, msg)
}

// repositoryFactory builds the outbox repository bound to one tenant's
// database. Overridden in tests.
type repositoryFactory func(t *tenant.Tenant) outboxRepository

type ServiceParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	Registry     *tenant.Registry
	Publisher    publisher
	Repositories repositoryFactory
}

// Service drains unpublished outbox rows from every tenant database
// and pushes them onto the shared domain event topic. Rows that keep
// failing past the attempt cap are left in place for inspection.
type Service struct {
	cfg            *config.Config
	logg           *logger.Logger
	registry       *tenant.Registry
	pub            publisher
	repos          repositoryFactory
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Registry == nil {
		return nil, errors.New("tenant registry is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	repos := params.Repositories
	if repos == nil {
		repos = func(t *tenant.Tenant) outboxRepository {
			return outbox.NewRepository(t.DB.Gorm())
		}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poll := params.Config.Outbox.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:            params.Config,
		logg:           params.Logger,
		registry:       params.Registry,
		pub:            params.Publisher,
		repos:          repos,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		pollInterval:   poll,
		publishTimeout: defaultPublishTimeout,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed := s.drainAll(ctx)
		if processed > 0 {
			continue
		}

		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

// drainAll walks every tenant once and returns the number of events it
// published. A failing tenant is logged and skipped so the others keep
// draining.
func (s *Service) drainAll(ctx context.Context) int {
	total := 0
	for _, id := range s.registry.IDs() {
		t, err := s.registry.Resolve(id)
		if err != nil {
			continue
		}
		tctx := s.logg.WithTenantID(ctx, id)
		n, err := s.drainTenant(tctx, t)
		if err != nil {
			s.logg.Error(tctx, "outbox drain failed", err)
			continue
		}
		total += n
	}
	return total
}

func (s *Service) drainTenant(ctx context.Context, t *tenant.Tenant) (int, error) {
	repo := s.repos(t)
	events, err := repo.FetchUnpublished(s.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range events {
		if event.AttemptCount >= s.maxAttempts {
			continue
		}

		if err := s.publish(ctx, t.ID, event); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "event_id", event.ID.String()), "publish failed", err)
			if markErr := repo.MarkFailed(event.ID, err); markErr != nil {
				return published, markErr
			}
			continue
		}

		if err := repo.MarkPublished(event.ID); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (s *Service) publish(ctx context.Context, tenantID string, event models.OutboxEvent) error {
	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"tenant_id":      tenantID,
			"event_id":       event.ID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		},
	}

	result := s.pub.Publish(ctx, msg)
	waitCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	_, err := result.Get(waitCtx)
	return err
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
