package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/db/models"
	"github.com/storelinehq/storeline-backend/pkg/enums"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	results  []publishResult
}

func (f *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) > 0 {
		next := f.results[0]
		f.results = f.results[1:]
		return next
	}
	return fakePublishResult{}
}

func outboxEvent(eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"hello":"world"}`),
		AttemptCount:  attempts,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.PollInterval = time.Millisecond
	cfg.Outbox.MaxAttempts = 3

	registry := tenant.NewRegistryFromTenants(&tenant.Tenant{ID: "acme", Currency: "INR"})
	service, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logger.New(logger.Options{Output: io.Discard}),
		Registry:  registry,
		Publisher: pub,
		Repositories: func(tn *tenant.Tenant) outboxRepository {
			return repo
		},
	})
	require.NoError(t, err)
	return service
}

func TestDrainPublishesAndMarks(t *testing.T) {
	first := outboxEvent(enums.EventOrderPlaced, 0)
	second := outboxEvent(enums.EventOrderPaid, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	total := service.drainAll(context.Background())
	assert.Equal(t, 2, total)
	require.Len(t, pub.messages, 2)
	assert.Empty(t, repo.failed)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, repo.published)

	msg := pub.messages[0]
	assert.Equal(t, "acme", msg.Attributes["tenant_id"])
	assert.Equal(t, string(enums.EventOrderPlaced), msg.Attributes["event_type"])
	assert.Equal(t, first.ID.String(), msg.Attributes["event_id"])
	assert.Equal(t, first.AggregateID.String(), msg.Attributes["aggregate_id"])
	assert.JSONEq(t, `{"hello":"world"}`, string(msg.Data))
}

func TestDrainContinuesAfterPublishFailure(t *testing.T) {
	first := outboxEvent(enums.EventOrderPlaced, 0)
	second := outboxEvent(enums.EventOrderPlaced, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub)

	total := service.drainAll(context.Background())
	assert.Equal(t, 1, total)
	assert.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, repo.published)
}

func TestDrainSkipsExhaustedEvents(t *testing.T) {
	exhausted := outboxEvent(enums.EventOrderPlaced, 3)
	fresh := outboxEvent(enums.EventOrderCancelled, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{exhausted, fresh}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	total := service.drainAll(context.Background())
	assert.Equal(t, 1, total)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, fresh.ID.String(), pub.messages[0].Attributes["event_id"])
	assert.Equal(t, []uuid.UUID{fresh.ID}, repo.published)
	assert.Empty(t, repo.failed)
}
