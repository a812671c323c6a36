package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/GameCatalog/pkg/kafka"
	"github.com/utafrali/GameCatalog/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturePublisher struct {
	topic string
	event *pkgkafka.Event
	err   error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.topic = topic
	p.event = event
	return p.err
}

type recordingReconciler struct {
	ids           []int64
	correlationID string
	err           error
}

func (r *recordingReconciler) Reconcile(ctx context.Context, id int64) error {
	r.ids = append(r.ids, id)
	r.correlationID = logger.CorrelationIDFromContext(ctx)
	return r.err
}

// ─── Producer ────────────────────────────────────────────────────────────────

func TestPublishReindexRequested(t *testing.T) {
	pub := &capturePublisher{}
	p := NewProducer(pub, testLogger())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, p.PublishReindexRequested(ctx, 42))

	assert.Equal(t, "catalog.game.reindex_requested", pub.topic)
	require.NotNil(t, pub.event)
	assert.Equal(t, TopicReindexRequested, pub.event.EventType)
	assert.Equal(t, "42", pub.event.AggregateID)
	assert.Equal(t, AggregateTypeGame, pub.event.AggregateType)
	assert.Equal(t, "corr-1", pub.event.CorrelationID)
	assert.JSONEq(t, `{"id":42}`, string(pub.event.Data))
}

func TestPublishReindexRequested_Error(t *testing.T) {
	p := NewProducer(&capturePublisher{err: errors.New("no brokers")}, testLogger())

	err := p.PublishReindexRequested(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

// ─── Consumer ────────────────────────────────────────────────────────────────

func newReindexEvent(t *testing.T, correlationID string, id int64) *pkgkafka.Event {
	t.Helper()
	ctx := logger.WithCorrelationID(context.Background(), correlationID)
	evt, err := pkgkafka.NewEvent(ctx, TopicReindexRequested, "x", AggregateTypeGame, SourceCatalogService, ReindexRequestedData{ID: id})
	require.NoError(t, err)
	return evt
}

func TestConsumer_ReindexRequested(t *testing.T) {
	rec := &recordingReconciler{}
	c := NewConsumer(rec, testLogger())

	evt := newReindexEvent(t, "corr-7", 9)
	require.NoError(t, c.Handle(context.Background(), evt))

	assert.Equal(t, []int64{9}, rec.ids)
	assert.Equal(t, "corr-7", rec.correlationID)
}

func TestConsumer_ReconcileErrorIsReturned(t *testing.T) {
	rec := &recordingReconciler{err: errors.New("es down")}
	c := NewConsumer(rec, testLogger())

	err := c.Handle(context.Background(), newReindexEvent(t, "", 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "es down")
}

func TestConsumer_InvalidID(t *testing.T) {
	rec := &recordingReconciler{}
	c := NewConsumer(rec, testLogger())

	require.NoError(t, c.Handle(context.Background(), newReindexEvent(t, "", 0)))
	assert.Empty(t, rec.ids)
}

func TestConsumer_BadPayload(t *testing.T) {
	c := NewConsumer(&recordingReconciler{}, testLogger())

	evt := &pkgkafka.Event{EventType: TopicReindexRequested, Data: []byte(`"nope"`)}
	assert.Error(t, c.Handle(context.Background(), evt))
}

func TestConsumer_UnknownEventIgnored(t *testing.T) {
	rec := &recordingReconciler{}
	c := NewConsumer(rec, testLogger())

	require.NoError(t, c.Handle(context.Background(), &pkgkafka.Event{EventType: "catalog.game.other"}))
	assert.Empty(t, rec.ids)
}

func TestConsumer_IdempotentReplay(t *testing.T) {
	rec := &recordingReconciler{}
	store := pkgkafka.NewMemoryIdempotencyStore(time.Hour)
	handler := pkgkafka.IdempotentHandler(store, NewConsumer(rec, testLogger()).Handle, testLogger())

	evt := newReindexEvent(t, "", 5)
	require.NoError(t, handler(context.Background(), evt))
	require.NoError(t, handler(context.Background(), evt))

	assert.Equal(t, []int64{5}, rec.ids)
}
