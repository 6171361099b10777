// Package nats implements the message queue port using NATS JetStream.
// Booking events are published after commit; consumers get the publisher's
// request id and tenant bound on their context.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/FerDeGante/Eventora-sub000/internal/config"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/logger"
	"github.com/FerDeGante/Eventora-sub000/internal/port/messagequeue"
)

const (
	headerRequestID  = "X-Request-ID"
	headerTenantID   = "X-Tenant-ID"
	headerRetryCount = "Retry-Count"

	maxRetries = 3
	retryDelay = 2 * time.Second
)

var _ messagequeue.Queue = (*Queue)(nil)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
}

// Connect establishes a connection to NATS and ensures the stream exists.
func Connect(ctx context.Context, cfg config.NATS) (*Queue, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("eventora"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Dead-letter subjects (<subject>.dlq) fall under the same wildcards.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{"reservations.>", "packages.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", cfg.URL, "stream", cfg.Stream)
	return &Queue{nc: nc, js: js, stream: cfg.Stream}, nil
}

// JetStream exposes the JetStream context, for the KV-backed shared cache.
func (q *Queue) JetStream() jetstream.JetStream { return q.js }

// Publish validates data against the subject's schema and sends it with
// the caller's request id and tenant as headers.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	if tid := tenant.IDFromContext(ctx); tid != "" {
		msg.Header.Set(headerTenantID, tid)
	}
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a durable-less consumer for subject. Messages that
// fail validation go straight to <subject>.dlq; messages whose handler
// keeps failing go there after maxRetries deliveries.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.stream, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handle(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

func (q *Queue) handle(msg jetstream.Msg, handler messagequeue.Handler) {
	ctx := messageContext(msg.Headers())

	if err := messagequeue.Validate(msg.Subject(), msg.Data()); err != nil {
		slog.WarnContext(ctx, "invalid message", "subject", msg.Subject(), "error", err)
		q.moveToDLQ(ctx, msg)
		return
	}

	err := handler(ctx, msg.Subject(), msg.Data())
	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			slog.ErrorContext(ctx, "nats ack failed", "error", ackErr)
		}
		return
	}

	attempts := retryCount(msg.Headers())
	if md, mdErr := msg.Metadata(); mdErr == nil {
		attempts = max(attempts, int(md.NumDelivered))
	}
	slog.ErrorContext(ctx, "message handler failed", "subject", msg.Subject(), "attempt", attempts, "error", err)
	if attempts >= maxRetries {
		q.moveToDLQ(ctx, msg)
		return
	}
	if nakErr := msg.NakWithDelay(retryDelay); nakErr != nil {
		slog.ErrorContext(ctx, "nats nak failed", "error", nakErr)
	}
}

func (q *Queue) moveToDLQ(ctx context.Context, msg jetstream.Msg) {
	dlq := &nats.Msg{Subject: msg.Subject() + ".dlq", Data: msg.Data(), Header: nats.Header{}}
	for k, v := range msg.Headers() {
		dlq.Header[k] = v
	}
	if _, err := q.js.PublishMsg(ctx, dlq); err != nil {
		slog.ErrorContext(ctx, "dlq publish failed", "subject", dlq.Subject, "error", err)
		_ = msg.Nak()
		return
	}
	if err := msg.Ack(); err != nil {
		slog.ErrorContext(ctx, "nats ack failed", "error", err)
	}
}

// messageContext rebuilds the publisher's request id and tenant.
func messageContext(h nats.Header) context.Context {
	ctx := context.Background()
	if h == nil {
		return ctx
	}
	if id := h.Get(headerRequestID); id != "" {
		ctx = logger.WithRequestID(ctx, id)
	}
	if tid := h.Get(headerTenantID); tid != "" {
		if bound, err := tenant.Bind(ctx, tenant.Context{TenantID: tid, RequestID: h.Get(headerRequestID)}); err == nil {
			ctx = bound
		}
	}
	return ctx
}

func retryCount(h nats.Header) int {
	if h == nil {
		return 0
	}
	n, _ := strconv.Atoi(h.Get(headerRetryCount))
	return n
}

// KeyValue creates or opens a KV bucket with the given ttl.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket, TTL: ttl})
	if err != nil {
		return nil, fmt.Errorf("nats kv %s: %w", bucket, err)
	}
	return kv, nil
}

// Drain gracefully drains subscriptions and closes the connection.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc.IsConnected()
}
