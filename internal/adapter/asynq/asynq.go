// Package asynq implements the reminder port on hibiken/asynq: reminders
// are Redis-backed tasks processed at their fire time by a worker that
// binds the task's tenant before touching storage.
package asynq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/FerDeGante/Eventora-sub000/internal/config"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/port/reminder"
)

// TypeReminderSend is the asynq task type of appointment reminders.
const TypeReminderSend = "reminder:send"

func redisOpt(cfg config.Redis) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

func taskID(reservationID string) string {
	return "reminder:" + reservationID
}

func newReminderTask(r reminder.Reminder, fireAt time.Time, queue string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminderSend, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.Queue(queue),
		asynq.TaskID(taskID(r.ReservationID)),
		asynq.MaxRetry(5),
	}
	return task, opts, nil
}

// Scheduler enqueues reminder tasks.
type Scheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

var _ reminder.Scheduler = (*Scheduler)(nil)

// NewScheduler connects a Scheduler to Redis.
func NewScheduler(cfg config.Redis, queue string) *Scheduler {
	opt := redisOpt(cfg)
	return &Scheduler{client: asynq.NewClient(opt), inspector: asynq.NewInspector(opt), queue: queue}
}

// Schedule enqueues r at fireAt, replacing a pending reminder of the same
// reservation.
func (s *Scheduler) Schedule(ctx context.Context, r reminder.Reminder, fireAt time.Time) error {
	task, opts, err := newReminderTask(r, fireAt, s.queue)
	if err != nil {
		return fmt.Errorf("encode reminder %s: %w", r.ReservationID, err)
	}
	_, err = s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		if err := s.Cancel(ctx, r.ReservationID); err != nil {
			return err
		}
		_, err = s.client.EnqueueContext(ctx, task, opts...)
	}
	if err != nil {
		return fmt.Errorf("enqueue reminder %s: %w", r.ReservationID, err)
	}
	return nil
}

func (s *Scheduler) Cancel(_ context.Context, reservationID string) error {
	err := s.inspector.DeleteTask(s.queue, taskID(reservationID))
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		return fmt.Errorf("cancel reminder %s: %w", reservationID, err)
	}
	return nil
}

// Close releases the Redis connections.
func (s *Scheduler) Close() error {
	return errors.Join(s.client.Close(), s.inspector.Close())
}

// Worker processes due reminders.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewWorker builds a worker dispatching reminders to h.
func NewWorker(cfg config.Redis, booking config.Booking, h reminder.Handler, logger *slog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: booking.WorkerConcurrency,
		Queues:      map[string]int{booking.ReminderQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.ErrorContext(ctx, "reminder task failed", "type", task.Type(), "error", err)
		}),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReminderSend, handleReminderTask(h))
	return &Worker{srv: srv, mux: mux}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// handleReminderTask decodes the payload and runs h under the reminder's
// tenant. Undecodable payloads are not retried.
func handleReminderTask(h reminder.Handler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var r reminder.Reminder
		if err := json.Unmarshal(task.Payload(), &r); err != nil {
			return fmt.Errorf("decode reminder: %v: %w", err, asynq.SkipRetry)
		}
		ctx, err := tenant.Bind(ctx, tenant.Context{TenantID: r.TenantID, ActorID: "reminder-worker"})
		if err != nil {
			return fmt.Errorf("reminder %s: %v: %w", r.ReservationID, err, asynq.SkipRetry)
		}
		return h.HandleReminder(ctx, r)
	}
}

// Ping checks the reminder queue's Redis.
func Ping(ctx context.Context, cfg config.Redis) error {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	defer func() { _ = client.Close() }()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return nil
}
