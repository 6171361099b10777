package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfasynq "github.com/FerDeGante/Eventora-sub000/internal/adapter/asynq"
	cfhttp "github.com/FerDeGante/Eventora-sub000/internal/adapter/http"
	cfnats "github.com/FerDeGante/Eventora-sub000/internal/adapter/nats"
	"github.com/FerDeGante/Eventora-sub000/internal/adapter/natskv"
	cfotel "github.com/FerDeGante/Eventora-sub000/internal/adapter/otel"
	"github.com/FerDeGante/Eventora-sub000/internal/adapter/ristretto"
	_ "github.com/FerDeGante/Eventora-sub000/internal/adapter/discord"
	_ "github.com/FerDeGante/Eventora-sub000/internal/adapter/email"
	_ "github.com/FerDeGante/Eventora-sub000/internal/adapter/slack"
	"github.com/FerDeGante/Eventora-sub000/internal/adapter/tiered"
	"github.com/FerDeGante/Eventora-sub000/internal/config"
	"github.com/FerDeGante/Eventora-sub000/internal/logger"
	"github.com/FerDeGante/Eventora-sub000/internal/middleware"
	"github.com/FerDeGante/Eventora-sub000/internal/port/cache"
	"github.com/FerDeGante/Eventora-sub000/internal/port/messagequeue"
	"github.com/FerDeGante/Eventora-sub000/internal/port/notifier"
	"github.com/FerDeGante/Eventora-sub000/internal/resilience"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
	"github.com/FerDeGante/Eventora-sub000/internal/service"
)

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		err = runAdmin(os.Args[2:])
	} else {
		err = run()
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOTel, err := cfotel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Storage ---

	st, err := openStorage(ctx, cfg,
		scope.WithPayloadTenant(cfg.Tenancy.AllowPayloadTenant),
		scope.WithLogger(log),
		scope.WithAuditFailureHook(metrics.AuditFailed),
	)
	if err != nil {
		return err
	}
	defer st.close()
	checks := map[string]func(context.Context) error{"database": st.store.Ping}

	// --- Messaging and cache ---

	l1, err := ristretto.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var appCache cache.Cache = l1

	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		q, err := cfnats.Connect(ctx, cfg.NATS)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Drain() }()
		queue = q
		checks["nats"] = func(context.Context) error {
			if !q.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}

		if cfg.Cache.SharedBucket != "" {
			kv, err := q.KeyValue(ctx, cfg.Cache.SharedBucket, cfg.Cache.SharedTTL)
			if err != nil {
				return fmt.Errorf("shared cache: %w", err)
			}
			appCache = tiered.New(l1, natskv.New(kv), cfg.Cache.TenantTTL, log)
		}
	}

	// --- Services ---

	events := service.NewEventDispatcher(queue, resilience.NewBreaker("events", cfg.Breaker, log))
	events.SetMetrics(metrics)

	tenants := service.NewTenantService(st.store, appCache, cfg.Cache.TenantTTL)
	availabilitySvc := service.NewAvailabilityService(st.store, appCache, cfg.Cache.TemplateTTL)
	availabilitySvc.SetMetrics(metrics)
	reservations := service.NewReservationService(st.store, events)
	reservations.SetMetrics(metrics)
	packages := service.NewPackageService(st.store, events)
	packages.SetMetrics(metrics)

	if cfg.Redis.Addr != "" {
		scheduler := cfasynq.NewScheduler(cfg.Redis, cfg.Booking.ReminderQueue)
		defer func() { _ = scheduler.Close() }()
		reservations.SetReminders(scheduler, cfg.Booking.ReminderLead)

		worker := cfasynq.NewWorker(cfg.Redis, cfg.Booking, service.NewReminderService(st.store, events), log)
		if err := worker.Start(); err != nil {
			return fmt.Errorf("reminder worker: %w", err)
		}
		defer worker.Shutdown()
		checks["redis"] = func(ctx context.Context) error { return cfasynq.Ping(ctx, cfg.Redis) }
	}

	stopNotifications, err := startNotifications(ctx, cfg.Notify, queue)
	if err != nil {
		return err
	}
	defer stopNotifications()

	// --- HTTP ---

	handlers := &cfhttp.Handlers{
		Tenants:      tenants,
		Catalog:      service.NewCatalogService(st.store),
		Availability: availabilitySvc,
		Reservations: reservations,
		Packages:     packages,
		Audit:        st.audit,
		Checks:       checks,
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfotel.HTTPMiddleware(cfg.OTel.ServiceName))

	cfhttp.MountRoutes(r, handlers, middleware.Tenant(tenants),
		middleware.Network,
		limiter.Handler,
		middleware.Idempotency(appCache, cfg.Server.IdempotencyTTL),
	)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// staffNotifiers builds a notifier for every configured channel.
func staffNotifiers(cfg config.Notify) ([]notifier.Notifier, error) {
	channels := map[string]map[string]string{}
	if cfg.SlackWebhookURL != "" {
		channels["slack"] = map[string]string{"webhook_url": cfg.SlackWebhookURL}
	}
	if cfg.DiscordWebhookURL != "" {
		channels["discord"] = map[string]string{"webhook_url": cfg.DiscordWebhookURL}
	}
	if cfg.SMTP.Host != "" {
		channels["email"] = map[string]string{
			"host":     cfg.SMTP.Host,
			"port":     strconv.Itoa(cfg.SMTP.Port),
			"from":     cfg.SMTP.From,
			"password": cfg.SMTP.Password,
			"to":       cfg.SMTP.To,
		}
	}

	var out []notifier.Notifier
	for _, name := range notifier.Available() {
		settings, ok := channels[name]
		if !ok {
			continue
		}
		n, err := notifier.New(name, settings)
		if err != nil {
			return nil, fmt.Errorf("notifier %s: %w", name, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// startNotifications forwards booking events to the staff channels. It
// needs the event bus; without one it does nothing.
func startNotifications(ctx context.Context, cfg config.Notify, queue messagequeue.Queue) (func(), error) {
	noop := func() {}
	notifiers, err := staffNotifiers(cfg)
	if err != nil {
		return nil, err
	}
	if len(notifiers) == 0 {
		return noop, nil
	}
	if queue == nil {
		slog.Warn("staff notifications configured without nats; disabled")
		return noop, nil
	}
	cancel, err := service.NewNotificationService(notifiers).Subscribe(ctx, queue)
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	names := make([]string, 0, len(notifiers))
	for _, n := range notifiers {
		names = append(names, n.Name())
	}
	slog.Info("staff notifications enabled", "channels", names)
	return cancel, nil
}
