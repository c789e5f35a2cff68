package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/repairdesk/internal/artifact"
	"github.com/xenking/repairdesk/internal/document"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/coupon"
	"github.com/xenking/repairdesk/internal/domain/order"
	"github.com/xenking/repairdesk/internal/domain/receipt"
	"github.com/xenking/repairdesk/internal/handler"
	"github.com/xenking/repairdesk/pkg/health"
	"github.com/xenking/repairdesk/pkg/httpmiddleware"
)

// Server is the assembled HTTP surface of the application.
type Server struct {
	Handler http.Handler
	Health  *health.Health
}

// NewServer builds the services on top of backend and mounts them, together
// with the health endpoints, on a router. Health checks are registered but
// not started.
func NewServer(
	ctx context.Context,
	lg *zap.Logger,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	cfg *Config,
	backend *Backend,
) (*Server, error) {
	renderer, err := document.NewRenderer(document.Config{
		ShopName:    cfg.Documents.ShopName,
		ShopTagline: cfg.Documents.ShopTagline,
		Locale:      cfg.Documents.Locale,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create renderer")
	}
	documents := artifact.NewGenerator(backend.Artifacts, renderer)

	// Domain services.
	clients := client.NewService(backend.Clients)
	ledger := coupon.NewLedger(backend.Coupons, backend.Clients)
	orderService, err := order.NewService(backend.Orders, backend.Clients, ledger, documents,
		order.WithConflictRetries(cfg.Orders.ConflictRetries),
		order.WithTracerProvider(tp),
		order.WithMeterProvider(mp),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}
	receiptService := receipt.NewService(backend.Receipts, orderService, backend.Clients, documents)

	healthSvc := health.New()
	for _, c := range backend.checks {
		healthSvc.Register(c)
	}
	healthSvc.Register(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Func: health.GoroutineCountCheck(10000),
	})

	h := handler.New(
		handler.Config{RequestTimeout: cfg.Orders.RequestTimeout},
		clients,
		orderService,
		ledger,
		receiptService,
		documents,
		handler.NewAuthenticator(backend.APIKeys, []byte(cfg.APIKeyPepper)),
	)

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument("repairdesk-api", tp, mp),
		httpmiddleware.LogRequests(),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Route("/api", func(r chi.Router) {
		r.Use(httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}))
		h.Routes(r)
	})

	return &Server{Handler: r, Health: healthSvc}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	backend, err := OpenBackend(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	srv, err := NewServer(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg, backend)
	if err != nil {
		return err
	}
	healthSvc := srv.Health
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Orders.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.Handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
