package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/auth"
	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/user"
	"github.com/xenking/furniture-store/internal/httpapi"
	"github.com/xenking/furniture-store/internal/snapshot"
	"github.com/xenking/furniture-store/pkg/health"
	"github.com/xenking/furniture-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Snapshot store: PostgreSQL when a database URL is configured, a
	// compressed file otherwise.
	var store snapshot.Store
	if cfg.DatabaseURL != "" {
		pool, err := snapshot.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := snapshot.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		store = snapshot.NewPGStore(pool)
		lg.Info("Using postgres snapshot store")
	} else {
		store = snapshot.NewFileStore(cfg.SnapshotPath)
		lg.Info("Using file snapshot store", zap.String("path", cfg.SnapshotPath))
	}

	// In-memory registries, restored from the last snapshot.
	cat := catalog.New()
	users := user.NewRegistry(auth.NewHMACHasher([]byte(cfg.PasswordPepper)))
	orders := order.NewHistory()
	carts := cart.NewRegistry()

	snap, err := store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load snapshot")
	}
	snapshot.Restore(snap, cat, users, orders, carts)
	lg.Info("State restored",
		zap.Int("furniture", cat.Len()),
		zap.Int("users", len(snap.Users)),
		zap.Int("orders", len(snap.Orders)),
	)

	saver := snapshot.NewSaver(store, cat, users, orders, carts)
	api := httpapi.NewHandler(cat, carts, users, orders, saver)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api.Routes())

	handler := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)
	handler = otelhttp.NewHandler(handler, "furniture-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           handler,
		BaseContext: func(net.Listener) context.Context {
			// Request contexts inherit the app logger so even the outermost
			// middleware logs through zctx, but not the run context's
			// cancellation: in-flight requests must survive the drain.
			return context.WithoutCancel(ctx)
		},
	}
	healthSvc.SetReady(true)

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

		// Final snapshot so nothing committed since the last save is lost.
		if err := saver.Persist(shutdownCtx); err != nil {
			lg.Error("Final snapshot failed", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
