package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"parkly/pkg/config"
	"parkly/pkg/contracts"
	"parkly/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Worker is a long-running background task tied to the application
// lifetime. It must return when its context is cancelled.
type Worker func(ctx context.Context)

type Application struct {
	cfg            *config.Config
	server         *http.Server
	rateLimiter    *middleware.UserRateLimiter
	healthHandler  http.Handler
	appHttpHandler http.Handler
	webhookHandler http.Handler
	workers        []Worker
}

func NewApplication() *Application {
	return &Application{}
}

// SetApp wires the three route groups: health probes with minimal
// middleware, authenticated API routes with the full chain, and the
// gateway webhook with signature verification instead of bearer auth.
func (a *Application) SetApp(cfg *config.Config, appHandler, webhookHandler, healthHandler contracts.Handler) {
	a.cfg = cfg
	a.setHealthHandler(cfg, healthHandler)
	a.setAppHandler(cfg, appHandler)
	a.setWebhookHandler(cfg, webhookHandler)
	a.setAppServer()
}

// AddWorker registers a background task started alongside the HTTP
// server and stopped during graceful shutdown.
func (a *Application) AddWorker(w Worker) {
	a.workers = append(a.workers, w)
}

func (a *Application) setHealthHandler(cfg *config.Config, healthHandler contracts.Handler) {
	healthRouter := httprouter.New()
	healthHandler.RegisterRoutes(healthRouter)

	var h http.Handler = healthRouter
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	a.healthHandler = h
	cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(cfg *config.Config, appHandler contracts.Handler) {
	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	a.rateLimiter = middleware.NewUserRateLimiter(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		cfg.Log,
	)

	var h http.Handler = appRouter
	h = skipPath("/api/v1/notifications/stream", middleware.RequestTimeout(cfg.RequestTimeout))(h)
	h = middleware.UserRateLimit(a.rateLimiter)(h)
	h = middleware.Authentication(cfg.JWTSecret, cfg.Log)(h)
	h = middleware.ContentTypeValidation(cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	a.appHttpHandler = h
	cfg.Log.Info("Application endpoints configured with full security middleware stack")
}

// skipPath exempts one route from a middleware. The notification stream
// holds its response open indefinitely and cannot run under the request
// timeout's buffered writer.
func skipPath(path string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

func (a *Application) setWebhookHandler(cfg *config.Config, webhookHandler contracts.Handler) {
	if webhookHandler == nil {
		return
	}

	webhookRouter := httprouter.New()
	webhookHandler.RegisterRoutes(webhookRouter)

	var h http.Handler = webhookRouter
	h = middleware.RequestTimeout(cfg.RequestTimeout)(h)
	if cfg.GatewaySigningSecret != "" {
		h = middleware.GatewaySignatureVerification(cfg.GatewaySigningSecret, cfg.Log)(h)
		cfg.Log.Info("Gateway webhook signature verification enabled")
	}
	h = middleware.ContentTypeValidation(cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(cfg.Log)(h)
	h = middleware.Recovery(cfg.Log)(h)
	a.webhookHandler = h
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	if a.webhookHandler != nil {
		mux.Handle("/api/v1/payments/", a.webhookHandler)
	}
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var wg sync.WaitGroup
	for _, w := range a.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w(workerCtx)
		}(w)
	}

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown(cancelWorkers, &wg)
	}
}

func (a *Application) gracefulShutdown(cancelWorkers context.CancelFunc, wg *sync.WaitGroup) {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.cfg.Log.Info("Stopping background workers...")
	cancelWorkers()
	wg.Wait()
	a.rateLimiter.Stop()
	a.cfg.Log.Info("Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
