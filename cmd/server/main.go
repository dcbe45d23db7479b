package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/analytics-status/internal/config"
	"github.com/janisto/analytics-status/internal/http/health"
	"github.com/janisto/analytics-status/internal/http/v1/analytics"
	"github.com/janisto/analytics-status/internal/platform/capture"
	"github.com/janisto/analytics-status/internal/platform/database"
	"github.com/janisto/analytics-status/internal/platform/logging"
	"github.com/janisto/analytics-status/internal/platform/metrics"
	appmiddleware "github.com/janisto/analytics-status/internal/platform/middleware"
	"github.com/janisto/analytics-status/internal/platform/respond"
	"github.com/janisto/analytics-status/internal/routes"
	"github.com/janisto/analytics-status/internal/service/routemetric"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const (
	docsPath            = "/api-docs"
	shutdownTimeout     = 10 * time.Second
	captureDrainTimeout = 5 * time.Second
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx := context.Background()
	defer func() {
		if err := logging.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
			logging.LogError(ctx, "logger sync error", err)
		}
	}()
	if err := logging.Err(); err != nil {
		logging.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(ctx, "config load failed", err)
		return 1
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logging.LogWarn(ctx, "invalid log level, keeping default", zap.String("level", cfg.LogLevel))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.LogError(context.Background(), "server failed", err)
		return 1
	}
	logging.LogInfo(context.Background(), "server exited")
	return 0
}

// run opens the optional dependencies, serves until ctx is done and then
// shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	var deps routes.Deps
	deps.ReadyTimeout = cfg.ReadyTimeout

	var c *capture.Capture
	if cfg.Database.Enabled() {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer closeDB(db)
		deps.Database = db

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		store := routemetric.NewPostgresStore(db)
		deps.RouteMetrics = store
		if cfg.Capture.Enabled {
			c = capture.New(store, cfg.Capture.QueueSize)
			// Runs before closeDB so queued metrics are written first.
			defer closeCapture(c)
		}
	}

	var m *metrics.HTTP
	if cfg.MetricsEnabled {
		var err error
		if m, err = metrics.New(); err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		deps.Metrics = m.Handler()
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return serve(ctx, newServer(newRouter(deps, m, c)), ln)
}

func closeCapture(c *capture.Capture) {
	ctx, cancel := context.WithTimeout(context.Background(), captureDrainTimeout)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		logging.LogWarn(ctx, "route metric queue not drained", zap.Error(err))
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.LogError(context.Background(), "database close error", err)
	}
}

// newRouter builds the full middleware stack and route set. m and c may be nil.
func newRouter(deps routes.Deps, m *metrics.HTTP, c *capture.Capture) chi.Router {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		appmiddleware.Security(docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For / X-Real-IP; deploy behind a trusted proxy only.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<20),
		logging.RequestLogger(),
		logging.AccessLogger(),
	)
	if m != nil {
		router.Use(m.Middleware())
	}
	if c != nil {
		router.Use(c.Middleware())
	}
	router.Use(respond.Recoverer())

	cfg := huma.DefaultConfig("Analytics Status API", Version)
	cfg.DocsPath = docsPath
	api := humachi.New(router, cfg)
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)

	routes.Register(api, router, deps)
	return router
}

// addCBORContent documents application/cbor next to application/json for
// operations that negotiate their format.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if jsonOnly, _ := op.Metadata[analytics.JSONOnly].(bool); jsonOnly {
		return
	}
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp == nil || resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

func newServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
}

// serve runs srv on ln until ctx is cancelled or serving fails.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	listenErr := make(chan error, 1)
	go func() {
		logging.LogInfo(ctx, "server listening", zap.String("addr", ln.Addr().String()), zap.String("version", Version))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logging.LogInfo(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

var _ health.Pinger = (*sql.DB)(nil)
