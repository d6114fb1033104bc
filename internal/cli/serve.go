package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/article"
	"folio/internal/cache"
	"folio/internal/category"
	"folio/internal/database"
	"folio/internal/handlers"
	"folio/internal/identity"
	"folio/internal/metrics"
	"folio/internal/middleware"
	"folio/internal/render"
	"folio/internal/router"
	"folio/internal/session"
	"folio/internal/storage"
	"folio/internal/store"
)

// Login and registration attempts allowed per client IP and window.
const (
	authAttempts = 10
	authWindow   = time.Minute
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server. Pending migrations are applied on start; in
development the starter account and categories are seeded as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// mutationObservers fans a mutation outcome out to several observers.
type mutationObservers []interface {
	ObserveMutation(entity, op string, err error)
}

func (obs mutationObservers) ObserveMutation(entity, op string, err error) {
	for _, o := range obs {
		o.ObserveMutation(entity, op, err)
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("connect to valkey: %w", err)
	}
	defer valkeyClient.Close()

	// Session cookies are Secure everywhere except development.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies, cfg.SessionTTL)

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("initialize template renderer: %w", err)
	}

	m := metrics.New()
	pageCache := cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)
	observer := mutationObservers{m, pageCache}

	categoryStore := store.NewCategoryStore(db)
	categories := category.NewManager(categoryStore, observer)
	articles := article.NewService(store.NewArticleStore(db), categoryStore, observer)
	provider := identity.NewLocal(store.NewUserStore(db))

	// Object storage is optional; without it the upload field is hidden.
	var images handlers.ImageStore
	if cfg.S3Configured() {
		client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			return fmt.Errorf("initialize s3 storage: %w", err)
		}
		if client != nil {
			images = client
		}
		slog.Info("s3 storage configured", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, image uploads disabled")
	}

	limiter := middleware.NewRateLimiter(authAttempts, authWindow)
	defer limiter.Stop()

	r := router.New(router.Config{
		Sessions:      sessionStore,
		Metrics:       m,
		SecureCookies: secureCookies,
		AuthLimiter:   limiter,
	}, router.Handlers{
		Auth:       handlers.NewAuth(renderer, sessionStore, provider),
		Public:     handlers.NewPublic(renderer, articles, categories, pageCache),
		Articles:   handlers.NewArticles(renderer, articles, categories, images, pageCache),
		Categories: handlers.NewCategories(renderer, categories),
		API:        handlers.NewAPI(articles, categories),
		NotFound:   handlers.NotFound(renderer),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, failed := <-errCh:
		if failed {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
