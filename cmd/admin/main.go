package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-engsite/internal/auth"
	"go-engsite/internal/bootstrap"
	"go-engsite/internal/config"
	"go-engsite/internal/content"
	"go-engsite/internal/templating"

	"golang.org/x/sync/errgroup"
)

// pinger reports backend reachability on the dashboard.
type pinger interface {
	Ping(ctx context.Context) error
}

// adminApplication holds the application-wide dependencies for the admin server.
type adminApplication struct {
	logger    *slog.Logger
	siteTitle string
	staticDir string
	site      *content.Site
	auth      *auth.Authenticator
	engine    *templating.Engine
	backend   pinger // nil when running local-only
	secure    bool
}

func main() {
	configFile := flag.String("config", "", "Path to the config file (default ./engsite.yaml)")
	envFile := flag.String("env", "", "Path to the .env file (default ./.env)")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, auth.ErrNoUsers) {
			logger.Error("No admin users configured; add admin.users with hashes from `site-cli hash-password`")
		} else {
			logger.Error("Admin server stopped with error", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("Admin server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	authenticator, err := auth.New(cfg.Admin.Users, auth.Options{
		TTL:          cfg.Admin.SessionTTL,
		SecureCookie: cfg.Admin.SecureCookie,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	env, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	engine, err := templating.NewEngine(templating.AdminSet)
	if err != nil {
		return err
	}
	logger.Info("Admin UI templates parsed", "pages", engine.Pages())

	app := &adminApplication{
		logger:    logger,
		siteTitle: cfg.Site.Title,
		staticDir: cfg.Admin.StaticDir,
		site:      env.Site,
		auth:      authenticator,
		engine:    engine,
		secure:    cfg.Admin.SecureCookie,
	}
	if env.Remote != nil {
		app.backend = env.Remote
	}

	srv := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting admin server", "address", cfg.Admin.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down admin server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
