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

	"go-engsite/internal/bootstrap"
	"go-engsite/internal/bus"
	"go-engsite/internal/config"
	"go-engsite/internal/livesync"
	"go-engsite/internal/payment"
	"go-engsite/internal/templating"

	"golang.org/x/sync/errgroup"
)

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
		logger.Error("Site server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Site server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	env, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	engine, err := templating.NewEngine(templating.SiteSet)
	if err != nil {
		return err
	}

	var provider payment.Provider
	if cfg.Payment.Enabled {
		provider = payment.NewHTTPProvider(cfg.Payment.Endpoint, cfg.Payment.APIKey, cfg.Payment.Timeout)
	}
	payments := payment.NewService(provider, env.Site.Payments, logger)

	app := newApplication(cfg, logger, env.Site, engine, env.Bus)
	app.payments = payment.NewHandler(payments, cfg.Payment.WebhookSecret, logger)

	g, gctx := errgroup.WithContext(ctx)

	// Initial fetches finish before the listener opens.
	if err := livesync.StartAll(gctx, app.lists.runners()...); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		livesync.WaitAll(app.lists.runners()...)
		return nil
	})

	if cfg.Sync.Watch {
		watcher := bus.NewFileWatcher(env.Store.GetBasePath(), env.Bus, logger)
		g.Go(func() error { return watcher.Run(gctx) })
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("Starting site server", "address", cfg.Server.Addr, "remote", env.Remote != nil, "payments", payments.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down site server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
