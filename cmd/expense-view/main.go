package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenseview/internal/amqp"
	"expenseview/internal/backend"
	"expenseview/internal/cache"
	"expenseview/internal/cli"
	"expenseview/internal/form"
	apphttp "expenseview/internal/http"
	applog "expenseview/internal/log"
	"expenseview/internal/synchronizer"
)

func main() {
	cfg, logger, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err.Error(), "backend", backendCfg.Type)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", applog.FieldError, err.Error())
			}
		}()
	}

	syncer := synchronizer.New(result.Backend, cache.NewState(), synchronizer.Options{
		Interval: cfg.RefreshInterval,
		Logger:   logger,
	})

	formOpts := []form.Option{form.WithLogger(logger)}

	// AMQP is optional: without a URL no events are published and
	// revalidation relies on the timer alone.
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(amqp.Config{
			URL:               cfg.AMQPURL,
			Exchange:          cfg.AMQPExchange,
			CreatedRoutingKey: cfg.AMQPCreatedRoutingKey,
			RefreshQueue:      cfg.AMQPRefreshQueue,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		formOpts = append(formOpts, form.WithEvents(amqpClient))
		logger.Info("AMQP enabled", "exchange", cfg.AMQPExchange, "refresh_queue", cfg.AMQPRefreshQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	forms := form.NewController(result.Backend, syncer, formOpts...)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:                ":" + cfg.Port,
		RefreshInterval:     cfg.RefreshInterval,
		SubmitRatePerMinute: cfg.SubmitRatePerMinute,
		Logger:              logger,
	}, syncer, forms)
	if err != nil {
		logger.Error("Failed to initialize HTTP server", applog.FieldError, err.Error())
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RemoteTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return syncer.Run(gctx)
	})

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeRefresh(gctx, func(ctx context.Context, msg *amqp.RefreshMessage) error {
				logger.DebugContext(ctx, "Refresh requested", applog.FieldOperation, applog.OpRefresh, "reason", msg.Reason)
				syncer.Refresh()
				return nil
			})
		})
	}

	g.Go(func() error {
		logger.Info("Starting expense view server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", backendCfg.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
