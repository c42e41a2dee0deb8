package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lalith-99/medroster/internal/api"
	"github.com/lalith-99/medroster/internal/lock"
	"github.com/lalith-99/medroster/internal/middleware"
	"github.com/lalith-99/medroster/internal/notify"
	"github.com/lalith-99/medroster/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the reconciliation worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return serve(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	if migrate {
		applied, err := a.db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	buses := []notify.Bus{notify.NewRedisBus(rdb)}
	if a.cfg.AMQPURL != "" {
		mq, err := notify.NewAMQPBus(a.cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect to amqp: %w", err)
		}
		defer mq.Close()
		buses = append(buses, mq)
	}
	svc := a.service(notify.NewFanout(logger, buses...))

	hub := notify.NewHub(logger)
	go func() {
		if err := hub.Run(ctx, rdb); err != nil {
			logger.Error("websocket hub stopped", zap.Error(err))
		}
	}()

	reconciler := worker.NewReconciler(logger, lock.NewRedisLocker(rdb, logger), svc, a.cfg.ReconcileCron)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	redisHealth := api.HealthFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	router := api.NewRouter(api.RouterDeps{
		Service:   svc,
		Tenants:   a.stores.Tenants,
		Hub:       hub,
		JWTSecret: a.cfg.JWTSecret,
		Logger:    logger,
		Limiter:   middleware.NewTenantRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
		Checks: map[string]api.HealthChecker{
			"postgres": a.db,
			"redis":    redisHealth,
		},
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting medroster",
			zap.String("port", a.cfg.Port),
			zap.String("env", a.cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
