package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	httpadp "coop-ledger/internal/adapter/http"
	"coop-ledger/internal/adapter/middleware"
	"coop-ledger/internal/adapter/queue"
	"coop-ledger/internal/infrastructure/metrics"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openDB(); err != nil {
				return err
			}
			if err := a.openRedis(); err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uc := a.usecases()
	m := metrics.New()

	asynqClient := a.asynqClient()
	defer asynqClient.Close()

	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	health := httpadp.NewHandler(map[string]httpadp.Pinger{
		"mysql": httpadp.PingFunc(sqlDB.PingContext),
		"redis": httpadp.PingFunc(func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }),
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.RequestID(), echomw.Logger(), echomw.Recover(), m.Middleware())

	httpadp.Register(e, httpadp.Routes{
		Health:      health,
		Loans:       httpadp.NewLoanHandler(uc.loans, uc.reports),
		Savings:     httpadp.NewSavingsHandler(uc.savings, uc.reports, uc.importer, queue.NewClient(asynqClient, a.cfg.ImportQueue), m),
		Metrics:     m.Handler(),
		Idempotency: middleware.Idempotency(a.redis, a.cfg.IdempotencyTTL()),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.AppPort
		logrus.WithField("addr", addr).Info("http: listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("http: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
