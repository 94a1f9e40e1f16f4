package main

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coop-ledger/internal/adapter/queue"
	"coop-ledger/internal/infrastructure/metrics"
)

func workerCommand(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "start the bulk import worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openDB(); err != nil {
				return err
			}
			if err := a.openRedis(); err != nil {
				return err
			}
			defer a.close()
			return a.work(metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9091", "address serving the worker's /metrics, empty to disable")
	return cmd
}

func (a *app) work(metricsAddr string) error {
	uc := a.usecases()
	m := metrics.New()

	if metricsAddr != "" {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.GET("/metrics", m.Handler())
		go func() {
			if err := e.Start(metricsAddr); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				logrus.WithError(err).Error("worker metrics listener stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = e.Shutdown(ctx)
		}()
	}

	mux := asynq.NewServeMux()
	queue.NewHandler(uc.importer, m).Register(mux)

	srv := queue.NewServer(a.cfg.Redis().Asynq(), a.cfg.ImportQueue)
	logrus.WithField("queue", a.cfg.ImportQueue).Info("worker: started")
	// Run blocks until SIGINT or SIGTERM
	return srv.Run(mux)
}
