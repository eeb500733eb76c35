package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "UsagePrep/internal/domain/repository"
	"UsagePrep/internal/usecase"
	"UsagePrep/pkg/config"
	xhttp "UsagePrep/pkg/http"
	applogger "UsagePrep/pkg/logger"
	"UsagePrep/pkg/postgres"
)

// App ties the refresh scheduler, HTTP server and infrastructure clients
// into one lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scheduler  *usecase.RefreshScheduler
	httpServer *xhttp.Server
	pgClient   *postgres.Client
	publisher  domrepo.CyclePublisher
}

// New creates the application.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scheduler *usecase.RefreshScheduler,
	httpServer *xhttp.Server,
	pgClient *postgres.Client,
	publisher domrepo.CyclePublisher,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		scheduler:  scheduler,
		httpServer: httpServer,
		pgClient:   pgClient,
		publisher:  publisher,
	}
}

// Run starts the scheduler and HTTP server and blocks until interrupted.
// The scheduler finishes its in-flight cycle before shutdown proceeds.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := a.scheduler.Run(ctx); err != nil {
			a.log.Error("scheduler error", applogger.Error(err))
		}
	}()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	<-schedulerDone

	return a.shutdown()
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			a.log.Warn("postgres close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
