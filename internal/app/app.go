package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/jamilahmedansari/letterdesk/internal/config"
	"github.com/jamilahmedansari/letterdesk/internal/usecase"
	"github.com/jamilahmedansari/letterdesk/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewDesk,
		newHTTPServer,
		newGenerationProcessor,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Desk   *Desk
	Queue  *worker.Queue
	Config *config.Config
	Logger *slog.Logger
}

func newGenerationProcessor(p workerParams) *worker.Processor {
	return worker.NewProcessor(
		p.Desk,
		p.Queue,
		p.Config.WorkerPoolSize,
		p.Config.SweepInterval,
		p.Config.MaxGeneratingDuration,
		p.Logger,
	)
}

// notificationWaiter is satisfied by the coordinator; it lets shutdown flush pending notifications.
type notificationWaiter interface {
	Wait()
}

type lifecycleParams struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Shutdowner  fx.Shutdowner
	Logger      *slog.Logger
	Server      *http.Server
	Worker      *worker.Processor
	Coordinator *usecase.AdmissionCoordinator `optional:"true"`
	Config      *config.Config
}

func registerLifecycle(p lifecycleParams) {
	var notifications notificationWaiter
	if p.Coordinator != nil {
		notifications = p.Coordinator
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting letterdesk", slog.String("addr", p.Server.Addr))
			p.Worker.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			// Submissions must stop before the queue closes.
			serverErr := p.Server.Shutdown(shutdownCtx)
			p.Worker.Stop(shutdownCtx)
			if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
				return serverErr
			}
			if notifications != nil {
				waitFor(shutdownCtx, notifications, p.Logger)
			}
			p.Logger.Info("letterdesk stopped")
			return nil
		},
	})
}

func waitFor(ctx context.Context, w notificationWaiter, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("shutdown deadline reached with notifications in flight")
	}
}
