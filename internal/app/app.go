package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/orderdesk/internal/config"
	"github.com/polkiloo/orderdesk/internal/usecase"
	"github.com/polkiloo/orderdesk/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		newOrderDesk,
		newHTTPServer,
	),
	fx.Invoke(registerLifecycle),
)

type deskParams struct {
	fx.In

	Auth      *usecase.AuthUseCase
	Orders    *usecase.OrderUseCase
	Invoices  *usecase.InvoiceUseCase
	Reminders *usecase.ReminderUseCase
	Payments  *usecase.PaymentUseCase
	Settings  *usecase.SettingsUseCase
	Sweeper   *worker.ReminderSweeper
}

func newOrderDesk(p deskParams) *OrderDesk {
	return NewOrderDesk(p.Auth, p.Orders, p.Invoices, p.Reminders, p.Payments, p.Settings, p.Sweeper)
}

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

// AdminBootstrapper creates the first administrator account.
type AdminBootstrapper interface {
	EnsureAdmin(ctx context.Context, login, password string) (bool, error)
}

// Sweeper is the background reminder loop.
type Sweeper interface {
	Start(ctx context.Context)
	Stop()
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Sweeper    *worker.ReminderSweeper
	Auth       *usecase.AuthUseCase
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	attachLifecycle(p.Lifecycle, p.Shutdowner, p.Logger, p.Server, p.Sweeper, p.Auth, p.Config)
}

func attachLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *slog.Logger, server *http.Server, sweeper Sweeper, admins AdminBootstrapper, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			created, err := admins.EnsureAdmin(ctx, cfg.AdminLogin, cfg.AdminPassword)
			if err != nil {
				return err
			}
			if created {
				logger.Info("bootstrap administrator created", slog.String("login", cfg.AdminLogin))
			}

			logger.Info("starting orderdesk", slog.String("addr", server.Addr))
			sweeper.Start(ctx)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, cfg.ShutdownTimeout)
			}
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("orderdesk stopped")
			return nil
		},
	})
}
