package http

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/api/http/router"
	"github.com/Alijeyrad/simorq_queue/internal/app"
)

// NewFxApp assembles the full server graph. Run blocks until a signal arrives.
func NewFxApp(cfg *config.Config, timeout time.Duration, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{
		fx.Supply(cfg),
		app.InfraModule,
		app.ServiceModule,
		app.WorkerModule,
		router.Module,
		Module,

		// NewServer only runs, and registers its OnStart hook, when something
		// asks for the *fiber.App.
		fx.Invoke(func(*fiber.App) {}),

		fx.StopTimeout(timeout),
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
	}, opts...)...)
}

func Start(cfg *config.Config, timeout time.Duration) {
	NewFxApp(cfg, timeout).Run()
}
