package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/api/http/handler"
	"github.com/Alijeyrad/simorq_queue/internal/api/http/middleware"
	"github.com/Alijeyrad/simorq_queue/internal/live"
	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/clinic"
	"github.com/Alijeyrad/simorq_queue/internal/service/patient"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
	"github.com/Alijeyrad/simorq_queue/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/simorq_queue/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg        *config.Config
	Store      repo.Store
	Auth       authorize.IAuthorization
	Hub        *live.Hub
	QueueSvc   queue.Service
	ClinicSvc  clinic.Service
	PatientSvc patient.Service
	// PasetoMgr is nil when authentication is disabled.
	PasetoMgr *pasetotoken.Manager `optional:"true"`
	// NC is nil when live updates stay in-process.
	NC *nats.Conn `optional:"true"`
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	authRequired := middleware.AuthRequired(r.p.PasetoMgr)
	requirePerm := func(res authorize.Resource, act authorize.Action) fiber.Handler {
		return middleware.RequirePermission(r.p.Auth, res, act)
	}

	clinicH := handler.NewClinicHandler(r.p.ClinicSvc)
	queueH := handler.NewQueueHandler(r.p.QueueSvc)
	streamH := handler.NewStreamHandler(r.p.QueueSvc, r.p.Hub,
		time.Duration(r.p.Cfg.Live.HeartbeatSeconds)*time.Second)
	patientH := handler.NewPatientHandler(r.p.PatientSvc)

	api := app.Group("/api/v1", authRequired)

	r.registerClinicRoutes(api, clinicH, requirePerm)
	r.registerQueueRoutes(api, queueH, streamH, requirePerm)
	r.registerPatientRoutes(api, patientH, requirePerm)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return r.ready(c.Context())
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}

// ready reports whether the queue store answers and, when NATS carries live
// updates, whether the connection is up.
func (r *Router) ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.p.Store.Ping(ctx); err != nil {
		return false
	}
	return r.p.NC == nil || r.p.NC.IsConnected()
}
