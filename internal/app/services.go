package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/live"
	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/clinic"
	"github.com/Alijeyrad/simorq_queue/internal/service/notify"
	"github.com/Alijeyrad/simorq_queue/internal/service/patient"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
	"github.com/Alijeyrad/simorq_queue/pkg/email"
	"github.com/Alijeyrad/simorq_queue/pkg/sms"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideNotifier,
		ProvidePublisher,
		ProvideQueueService,
		ProvideClinicService,
		ProvidePatientService,
	),
)

// ProvideNotifier returns nil when notify.enabled is false.
func ProvideNotifier(lc fx.Lifecycle, cfg *config.Config, store repo.Store, smsClient *sms.Client, mailClient *email.Client) *notify.Notifier {
	if !cfg.Notify.Enabled {
		return nil
	}
	if !smsClient.IsEnabled() && !mailClient.IsEnabled() {
		slog.Warn("notify is enabled but neither sms nor email is; no notices will be sent")
	}
	n := notify.New(store, smsClient, mailClient, notify.Options{
		AheadPositions: cfg.Notify.AheadPositions,
		Workers:        cfg.Notify.Workers,
		BufferSize:     cfg.Notify.BufferSize,
		TurnTemplateID: cfg.SMS.SMSIR.TurnTemplateID,
		SoonTemplateID: cfg.SMS.SMSIR.SoonTemplateID,
		Logger:         slog.Default().With("component", "notify"),
	})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			n.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			slog.Debug("stopping notifier")
			return n.Stop(ctx)
		},
	})
	return n
}

// ProvidePublisher sends snapshots through NATS when it is configured so every
// instance sees them; otherwise straight to the local hub and notifier.
// Under NATS the notifier is fed by a worker instead.
func ProvidePublisher(nc *nats.Conn, hub *live.Hub, notifier *notify.Notifier) queue.Publisher {
	if nc != nil {
		return live.NewNatsPublisher(nc)
	}
	if notifier == nil {
		return hub
	}
	return queue.Fanout{hub, notifier}
}

func ProvideQueueService(cfg *config.Config, store repo.Store, pub queue.Publisher) (queue.Service, error) {
	return NewQueueService(cfg, store, pub)
}

// NewQueueService builds the queue engine from config. CLI commands use it
// directly.
func NewQueueService(cfg *config.Config, store repo.Store, pub queue.Publisher) (queue.Service, error) {
	loc, err := time.LoadLocation(cfg.Queue.Timezone)
	if err != nil {
		return nil, err
	}
	return queue.New(store, pub, queue.Options{
		Location:    loc,
		PhoneRegion: cfg.Queue.PhoneRegion,
		Logger:      slog.Default().With("component", "queue"),
	}), nil
}

func ProvideClinicService(cfg *config.Config, store repo.Store, queueSvc queue.Service) clinic.Service {
	return clinic.New(store, queueSvc, cfg.Queue.Defaults)
}

func ProvidePatientService(cfg *config.Config, store repo.Store) patient.Service {
	return patient.New(store, cfg.Queue.PhoneRegion)
}
