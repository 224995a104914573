package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_queue/internal/live"
	"github.com/Alijeyrad/simorq_queue/internal/service/notify"
)

// NotifyGroup is the NATS queue group shared by every instance's notifier so
// each snapshot triggers notices once.
const NotifyGroup = "simorq-notify"

// WorkerModule registers the NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc       fx.Lifecycle
	NC       *nats.Conn
	Hub      *live.Hub
	Notifier *notify.Notifier
}

// RegisterWorkers starts the live update worker and, when notifications are
// on, the notify worker. Without NATS the queue service publishes to the hub
// and notifier directly and there is nothing to run.
func RegisterWorkers(p WorkerParams) {
	if p.NC == nil {
		return
	}

	if p.Notifier != nil {
		registerNotifyWorker(p)
	}

	var sub *nats.Subscription
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			sub, err = live.Forward(p.NC, p.Hub)
			if err != nil {
				return err
			}
			slog.Info("live_worker: started", "subject", live.SubjectWildcard)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if sub == nil {
				return nil
			}
			// Drain of the connection is handled by ProvideNatsClient
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				slog.Warn("live_worker: unsubscribe failed", "err", err)
			}
			return nil
		},
	})
}

func registerNotifyWorker(p WorkerParams) {
	var sub *nats.Subscription
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			sub, err = live.SubscribeSnapshots(p.NC, NotifyGroup, p.Notifier)
			if err != nil {
				return err
			}
			slog.Info("notify_worker: started", "subject", live.SubjectWildcard, "group", NotifyGroup)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if sub == nil {
				return nil
			}
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				slog.Warn("notify_worker: unsubscribe failed", "err", err)
			}
			return nil
		},
	})
}
