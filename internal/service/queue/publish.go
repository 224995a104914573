package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Publisher broadcasts queue snapshots to live observers.
type Publisher interface {
	Publish(ctx context.Context, clinicID string, status *Status) error
}

type PublisherFunc func(ctx context.Context, clinicID string, status *Status) error

func (f PublisherFunc) Publish(ctx context.Context, clinicID string, status *Status) error {
	return f(ctx, clinicID, status)
}

// Fanout publishes to every publisher in order and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, clinicID string, status *Status) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, clinicID, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *Status) error { return nil }

const publishTimeout = 2 * time.Second

// publish is best effort: failures and panics are logged, never returned.
func (s *queueService) publish(ctx context.Context, clinicID string, status *Status) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.metrics.publishFailed(ctx, clinicID)
			s.log.Error("queue: publish panicked", "clinic_id", clinicID, "panic", fmt.Sprint(r))
		}
	}()

	if err := s.pub.Publish(ctx, clinicID, status); err != nil {
		s.metrics.publishFailed(ctx, clinicID)
		s.log.Warn("queue: publish failed", "clinic_id", clinicID, "error", err)
	}
}
