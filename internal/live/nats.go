package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
)

const (
	SubjectPrefix   = "simorq.queue.updated."
	SubjectWildcard = SubjectPrefix + "*"
)

// Subject is the NATS subject carrying snapshots for one clinic.
func Subject(clinicID string) string {
	return SubjectPrefix + clinicID
}

// ClinicFromSubject extracts the clinic id from a snapshot subject.
func ClinicFromSubject(subject string) (string, bool) {
	id, ok := strings.CutPrefix(subject, SubjectPrefix)
	if !ok || id == "" || strings.Contains(id, ".") {
		return "", false
	}
	return id, true
}

// NatsPublisher publishes queue snapshots to NATS.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// Publish implements queue.Publisher.
func (p *NatsPublisher) Publish(_ context.Context, clinicID string, st *queue.Status) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(clinicID), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Forward subscribes to every clinic's snapshot subject and feeds the hub.
func Forward(nc *nats.Conn, hub *Hub) (*nats.Subscription, error) {
	return SubscribeSnapshots(nc, "", hub)
}

// SubscribeSnapshots decodes snapshots for every clinic and hands them to pub.
// Subscribers sharing a non-empty group split the stream, so each snapshot
// reaches one member of the group.
func SubscribeSnapshots(nc *nats.Conn, group string, pub queue.Publisher) (*nats.Subscription, error) {
	handle := func(msg *nats.Msg) {
		clinicID, ok := ClinicFromSubject(msg.Subject)
		if !ok {
			slog.Warn("live_worker: unexpected subject", "subject", msg.Subject)
			return
		}
		var st queue.Status
		if err := json.Unmarshal(msg.Data, &st); err != nil {
			slog.Warn("live_worker: bad snapshot", "clinic_id", clinicID, "error", err)
			return
		}
		if err := pub.Publish(context.Background(), clinicID, &st); err != nil {
			slog.Warn("live_worker: snapshot handler failed", "clinic_id", clinicID, "error", err)
		}
	}
	if group == "" {
		return nc.Subscribe(SubjectWildcard, handle)
	}
	return nc.QueueSubscribe(SubjectWildcard, group, handle)
}
