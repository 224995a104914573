package queue

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Alijeyrad/simorq_queue/internal/service/queue"

type instruments struct {
	operations    metric.Int64Counter
	admissions    metric.Int64Counter
	publishErrors metric.Int64Counter
	waitMinutes   metric.Int64Histogram
}

func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)

	operations, _ := meter.Int64Counter(
		"queue_operations_total",
		metric.WithDescription("Queue operations by name and outcome"),
		metric.WithUnit("{operation}"),
	)
	admissions, _ := meter.Int64Counter(
		"queue_admissions_total",
		metric.WithDescription("Patients admitted to a clinic queue"),
		metric.WithUnit("{patient}"),
	)
	publishErrors, _ := meter.Int64Counter(
		"queue_publish_errors_total",
		metric.WithDescription("Live update publishes that failed"),
		metric.WithUnit("{error}"),
	)
	waitMinutes, _ := meter.Int64Histogram(
		"queue_admission_wait_minutes",
		metric.WithDescription("Estimated wait at admission time"),
		metric.WithUnit("min"),
	)

	return &instruments{
		operations:    operations,
		admissions:    admissions,
		publishErrors: publishErrors,
		waitMinutes:   waitMinutes,
	}
}

func (m *instruments) operation(ctx context.Context, op string, err error) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", string(outcome(err))),
	))
}

func (m *instruments) admitted(ctx context.Context, clinicID string, waitMinutes int) {
	attrs := metric.WithAttributes(attribute.String("clinic_id", clinicID))
	m.admissions.Add(ctx, 1, attrs)
	m.waitMinutes.Record(ctx, int64(waitMinutes), attrs)
}

func (m *instruments) publishFailed(ctx context.Context, clinicID string) {
	m.publishErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("clinic_id", clinicID)))
}

func outcome(err error) Kind {
	if err == nil {
		return "ok"
	}
	return KindOf(err)
}
