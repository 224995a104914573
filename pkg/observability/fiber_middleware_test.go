package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Alijeyrad/simorq_queue/pkg/reqctx"
)

func TestFiberMiddlewareRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		c.SetContext(reqctx.WithRequestMeta(c.Context(), &reqctx.RequestMeta{RequestID: "rid-7"}))
		return c.Next()
	})
	app.Use(FiberMiddleware("/livez"))
	app.Get("/clinics/:id/queue/patients/:eid", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/boom", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})
	app.Get("/livez", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/clinics/c1/queue/patients/e1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderTraceID))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/livez", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get(HeaderTraceID))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /clinics/:id/queue/patients/:eid", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("clinic.id", "c1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("queue.entry.id", "e1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("request.id", "rid-7"))
	assert.Equal(t, "HTTP 500", spans[1].Status().Description)
}

func TestInitTelemetry(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	p, err := InitTelemetry(context.Background(), Config{
		ServiceName:    "simorq-queue-test",
		TracingEnabled: true,
	})
	require.NoError(t, err)
	assert.Nil(t, p.PrometheusExporter)

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(Config{}).Description())
	assert.Contains(t, sampler(Config{TracingEnabled: true, SamplingRate: 0.25}).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, sampler(Config{TracingEnabled: true, SamplingRate: 7}).Description(), "AlwaysOnSampler")
}
