package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Shutdown vacía y cierra el exportador.
type Shutdown func(ctx context.Context) error

// Init registra un TracerProvider global que exporta a Jaeger. Con endpoint vacío no registra nada:
// los spans de pedidos y traslados quedan en el proveedor no-op de otel.
func Init(serviceName, jaegerEndpoint string, log *logger.Logger) (Shutdown, error) {
	if jaegerEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Info().Str("service", serviceName).Str("endpoint", jaegerEndpoint).Msg("tracing inicializado")
	return tp.Shutdown, nil
}
