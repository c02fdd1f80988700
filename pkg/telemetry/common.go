package telemetry

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const (
	ServiceName = "zksync-requestor"

	otlpEndpoint        = "OTEL_EXPORTER_OTLP_ENDPOINT"
	otlpTracesEndpoint  = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	otlpMetricsEndpoint = "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"
	otlpProtocol        = "OTEL_EXPORTER_OTLP_PROTOCOL"
	otlpTracesProtocol  = "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"
	otlpMetricsProtocol = "OTEL_EXPORTER_OTLP_METRICS_PROTOCOL"
	disableTracing      = "OTEL_SDK_DISABLED"

	otlpProtocolHTTP = "http/protobuf"
)

// Version is reported on the telemetry resource. Set with -ldflags at build time.
var Version = "v0.0.0-dev"

// SetupFromEnvs installs global trace and meter providers when the standard
// OTLP environment variables point at a collector. Without them the otel
// no-op providers stay in place.
func SetupFromEnvs() {
	newTraceProvider()
	newMeterProvider()

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Err(err).Msg("Error occurred while handling spans")
	}))
}

// Cleanup flushes the remaining traces and metrics in memory to the exporter and releases any telemetry resources.
func Cleanup(ctx context.Context) error {
	var result *multierror.Error
	if err := cleanupTraceProvider(ctx); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "tracing cleanup error"))
	}
	if err := cleanupMeterProvider(ctx); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "meter cleanup error"))
	}
	return result.ErrorOrNil()
}

// newResource returns a resource describing this application.
func newResource() *resource.Resource {
	res, err := resource.Merge(
		resource.Environment(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(Version),
		),
	)

	if err != nil {
		log.Error().Err(err).Msg("failed to create otel resource. Falling back to default resource config")
		res = resource.Default()
	}
	return res
}
