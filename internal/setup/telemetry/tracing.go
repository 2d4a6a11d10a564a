package telemetry

import (
	"context"

	"github.com/robalyx/rollcall/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
)

// SetupTracing installs the Uptrace exporter as the global tracer provider.
// Without a DSN the default no-op provider stays in place. The returned
// function flushes pending spans.
func SetupTracing(cfg *config.Uptrace, instanceID string) func(context.Context) error {
	if cfg.DSN == "" {
		return func(context.Context) error { return nil }
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.DSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithResourceAttributes(
			attribute.String("service.instance.id", instanceID),
		),
	)

	return uptrace.Shutdown
}
