package telemetry_test

import (
	"context"
	"testing"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupWithoutExporter(t *testing.T) {
	cfg := &config.Config{
		App:       config.AppConfig{Environment: "test"},
		Telemetry: config.TelemetryConfig{ServiceName: "ledger-test"},
	}

	provider, err := telemetry.Setup(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "check")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestShutdownNilProvider(t *testing.T) {
	var provider *telemetry.Provider
	assert.NoError(t, provider.Shutdown(context.Background()))
}
