package fx

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/telemetry"

	"go.uber.org/fx"
)

var TelemetryModule = fx.Module("telemetry",
	fx.Provide(
		newTelemetry,
	),
	fx.Invoke(func(*telemetry.Provider) {}),
)

func newTelemetry(lc fx.Lifecycle, cfg *config.Config) (*telemetry.Provider, error) {
	provider, err := telemetry.Setup(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: provider.Shutdown,
	})
	return provider, nil
}
