package fx

import (
	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/middleware"

	"go.uber.org/fx"
)

var MiddlewareModule = fx.Module("middleware",
	fx.Provide(
		newJwtService,
	),
)

func newJwtService(cfg *config.Config) (*middleware.JwtService, error) {
	return middleware.NewJwtService(cfg.JWT)
}
