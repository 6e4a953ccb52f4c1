package main

import (
	appfx "github.com/shakilmiahcse/social-org-finance/internal/fx"

	"go.uber.org/fx"
)

func main() {
	fx.New(
		appfx.AppModule,
	).Run()
}
