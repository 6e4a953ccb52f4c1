package fx

import (
	"log"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		loadConfig,
	),
	fx.Invoke(
		initLogger,
	),
)

// loadConfig reads .env files before the environment is parsed so that
// values from them are visible to config.Load.
func loadConfig() (*config.Config, error) {
	LoadEnvFiles()
	return config.Load()
}

// LoadEnvFiles loads .env from the working directory and from the repository
// root when started from cmd/<binary>. Missing files are not an error.
func LoadEnvFiles() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not loaded from working directory: %v", err)
	}
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("warning: ../../.env not loaded: %v", err)
	}
}

func initLogger(cfg *config.Config) {
	logger.Init(cfg)
}
