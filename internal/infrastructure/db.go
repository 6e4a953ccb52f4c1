package infrastructure

import (
	"fmt"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func NewDb(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.DBName).
			Msg("failed to connect to database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error().Err(err).Msg("failed to obtain database handle")
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	logger.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.DBName).
		Msg("database connection established")

	return db, nil
}

// RunMigrations creates the ledger tables and the constraints the services
// rely on: one open main fund per organization, globally unique txn_ids and
// adjustment legs that cannot outlive their adjustment.
func RunMigrations(db *gorm.DB) error {
	logger.Info().Msg("running migrations")

	models := []struct {
		name  string
		model interface{}
	}{
		{"organizations", &organizationDB{}},
		{"funds", &fundDB{}},
		{"donors", &donorDB{}},
		{"campaign_adjustments", &adjustmentDB{}},
		{"transactions", &transactionDB{}},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m.model); err != nil {
			logger.Error().Err(err).Str("table", m.name).Msg("migration failed")
			return err
		}
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_funds_open_main ON funds (organization_id) WHERE type = 'main' AND closed_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_donors_org_email ON donors (organization_id, email) WHERE email <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_org_created ON transactions (organization_id, created_at DESC, id DESC)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Error().Err(err).Str("statement", stmt).Msg("migration failed")
			return err
		}
	}

	constraints := []struct {
		table string
		name  string
		ddl   string
	}{
		{"transactions", "fk_transactions_fund", "FOREIGN KEY (fund_id) REFERENCES funds(id) ON DELETE RESTRICT"},
		{"transactions", "fk_transactions_donor", "FOREIGN KEY (donor_id) REFERENCES donors(id) ON DELETE SET NULL"},
		{"transactions", "fk_transactions_adjustment", "FOREIGN KEY (adjustment_id) REFERENCES campaign_adjustments(id) ON DELETE RESTRICT"},
		{"transactions", "chk_transactions_amount_positive", "CHECK (amount > 0)"},
		{"campaign_adjustments", "chk_adjustments_amount_positive", "CHECK (amount > 0)"},
		{"campaign_adjustments", "chk_adjustments_distinct_funds", "CHECK (main_fund_id <> campaign_fund_id)"},
	}
	for _, c := range constraints {
		if db.Migrator().HasConstraint(c.table, c.name) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s", c.table, c.name, c.ddl)
		if err := db.Exec(stmt).Error; err != nil {
			logger.Error().Err(err).Str("constraint", c.name).Msg("migration failed")
			return err
		}
	}

	logger.Info().Msg("migrations finished")
	return nil
}
