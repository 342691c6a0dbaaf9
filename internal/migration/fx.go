package migration

import (
	"github.com/smallbiznis/taxledger/internal/config"
	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module applies schema migrations on startup. Postgres runs the versioned
// SQL migrations; the other dialects fall back to gorm auto-migration.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		return conn.AutoMigrate(
			&eventdomain.SaleEvent{},
			&eventdomain.SaleItem{},
			&eventdomain.TaxPaymentEvent{},
			&eventdomain.SaleAmendmentEvent{},
		)
	}),
)
