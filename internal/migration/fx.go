package migration

import (
	"github.com/smallbiznis/chaseless/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run brings the schema up to date for the configured dialect.
func Run(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
	if cfg.Type == db.TypeSQLite {
		if err := ApplyStatements(conn); err != nil {
			return err
		}
		log.Info("sqlite schema applied")
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("migrations applied", zap.String("dialect", cfg.Type))
	return nil
}

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)
