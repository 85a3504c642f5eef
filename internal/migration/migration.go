package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	reminderdomain "github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Apply brings the schema up to date for the configured dialect. Postgres
// runs the embedded SQL files; sqlite (local development) is built from the
// gorm models; other dialects are left to the operator.
func Apply(conn *gorm.DB, dialect string, log *zap.Logger) error {
	switch dialect {
	case "postgres":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		version, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("schema migrated", zap.String("db_type", dialect), zap.Uint("version", version))
		return nil
	case "sqlite":
		if err := AutoMigrate(conn); err != nil {
			return err
		}
		log.Info("schema auto-migrated", zap.String("db_type", dialect))
		return nil
	default:
		log.Warn("schema migrations skipped", zap.String("db_type", dialect))
		return nil
	}
}

// RunMigrations applies the embedded postgres schema and returns the
// resulting version.
func RunMigrations(db *sql.DB) (uint, error) {
	if db == nil {
		return 0, errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "barix_schema_migrations"})
	if err != nil {
		return 0, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	// migrator.Close would close the shared pool.

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// AutoMigrate creates the tables from the gorm models.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&customerdomain.Customer{},
		&accountdomain.Settings{},
		&documentdomain.Document{},
		&documentdomain.DocumentItem{},
		&documentdomain.DocumentSequence{},
		&reminderdomain.ReminderLog{},
	)
}
