package reviewflow

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/RealZimboGuy/reviewflow/internal/config"
	"github.com/RealZimboGuy/reviewflow/internal/migrations"
)

// Target describes where the database lives, once for golang-migrate and once
// for database/sql.
type Target struct {
	Dialect    string
	MigrateURL string
	Driver     string
	DSN        string
}

// ResolveTarget reads the database settings and checks them per type.
func ResolveTarget() (Target, error) {
	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	switch databaseType {
	case config.DATABASE_TYPE_POSTGRES:
		dbURL := config.GetSystemSettingString(config.DATABASE_URL)
		if dbURL == "" {
			return Target{}, fmt.Errorf("RFLOW_DATABASE_URL must be set when using the POSTGRES database type")
		}
		return Target{Dialect: migrations.DialectPostgres, MigrateURL: dbURL, Driver: "postgres", DSN: dbURL}, nil

	case config.DATABASE_TYPE_MYSQL:
		dbURL := config.GetSystemSettingString(config.DATABASE_URL)
		if dbURL == "" {
			return Target{}, fmt.Errorf("RFLOW_DATABASE_URL must be set when using the MYSQL database type")
		}
		if !strings.Contains(dbURL, "parseTime=true") {
			return Target{}, fmt.Errorf("RFLOW_DATABASE_URL must contain 'parseTime=true' for MySQL")
		}
		if !strings.HasPrefix(dbURL, "mysql://") {
			return Target{}, fmt.Errorf("RFLOW_DATABASE_URL must start with 'mysql://' for MySQL")
		}
		return Target{
			Dialect:    migrations.DialectMySQL,
			MigrateURL: dbURL,
			Driver:     "mysql",
			DSN:        strings.Replace(dbURL, "mysql://", "", 1),
		}, nil

	case config.DATABASE_TYPE_SQLITE:
		fileName := config.GetSystemSettingString(config.DATABASE_SQLITE_FILE_NAME)
		if fileName == "" {
			return Target{}, fmt.Errorf("RFLOW_DATABASE_SQLITE_FILE_NAME must be set")
		}
		return Target{
			Dialect:    migrations.DialectSQLite,
			MigrateURL: "sqlite3://" + fileName,
			Driver:     "sqlite3",
			DSN:        fileName + "?_busy_timeout=5000",
		}, nil
	}
	return Target{}, fmt.Errorf("RFLOW_DATABASE_TYPE must be one of POSTGRES, MYSQL, SQLITE (got %q)", databaseType)
}

// OpenDatabase migrates the configured database to the latest schema and
// opens it.
func OpenDatabase() (*sql.DB, error) {
	target, err := ResolveTarget()
	if err != nil {
		return nil, err
	}
	slog.Info("Running migrations", "dialect", target.Dialect)
	if err := migrations.Up(target.Dialect, target.MigrateURL); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	slog.Info("Opening database", "driver", target.Driver)
	db, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if target.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
