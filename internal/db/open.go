package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the storage engine.
type Config struct {
	Driver   string // sqlite | postgres
	DSN      string
	LogLevel string // silent | error | warn | info
}

func gormLogger(level string) logger.Interface {
	lvl := logger.Warn
	switch strings.ToLower(level) {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	return logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN sets them.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file:encuesta.db"
	}
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Open connects with gorm. SQLite is limited to a single connection so
// transactions serialize; PostgreSQL goes through lib/pq.
func Open(cfg Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormLogger(cfg.LogLevel), TranslateError: true}
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		gdb, err := gorm.Open(sqlite.Open(sqliteDSN(cfg.DSN)), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return gdb, nil
	case "postgres", "postgresql":
		gdb, err := gorm.Open(postgres.New(postgres.Config{DriverName: "postgres", DSN: cfg.DSN}), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		return gdb, nil
	}
	return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
}
