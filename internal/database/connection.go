// Package database provides database connectivity and the append-only
// persistence layer for detection results, model metrics and feedback.
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/galafis/Anomaly-Detection-System/internal/database/models"
)

// Driver names supported by the connection layer.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents database configuration
type Config struct {
	Driver string `yaml:"driver" env:"DB_DRIVER"`

	// SQLite settings
	Path string `yaml:"path" env:"DB_PATH"`

	// PostgreSQL settings
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Username string `yaml:"username" env:"DB_USERNAME"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Database string `yaml:"database" env:"DB_DATABASE"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// Performance settings
	LogLevel      string        `yaml:"log_level"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`

	// Migration settings
	AutoMigrate bool `yaml:"auto_migrate"`
}

// DefaultConfig returns the default database configuration. SQLite keeps the
// service self-contained for local runs; production deployments point the
// driver at PostgreSQL.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		Path:            "anomaly_detection.db",
		Host:            "localhost",
		Port:            5432,
		Username:        "postgres",
		Database:        "anomaly_detection",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "warn",
		SlowThreshold:   200 * time.Millisecond,
		AutoMigrate:     true,
	}
}

// Validate checks the configuration for a usable driver setup.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Host == "" || c.Database == "" {
			return fmt.Errorf("database.host and database.database are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Driver)
	}
	return nil
}

// Connection represents a database connection
type Connection struct {
	db     *gorm.DB
	config *Config
}

// NewConnection creates a new database connection for the configured driver.
func NewConnection(config *Config) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		Logger: getLogger(config.LogLevel, config.SlowThreshold),
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case DriverPostgres:
		dialector = postgres.Open(buildDSN(config))
	default:
		dialector = sqlite.Open(config.Path)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if config.Driver == DriverPostgres {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		// SQLite serializes writers; a single connection avoids
		// SQLITE_BUSY under concurrent inserts.
		sqlDB.SetMaxOpenConns(1)
	}

	conn := &Connection{
		db:     db,
		config: config,
	}

	if config.AutoMigrate {
		if err := conn.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	return conn, nil
}

// DB returns the underlying GORM database instance
func (c *Connection) DB() *gorm.DB {
	return c.db
}

// Close closes the database connection
func (c *Connection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping tests the database connection
func (c *Connection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate runs automatic migrations for all models
func (c *Connection) AutoMigrate() error {
	return c.db.AutoMigrate(
		&models.Anomaly{},
		&models.ModelMetric{},
		&models.Feedback{},
	)
}

func buildDSN(config *Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host,
		config.Port,
		config.Username,
		config.Password,
		config.Database,
		config.SSLMode,
	)
}

func getLogger(level string, slowThreshold time.Duration) logger.Interface {
	var logLevel logger.LogLevel

	switch level {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn", "warning":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	return logger.New(
		log.New(os.Stderr, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
