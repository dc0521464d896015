package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"threadline/internal/models"
)

// Open connects to postgres and routes gorm's slow-query and error logs
// through zap.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(20)

	log.Info("database connection established")
	return conn, nil
}

// Migrate creates the tables this service owns. Posts and users belong to
// other subsystems; withCollaborators also creates them, for local setups
// and tests that have no other owner.
func Migrate(conn *gorm.DB, withCollaborators bool) error {
	tables := []interface{}{
		&models.Comment{},
		&models.Lead{},
	}
	if withCollaborators {
		tables = append([]interface{}{&models.User{}, &models.Post{}}, tables...)
	}
	if err := conn.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// NewLogger adapts zap to gorm's logger.
func NewLogger(log *zap.Logger) gormlogger.Interface {
	return gormlogger.New(zapWriter{log.Named("gorm").Sugar()}, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type zapWriter struct {
	s *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.s.Warnf(format, args...)
}
