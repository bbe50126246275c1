package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2" // Oracle driver
	"go.uber.org/zap"

	"proficiency-scoring/internal/config"
	"proficiency-scoring/internal/logger"
)

// NewSQLXOracleDB connects to Oracle through the go-ora driver and applies
// the pool settings.
func NewSQLXOracleDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("oracle", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Oracle database: %w", err)
	}

	if cfg.DB.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Get().Info("Connected to Oracle database",
		zap.String("host", cfg.DB.Host),
		zap.Int("port", cfg.DB.Port),
		zap.String("service", cfg.DB.DBName))
	return db, nil
}
