package persistence

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KVEntry is one named value in the local key-value table.
type KVEntry struct {
	Key   string `gorm:"column:entry_key;primaryKey;size:128"`
	Value string `gorm:"type:text;not null"`
}

// TableName pins the table name independent of gorm's pluralisation.
func (KVEntry) TableName() string { return "kv_entries" }

// OpenSQLite opens (creating if needed) the local ticket database at path and
// migrates the key-value table.
func OpenSQLite(path string, log *zap.Logger) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := prepareSQLite(db); err != nil {
		CloseSQLite(db)
		return nil, err
	}

	if log != nil {
		log.Info("opened local ticket store", zap.String("path", path))
	}
	return db, nil
}

// prepareSQLite pins the pool to one connection and migrates the table.
func prepareSQLite(db *gorm.DB) error {
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY churn.
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return fmt.Errorf("migrate kv table: %w", err)
	}
	return nil
}

// CloseSQLite releases the underlying connection, whatever pool type gorm
// ended up holding.
func CloseSQLite(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
		return
	}
	if closer, ok := db.ConnPool.(io.Closer); ok {
		_ = closer.Close()
	}
}

// PingSQLite checks the local database connection.
func PingSQLite(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
