package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/regaloya/regaloya-api/internal/config"
)

// OpenPostgres opens a pooled gorm connection to the database behind
// conf.URL. The pool is the only resource shared between requests.
func OpenPostgres(conf *config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(conf.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm.Open -> %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB -> %w", err)
	}

	if conf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
	}
	if conf.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
	}
	if conf.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(conf.ConnMaxLifetime)
	}

	return db, nil
}

// OpenPostgresWithURL is a shortcut used by tests and tools that only have
// a connection string.
func OpenPostgresWithURL(url string) (*gorm.DB, error) {
	return OpenPostgres(&config.PostgresConfig{URL: url})
}
