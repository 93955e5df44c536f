// Package database owns the Postgres bootstrap: making sure the application
// database exists, opening the gorm connection and running migrations.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bundlewise/bundle-service/models"
)

// pq error code for "database already exists".
const duplicateDatabase = "42P04"

// Ensure creates the application database when it does not exist yet. It
// connects to the server's maintenance database, so it works on a fresh
// Postgres instance before any migration has run. A concurrent creation by
// another replica is tolerated.
func Ensure(databaseURL string) error {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database url %q has no database name", parsed.Redacted())
	}

	maintenance := *parsed
	maintenance.Path = "/postgres"

	conn, err := sql.Open("postgres", maintenance.String())
	if err != nil {
		return fmt.Errorf("open maintenance connection: %w", err)
	}
	defer conn.Close()

	var exists bool
	err = conn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}

	_, err = conn.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == duplicateDatabase {
			return nil
		}
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// Open connects gorm to the application database and migrates the bundle
// schema.
func Open(databaseURL string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Bundle{},
		&models.TargetProduct{},
		&models.BundleProduct{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	if logger != nil {
		logger.Info("database ready")
	}
	return db, nil
}
