package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("not found")

type DB struct {
	conn *sql.DB
}

type Config struct {
	Path string
}

// NewDB opens the sqlite ledger and applies pending migrations.
func NewDB(config Config, logger *zap.Logger) (*DB, error) {
	db, err := Open(config)
	if err != nil {
		return nil, err
	}

	if _, err := NewMigrator(db.conn, logger).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Open connects without migrating.
func Open(config Config) (*DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", config.Path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
