package store

import (
	"database/sql"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

type Store struct {
	DB *sql.DB
}

func NewStore(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}

	// A single connection serializes check-then-write transactions and keeps
	// in-memory databases coherent across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &Store{DB: db}, nil
}

func (s *Store) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'supporter',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS needs (
		name TEXT PRIMARY KEY,
		cost TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS basket_lines (
		supporter_username TEXT NOT NULL,
		need_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		PRIMARY KEY (supporter_username, need_name)
	);

	CREATE TABLE IF NOT EXISTS receipts (
		supporter_username TEXT NOT NULL,
		need_name TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		total_quantity INTEGER NOT NULL,
		PRIMARY KEY (supporter_username, need_name)
	);

	CREATE TABLE IF NOT EXISTS messages (
		receiver_username TEXT NOT NULL,
		need_name TEXT NOT NULL,
		sender_username TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (receiver_username, need_name)
	);
	`
	_, err := s.DB.Exec(query)
	if err != nil {
		slog.Error("Error creating schema", "error", err)
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
