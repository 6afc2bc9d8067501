package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

// DB wraps a connection pool together with the SQL dialect it speaks.
// Repositories ask it for dialect specific fragments such as the row
// lock suffix.
type DB struct {
	*sql.DB
	Dialect string
}

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{DB: db, Dialect: DialectMySQL}, nil
}

// OpenSQLite opens an embedded database, used for local development and
// tests.  SQLite has a single writer, so the pool is pinned to one
// connection; that also keeps a ":memory:" database alive for the life of
// the pool and serializes admission transactions.
func OpenSQLite(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

// ForUpdate returns the clause that takes an exclusive row lock on a
// SELECT.  SQLite locks the whole database for a writing transaction, so
// it needs no clause.
func (db *DB) ForUpdate() string {
	if db.Dialect == DialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}
