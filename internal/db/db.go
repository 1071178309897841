package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	connectTimeout = 5 * time.Second
	maxOpenConns   = 8
)

// DB is the race archive: players, races, per-hit events and badges.
type DB struct {
	conn *sql.DB
}

// Connect opens the archive and checks it answers within connectTimeout.
func Connect(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open race archive: %w", err)
	}
	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxOpenConns / 2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("race archive unreachable: %w", err)
	}
	log.Info("race archive connected", "maxOpen", maxOpenConns)
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping backs the health endpoint.
func (d *DB) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return d.conn.PingContext(ctx)
}

func (d *DB) QueryRow(query string, args ...any) *sql.Row {
	return d.conn.QueryRow(query, args...)
}

func (d *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return d.conn.Query(query, args...)
}

func (d *DB) Exec(query string, args ...any) (sql.Result, error) {
	return d.conn.Exec(query, args...)
}

// Migrate applies every embedded schema file in name order. The files are
// idempotent, so it runs on each start.
func (d *DB) Migrate() error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		schema, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("schema %s: %w", name, err)
		}
		start := time.Now()
		if _, err := d.conn.Exec(string(schema)); err != nil {
			return fmt.Errorf("schema %s: apply: %w", name, err)
		}
		log.Debug("schema applied", "file", name, "took", time.Since(start))
	}
	log.Info("race archive schema ready", "files", len(names))
	return nil
}
