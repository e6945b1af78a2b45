// Package database holds the MySQL connection wrapper backing the
// analysis audit trail. Tag data itself lives in Redis; MySQL only
// keeps durable history.
package database

import (
	"context"
	"database/sql"
	"time"

	"vibelymap/internal/constants"
	errs "vibelymap/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
)

type DB struct {
	conn         *sql.DB
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Options tunes the connection pool. Zero values fall back to defaults
// sized for a small audit workload.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

func New(databaseURL string) (*DB, error) {
	return NewWithOptions(databaseURL, Options{})
}

func NewWithOptions(databaseURL string, opts Options) (*DB, error) {
	conn, err := sql.Open("mysql", databaseURL)
	if err != nil {
		return nil, errs.NewDB("database.New", "failed to open mysql connection", err)
	}

	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 20
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 10 * time.Minute
	}
	if opts.ConnMaxIdleTime == 0 {
		opts.ConnMaxIdleTime = 5 * time.Minute
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = constants.DBReadTimeoutDefault
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = constants.DBWriteTimeoutDefault
	}

	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if err := conn.Ping(); err != nil {
		return nil, errs.NewDB("database.New", "failed to ping mysql", err)
	}

	return &DB{
		conn:         conn,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
	}, nil
}

// Conn exposes the underlying pool for query layers built on top.
func (db *DB) Conn() *sql.DB { return db.conn }

func (db *DB) Close() error { return db.conn.Close() }

// HealthCheck verifies the connection within the read timeout budget.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.readTimeout)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return errs.NewDB("database.HealthCheck", "mysql ping failed", err)
	}
	return nil
}

// Stats reports pool numbers for the admin stats endpoint.
func (db *DB) Stats() sql.DBStats { return db.conn.Stats() }
