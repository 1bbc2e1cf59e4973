// Package sqlx implements the durable score ledger on a SQL database via
// jmoiron/sqlx. One row per (user, category) holds the current score; every
// committed update appends to an audit table in the same transaction.
package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// Supported drivers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"scorekit/core"
)

// Driver identifies the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver" yaml:"driver" env:"SCOREKIT_SQL_DRIVER"`
	DSN             string        `json:"dsn" yaml:"dsn" env:"SCOREKIT_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"SCOREKIT_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"SCOREKIT_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"SCOREKIT_SQL_CONN_MAX_LIFETIME"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Ledger is the SQL-backed score ledger.
type Ledger struct {
	db       *sqlx.DB
	maxScore int64
}

// New opens a connection and verifies it.
func New(cfg Config, maxScore int64) (*Ledger, error) {
	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(db, maxScore), nil
}

// NewWithDB wraps an existing sqlx handle (useful for testing).
func NewWithDB(db *sqlx.DB, maxScore int64) *Ledger {
	if maxScore <= 0 {
		maxScore = 1_000_000_000
	}
	return &Ledger{db: db, maxScore: maxScore}
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// Migrate creates the scores and score_audit tables if they do not exist.
func (l *Ledger) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			user_id    VARCHAR(128) NOT NULL,
			category   VARCHAR(128) NOT NULL,
			score      BIGINT       NOT NULL,
			updated_at TIMESTAMP    NOT NULL,
			PRIMARY KEY (user_id, category)
		)`,
		`CREATE TABLE IF NOT EXISTS score_audit (
			user_id    VARCHAR(128) NOT NULL,
			category   VARCHAR(128) NOT NULL,
			old_score  BIGINT       NOT NULL,
			new_score  BIGINT       NOT NULL,
			token_id   VARCHAR(64)  NOT NULL,
			created_at TIMESTAMP    NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return core.WrapStorage(err)
		}
	}
	return nil
}

func (l *Ledger) Score(ctx context.Context, user core.UserID, category core.Category) (int64, error) {
	var score int64
	query := l.db.Rebind(`SELECT score FROM scores WHERE user_id = ? AND category = ?`)
	err := l.db.GetContext(ctx, &score, query, user, category)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, core.WrapStorage(err)
	}
	return score, nil
}

// ApplyDelta runs the score update and the audit append as one transaction.
// SELECT ... FOR UPDATE serializes concurrent calls for the same row; calls
// for different rows proceed in parallel.
func (l *Ledger) ApplyDelta(ctx context.Context, user core.UserID, category core.Category, delta int64, tokenID string) (core.Entry, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.Entry{}, core.WrapStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	var old int64
	exists := true
	query := tx.Rebind(`SELECT score FROM scores WHERE user_id = ? AND category = ? FOR UPDATE`)
	if err := tx.GetContext(ctx, &old, query, user, category); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, core.WrapStorage(err)
		}
		exists = false
	}

	next := old + delta
	if next < 0 {
		return core.Entry{}, core.WrapConflict("score would become negative")
	}
	if next > l.maxScore {
		return core.Entry{}, core.WrapConflict("score would exceed cap")
	}

	now := time.Now().UTC()
	if exists {
		update := tx.Rebind(`UPDATE scores SET score = ?, updated_at = ? WHERE user_id = ? AND category = ?`)
		if _, err := tx.ExecContext(ctx, update, next, now, user, category); err != nil {
			return core.Entry{}, core.WrapStorage(err)
		}
	} else {
		insert := tx.Rebind(`INSERT INTO scores (user_id, category, score, updated_at) VALUES (?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insert, user, category, next, now); err != nil {
			return core.Entry{}, core.WrapStorage(err)
		}
	}

	audit := tx.Rebind(`INSERT INTO score_audit (user_id, category, old_score, new_score, token_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, audit, user, category, old, next, tokenID, now); err != nil {
		return core.Entry{}, core.WrapStorage(err)
	}

	if err := tx.Commit(); err != nil {
		return core.Entry{}, core.WrapStorage(err)
	}
	return core.Entry{User: user, Score: next, UpdatedAt: now}, nil
}

type scoreRow struct {
	UserID    string    `db:"user_id"`
	Score     int64     `db:"score"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TopN is the authoritative slow-path query; its ORDER BY mirrors core.Less.
func (l *Ledger) TopN(ctx context.Context, category core.Category, n int) ([]core.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []scoreRow
	query := l.db.Rebind(`SELECT user_id, score, updated_at FROM scores WHERE category = ? ORDER BY score DESC, updated_at ASC, user_id ASC LIMIT ?`)
	if err := l.db.SelectContext(ctx, &rows, query, category, n); err != nil {
		return nil, core.WrapStorage(err)
	}
	entries := make([]core.Entry, len(rows))
	for i, r := range rows {
		entries[i] = core.Entry{User: core.UserID(r.UserID), Score: r.Score, UpdatedAt: r.UpdatedAt}
	}
	return entries, nil
}

func (l *Ledger) Categories(ctx context.Context) ([]core.Category, error) {
	var names []string
	if err := l.db.SelectContext(ctx, &names, `SELECT DISTINCT category FROM scores ORDER BY category`); err != nil {
		return nil, core.WrapStorage(err)
	}
	out := make([]core.Category, len(names))
	for i, n := range names {
		out[i] = core.Category(n)
	}
	return out, nil
}
