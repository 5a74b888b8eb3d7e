package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/clinical-extractor/internal/common"
)

// Dialects supported by Open.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is a database/sql handle plus the dialect its queries are written for.
type DB struct {
	SQL     *sql.DB
	Dialect string
	pool    *pgxpool.Pool
}

// IsPostgres reports whether dsn addresses a PostgreSQL server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// Open connects to PostgreSQL through a pgx pool when the DSN names a server,
// and to an SQLite file (or ":memory:") otherwise.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if IsPostgres(cfg.DSN) {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(ctx, cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "clinical-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	// Wrap pool as *sql.DB so both dialects share one query layer
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database", "dialect", DialectPostgres)
	return &DB{SQL: db, Dialect: DialectPostgres, pool: pool}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := strings.TrimPrefix(cfg.DSN, "sqlite://")
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("connecting to database", "dialect", DialectSQLite, "dsn", dsn)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	// One writer; an in-memory database also lives in a single connection.
	db.SetMaxOpenConns(1)
	if cfg.MaxConnLifetime > 0 && !strings.Contains(dsn, ":memory:") {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	logger.Info("successfully connected to database", "dialect", DialectSQLite)
	return &DB{SQL: db, Dialect: DialectSQLite}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if d == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := d.SQL.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func HealthCheck(ctx context.Context, d *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database", "dialect", d.Dialect)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", common.ErrDatabase, err)
	}
	logger.Debug("database ping successful")
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
