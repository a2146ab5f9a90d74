package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
)

type Config struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Service owns the connection pool for the lifetime of the process.
type Service interface {
	// DB exposes the pool for repositories and transactions.
	DB() *sql.DB
	// Health backs /healthz; "status" is "up" or "down".
	Health(ctx context.Context) map[string]string
	Close() error
}

type service struct {
	db       *sql.DB
	database string
}

func (c Config) DSN() string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	if c.Schema != "" {
		q.Set("search_path", c.Schema)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewPostgres opens a pgx-backed pool and verifies it with a ping.
func NewPostgres(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
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

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping postgres %s:%s", cfg.Host, cfg.Port)
	}
	return db, nil
}

func New(ctx context.Context, cfg Config) (Service, error) {
	db, err := NewPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &service{db: db, database: cfg.Database}, nil
}

func (s *service) DB() *sql.DB {
	return s.db
}

// Health pings the pool and reports its counters. The "warning" key is set
// when the pool looks saturated or keeps recycling connections.
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		zlog.Ctx(ctx).Error().Err(err).Str("database", s.database).Msg("database health check failed")
		return map[string]string{"status": "down", "error": fmt.Sprintf("ping %s: %v", s.database, err)}
	}

	st := s.db.Stats()
	health := map[string]string{
		"status":              "up",
		"database":            s.database,
		"open_connections":    strconv.Itoa(st.OpenConnections),
		"in_use":              strconv.Itoa(st.InUse),
		"idle":                strconv.Itoa(st.Idle),
		"wait_count":          strconv.FormatInt(st.WaitCount, 10),
		"wait_duration":       st.WaitDuration.String(),
		"max_idle_closed":     strconv.FormatInt(st.MaxIdleClosed, 10),
		"max_lifetime_closed": strconv.FormatInt(st.MaxLifetimeClosed, 10),
	}

	switch {
	case st.MaxOpenConnections > 0 && st.InUse >= st.MaxOpenConnections:
		health["warning"] = "every pooled connection is in use"
	case st.WaitCount > 1000:
		health["warning"] = "requests are waiting for connections"
	case st.MaxLifetimeClosed > int64(st.OpenConnections)/2:
		health["warning"] = "connections are recycled often, raise BLUEPRINT_DB_CONN_MAX_LIFETIME"
	}
	return health
}

func (s *service) Close() error {
	zlog.Info().Str("database", s.database).Msg("disconnected from database")
	return s.db.Close()
}
