package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config represents the backend connection settings.
type Config struct {
	URL            string // postgres:// connection URL of the project
	APIKey         string // anonymous key, used as password when the URL carries none
	Role           string // role assumed on every connection (row-level rules apply to it)
	MaxConns       int32
	ConnectTimeout time.Duration
}

// Client represents a pooled backend connection.
type Client struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens the pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse backend URL: %w", err)
	}
	if poolConfig.ConnConfig.Password == "" && cfg.APIKey != "" {
		poolConfig.ConnConfig.Password = cfg.APIKey
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Role != "" {
		setRole := "SET ROLE " + pgx.Identifier{cfg.Role}.Sanitize()
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, setRole)
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping backend: %w", err)
	}

	logger.Info("Connected to remote backend", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database, "role", cfg.Role)
	return &Client{pool: pool, logger: logger}, nil
}

// NewClient wraps an existing pool (tests, callers that manage the pool).
func NewClient(pool *pgxpool.Pool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{pool: pool, logger: logger}
}

// Table returns a handle scoped to one collection table.
func (c *Client) Table(name string) *Table {
	return &Table{client: c, name: name}
}

// Ping verifies the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.pool == nil {
		return ErrNoConnection
	}
	return c.pool.Ping(ctx)
}

// Close closes the pool.
func (c *Client) Close() {
	if c != nil && c.pool != nil {
		c.pool.Close()
	}
}

// EnsureSchema creates one document table per name when missing.
func (c *Client) EnsureSchema(ctx context.Context, tables ...string) error {
	if c == nil || c.pool == nil {
		return ErrNoConnection
	}
	for _, name := range tables {
		ident := pgx.Identifier{name}.Sanitize()
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id text PRIMARY KEY,
	doc jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`, ident)
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return &QueryError{Table: name, Op: "create table", Err: err}
		}
		c.logger.Debug("Ensured remote table", "table", name)
	}
	return nil
}
