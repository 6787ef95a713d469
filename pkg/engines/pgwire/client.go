// Package pgwire provides an engine client for streaming SQL engines that
// speak the PostgreSQL wire protocol.
package pgwire

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/engine"
)

// EngineName is the registry name of this client.
const EngineName = "pgwire"

// defaultTimeout bounds a single statement submission when the target
// does not set one. Streaming DDL can take a while on a busy engine.
const defaultTimeout = 60 * time.Second

// Client submits statements over a database/sql connection using the pgx
// driver.
type Client struct {
	DB     *sql.DB
	Logger *slog.Logger

	target  core.TargetConfig
	timeout time.Duration
}

// New creates a pgwire client. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{Logger: logger, timeout: defaultTimeout}
}

// Name returns the engine name this client is registered under.
func (c *Client) Name() string {
	return EngineName
}

// Connect opens and pings a connection to the engine.
func (c *Client) Connect(ctx context.Context, target core.TargetConfig) error {
	dsn := buildDSN(target)

	c.Logger.Debug("connecting over pgwire",
		slog.String("host", target.Host),
		slog.String("database", target.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open pgwire connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping engine: %w", err)
	}

	c.DB = db
	c.target = target
	if target.TimeoutSeconds > 0 {
		c.timeout = time.Duration(target.TimeoutSeconds) * time.Second
	}
	return nil
}

// buildDSN constructs a key=value connection string for the pgx driver.
func buildDSN(target core.TargetConfig) string {
	host := target.Host
	if host == "" {
		host = "localhost"
	}

	port := target.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if target.Options != nil {
		if mode, ok := target.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, target.Database, sslmode)

	if target.User != "" {
		dsn += fmt.Sprintf(" user=%s", target.User)
	}
	if target.Password != "" {
		dsn += fmt.Sprintf(" password=%s", target.Password)
	}

	return dsn
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("engine connection not established")
	}
	return c.DB.PingContext(ctx)
}

// Submit executes one DDL statement. Each submission is bounded by the
// target's timeout.
func (c *Client) Submit(ctx context.Context, statement string) error {
	if c.DB == nil {
		return fmt.Errorf("engine connection not established")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.DB.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.DB != nil {
		c.Logger.Debug("closing pgwire connection")
		return c.DB.Close()
	}
	return nil
}

// IsConnected returns true if the connection is established.
func (c *Client) IsConnected() bool {
	return c.DB != nil
}

// Ensure Client implements the engine.Client interface
var _ engine.Client = (*Client)(nil)
