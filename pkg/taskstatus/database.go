package taskstatus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// Conn is the slice of a Postgres connection the updater needs. *pgx.Conn
// satisfies it; tests supply fakes.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

// Database holds the parameters for opening status-table connections.
// Each Connect call opens a fresh connection which the updater closes after
// a single statement; there is no pooling.
type Database struct {
	endpoint string
	database string
	username string
	password string
	port     uint16
	logger   *slog.Logger
}

// NewDatabase builds a connection descriptor. Port 0 falls back to 5432.
// A nil logger falls back to slog.Default().
func NewDatabase(endpoint, database, username, password string, port uint16, logger *slog.Logger) *Database {
	if port == 0 {
		port = 5432
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Database{
		endpoint: endpoint,
		database: database,
		username: username,
		password: password,
		port:     port,
		logger:   logger,
	}
}

func (d *Database) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		d.username,
		d.password,
		d.endpoint,
		d.port,
		d.database,
	)
}

// Connect opens a single connection to the status database. Connection
// failures are logged and surface as a nil Conn; callers pass the result to
// the updater, which treats nil as a graceful no-op.
func (d *Database) Connect(ctx context.Context) Conn {
	conn, err := pgx.Connect(ctx, d.dsn())
	if err != nil {
		d.logger.Error("database connection failed", "endpoint", d.endpoint, "database", d.database, "error", err)
		return nil
	}

	return conn
}

// Ping opens and immediately closes a connection, for health checks.
func (d *Database) Ping(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, d.dsn())
	if err != nil {
		return err
	}

	return conn.Close(ctx)
}
