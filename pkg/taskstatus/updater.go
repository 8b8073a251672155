package taskstatus

import (
	"context"
	"log/slog"
)

// Updater executes status statements against caller-supplied connections.
// It never returns errors: execution failures are logged and swallowed, and
// the connection is closed on every exit path.
type Updater struct {
	logger *slog.Logger
}

// NewUpdater builds an Updater. A nil logger falls back to slog.Default().
func NewUpdater(logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}

	return &Updater{logger: logger}
}

// UpdateStatus executes one statement on conn and closes conn afterwards,
// whether or not execution succeeded. A nil conn is a no-op, which is how a
// failed Database.Connect degrades.
func (u *Updater) UpdateStatus(ctx context.Context, conn Conn, stmt Statement) {
	if conn == nil {
		u.logger.Warn("skipping status update, no database connection")
		return
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			u.logger.Error("error occurred while closing database connection", "error", err)
		}
	}()

	tag, err := conn.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		u.logger.Error("error occurred while executing status statement", "error", err)
		return
	}

	u.logger.Info("db updated", "rows_affected", tag.RowsAffected())
}

// RecordCallbackRetry inserts a retry-marker row for the given task. Both
// uniqueID and table are required; when either is missing the database is
// left untouched and only an error is logged.
func (u *Updater) RecordCallbackRetry(ctx context.Context, conn Conn, uniqueID, table string) {
	if uniqueID == "" || table == "" {
		u.logger.Error("failed to record callback retry, some missing fields", "unique_id", uniqueID, "table", table)
		return
	}

	stmt, err := PrepareCallbackRetryStatement(uniqueID, table)
	if err != nil {
		u.logger.Error("failed to build callback retry statement", "unique_id", uniqueID, "table", table, "error", err)
		return
	}

	u.UpdateStatus(ctx, conn, stmt)
	u.logger.Info("updated the db table for callback retries", "unique_id", uniqueID, "table", table)
}
