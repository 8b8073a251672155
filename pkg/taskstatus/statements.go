package taskstatus

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgtype"
)

var (
	ErrInvalidTableName = errors.New("invalid table name")
	ErrMissingField     = errors.New("missing required field")
)

// Table names cannot be bound as statement parameters, so they are checked
// against a strict identifier pattern instead (optionally schema-qualified).
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Statement is a parameterized SQL statement ready to be executed. Values
// are always bound, never interpolated into the SQL text.
type Statement struct {
	SQL  string
	Args []interface{}
}

// PrepareSuccessStatement builds the update persisting a successful task:
// status plus the JSON-serialized result data.
func PrepareSuccessStatement(uniqueID, table string, status TaskStatus, responseData interface{}) (Statement, error) {
	if uniqueID == "" {
		return Statement{}, fmt.Errorf("unique id: %w", ErrMissingField)
	}
	if !tableNamePattern.MatchString(table) {
		return Statement{}, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	raw, err := json.Marshal(responseData)
	if err != nil {
		return Statement{}, fmt.Errorf("marshal response data: %w", err)
	}
	var resultData pgtype.JSON
	if err := resultData.Set(raw); err != nil {
		return Statement{}, fmt.Errorf("bind response data: %w", err)
	}

	return Statement{
		SQL:  fmt.Sprintf("UPDATE %s SET status = $1, result_data = $2 WHERE unique_id = $3", table),
		Args: []interface{}{int(status), resultData, uniqueID},
	}, nil
}

// PrepareFailureStatement builds the update persisting a failed task.
func PrepareFailureStatement(uniqueID, table string, status TaskStatus) (Statement, error) {
	if uniqueID == "" {
		return Statement{}, fmt.Errorf("unique id: %w", ErrMissingField)
	}
	if !tableNamePattern.MatchString(table) {
		return Statement{}, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	return Statement{
		SQL:  fmt.Sprintf("UPDATE %s SET status = $1 WHERE unique_id = $2", table),
		Args: []interface{}{int(status), uniqueID},
	}, nil
}

// PrepareCallbackRetryStatement builds the insert marking a task for
// callback redelivery. Both timestamps are the current wall-clock time and
// the retry counter starts at zero.
func PrepareCallbackRetryStatement(uniqueID, table string) (Statement, error) {
	if uniqueID == "" {
		return Statement{}, fmt.Errorf("unique id: %w", ErrMissingField)
	}
	if !tableNamePattern.MatchString(table) {
		return Statement{}, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	now := time.Now().UTC()
	return Statement{
		SQL: fmt.Sprintf(
			"INSERT INTO %s (request_unique_id, created_at, modified_at, retries_count, status) VALUES ($1, $2, $3, 0, $4)",
			table,
		),
		Args: []interface{}{uniqueID, now, now, int(StatusRetrying)},
	}, nil
}
