// Package taskstatus persists NLP task lifecycle state to Postgres: it
// builds the status statements, opens short-lived connections and executes
// updates in a fire-and-forget fashion, absorbing database failures into
// logs so that a broken status table never takes a task runner down.
package taskstatus

// TaskStatus is the lifecycle state of a task as stored in the status table.
type TaskStatus int

const (
	StatusInitiated TaskStatus = 1
	StatusSuccess   TaskStatus = 2
	StatusFailed    TaskStatus = 3
	// StatusRetrying shares the wire value of StatusFailed for compatibility
	// with existing tables. Retry markers are freshly inserted rows with
	// retries_count 0, which is how consumers tell them apart.
	StatusRetrying              TaskStatus = 3
	StatusInputURLProcessFailed TaskStatus = 4
)

func (s TaskStatus) String() string {
	switch s {
	case StatusInitiated:
		return "initiated"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusInputURLProcessFailed:
		return "input_url_process_failed"
	default:
		return "unknown"
	}
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusInitiated, StatusSuccess, StatusFailed, StatusInputURLProcessFailed:
		return true
	default:
		return false
	}
}
