package delivery

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-deep-nlp/nlp-modules-utils/internal/domain"
	"github.com/the-deep-nlp/nlp-modules-utils/pkg/taskstatus"
)

type fakeConn struct {
	sql  string
	args []interface{}
}

func (f *fakeConn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (f *fakeConn) Close(ctx context.Context) error { return nil }

type fakeConnector struct {
	conns []*fakeConn
}

func (f *fakeConnector) Connect(ctx context.Context) taskstatus.Conn {
	c := &fakeConn{}
	f.conns = append(f.conns, c)
	return c
}

type fakeStore struct {
	url         string
	calls       int
	contents    string
	contentType string
	key         string
}

func (f *fakeStore) UploadText(ctx context.Context, contents, contentType, bucket, key string, expiry time.Duration) string {
	f.calls++
	f.contents = contents
	f.contentType = contentType
	f.key = key
	return f.url
}

type fakeNotifier struct {
	delivered bool
	calls     int
	url       string
	payload   interface{}
}

func (f *fakeNotifier) Send(ctx context.Context, callbackURL string, payload interface{}, headers map[string]string) *http.Response {
	f.calls++
	f.url = callbackURL
	f.payload = payload
	if !f.delivered {
		return nil
	}

	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}
}

func newTestPipeline(connector *fakeConnector, store *fakeStore, notifier *fakeNotifier) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPipeline(
		connector,
		store,
		notifier,
		taskstatus.NewUpdater(logger),
		"results-bucket",
		"task_results",
		"callback_retries",
		24*time.Hour,
		logger,
	)
}

func testMessage() domain.ResultDelivery {
	return domain.ResultDelivery{
		UniqueID:    "abc-123",
		CallbackURL: "https://callback.local/hook",
		Result:      json.RawMessage(`{"summary":"ok"}`),
	}
}

func TestDeliver_Success(t *testing.T) {
	connector := &fakeConnector{}
	store := &fakeStore{url: "https://presigned.local/abc-123"}
	notifier := &fakeNotifier{delivered: true}

	newTestPipeline(connector, store, notifier).Deliver(context.Background(), testMessage())

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, `{"summary":"ok"}`, store.contents)
	assert.Equal(t, "application/json", store.contentType)
	assert.Equal(t, "task_results/abc-123.json", store.key)

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "https://callback.local/hook", notifier.url)
	payload, ok := notifier.payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc-123", payload["unique_id"])
	assert.Equal(t, int(taskstatus.StatusSuccess), payload["status"])
	assert.Equal(t, store.url, payload["presigned_s3_url"])

	require.Len(t, connector.conns, 1)
	assert.Equal(t, "UPDATE task_results SET status = $1, result_data = $2 WHERE unique_id = $3", connector.conns[0].sql)
	assert.Equal(t, "abc-123", connector.conns[0].args[2])
}

func TestDeliver_CallbackFailureRecordsRetry(t *testing.T) {
	connector := &fakeConnector{}
	store := &fakeStore{url: "https://presigned.local/abc-123"}
	notifier := &fakeNotifier{delivered: false}

	newTestPipeline(connector, store, notifier).Deliver(context.Background(), testMessage())

	require.Len(t, connector.conns, 1)
	assert.Contains(t, connector.conns[0].sql, "INSERT INTO callback_retries")
	assert.Equal(t, "abc-123", connector.conns[0].args[0])
}

func TestDeliver_UploadFailureMarksTaskFailed(t *testing.T) {
	connector := &fakeConnector{}
	store := &fakeStore{url: ""}
	notifier := &fakeNotifier{delivered: true}

	newTestPipeline(connector, store, notifier).Deliver(context.Background(), testMessage())

	assert.Equal(t, 0, notifier.calls)
	require.Len(t, connector.conns, 1)
	assert.Equal(t, "UPDATE task_results SET status = $1 WHERE unique_id = $2", connector.conns[0].sql)
	assert.Equal(t, []interface{}{int(taskstatus.StatusFailed), "abc-123"}, connector.conns[0].args)
}

func TestDeliver_InvalidMessageIsIgnored(t *testing.T) {
	connector := &fakeConnector{}
	store := &fakeStore{url: "https://presigned.local/abc-123"}
	notifier := &fakeNotifier{delivered: true}
	p := newTestPipeline(connector, store, notifier)

	msg := testMessage()
	msg.UniqueID = ""
	p.Deliver(context.Background(), msg)

	msg = testMessage()
	msg.CallbackURL = "not a url"
	p.Deliver(context.Background(), msg)

	assert.Equal(t, 0, store.calls)
	assert.Equal(t, 0, notifier.calls)
	assert.Empty(t, connector.conns)
}

func TestDeliver_CustomContentType(t *testing.T) {
	connector := &fakeConnector{}
	store := &fakeStore{url: "https://presigned.local/abc-123"}
	notifier := &fakeNotifier{delivered: true}

	msg := testMessage()
	msg.ContentType = "text/plain"
	msg.Result = json.RawMessage(`"plain summary"`)
	newTestPipeline(connector, store, notifier).Deliver(context.Background(), msg)

	assert.Equal(t, "text/plain", store.contentType)
}
