// Package delivery drives a staged result through the delivery sequence:
// upload to S3, presign, notify the callback URL, and persist the outcome
// to the status tables.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/the-deep-nlp/nlp-modules-utils/internal/domain"
	"github.com/the-deep-nlp/nlp-modules-utils/pkg/taskstatus"
)

// ObjectStore stages payloads and mints retrieval links.
type ObjectStore interface {
	UploadText(ctx context.Context, contents, contentType, bucket, key string, expiry time.Duration) string
}

// Notifier delivers payloads to callback endpoints.
type Notifier interface {
	Send(ctx context.Context, callbackURL string, payload interface{}, headers map[string]string) *http.Response
}

// Connector opens short-lived status-table connections.
type Connector interface {
	Connect(ctx context.Context) taskstatus.Conn
}

type Pipeline struct {
	connector       Connector
	store           ObjectStore
	notifier        Notifier
	updater         *taskstatus.Updater
	validate        *validator.Validate
	bucket          string
	resultsTable    string
	retriesTable    string
	signedURLExpiry time.Duration
	logger          *slog.Logger
}

func NewPipeline(
	connector Connector,
	store ObjectStore,
	notifier Notifier,
	updater *taskstatus.Updater,
	bucket, resultsTable, retriesTable string,
	signedURLExpiry time.Duration,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		connector:       connector,
		store:           store,
		notifier:        notifier,
		updater:         updater,
		validate:        validator.New(),
		bucket:          bucket,
		resultsTable:    resultsTable,
		retriesTable:    retriesTable,
		signedURLExpiry: signedURLExpiry,
		logger:          logger,
	}
}

// Deliver runs one delivery end to end. Every failure mode ends in a status
// write rather than an error return: a broken upload marks the task failed,
// a rejected or undeliverable callback records a retry marker, a delivered
// callback persists success together with the result data.
func (p *Pipeline) Deliver(ctx context.Context, msg domain.ResultDelivery) {
	if err := p.validate.Struct(msg); err != nil {
		p.logger.Error("invalid result delivery message, ignoring it", "unique_id", msg.UniqueID, "error", err)
		return
	}

	contentType := msg.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	key := fmt.Sprintf("task_results/%s.json", msg.UniqueID)
	presignedURL := p.store.UploadText(ctx, string(msg.Result), contentType, p.bucket, key, p.signedURLExpiry)
	if presignedURL == "" {
		p.logger.Error("failed to stage result, marking task as failed", "unique_id", msg.UniqueID)
		p.markFailed(ctx, msg.UniqueID)
		return
	}
	p.logger.Info("result staged", "unique_id", msg.UniqueID, "bucket", p.bucket, "key", key)

	payload := map[string]interface{}{
		"unique_id":        msg.UniqueID,
		"status":           int(taskstatus.StatusSuccess),
		"presigned_s3_url": presignedURL,
	}
	resp := p.notifier.Send(ctx, msg.CallbackURL, payload, msg.Headers)
	if resp == nil {
		p.logger.Error("callback delivery failed, recording retry marker", "unique_id", msg.UniqueID)
		p.updater.RecordCallbackRetry(ctx, p.connector.Connect(ctx), msg.UniqueID, p.retriesTable)
		return
	}
	if err := resp.Body.Close(); err != nil {
		p.logger.Error("error while closing callback response body", "error", err)
	}

	stmt, err := taskstatus.PrepareSuccessStatement(msg.UniqueID, p.resultsTable, taskstatus.StatusSuccess, msg.Result)
	if err != nil {
		p.logger.Error("failed to build success statement", "unique_id", msg.UniqueID, "error", err)
		return
	}
	p.updater.UpdateStatus(ctx, p.connector.Connect(ctx), stmt)
	p.logger.Info("result delivered", "unique_id", msg.UniqueID)
}

func (p *Pipeline) markFailed(ctx context.Context, uniqueID string) {
	stmt, err := taskstatus.PrepareFailureStatement(uniqueID, p.resultsTable, taskstatus.StatusFailed)
	if err != nil {
		p.logger.Error("failed to build failure statement", "unique_id", uniqueID, "error", err)
		return
	}

	p.updater.UpdateStatus(ctx, p.connector.Connect(ctx), stmt)
}
