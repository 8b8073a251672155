// Package callback delivers task results to caller-supplied HTTP endpoints.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Limit on how much of an error response body gets pulled into the logs.
const maxLoggedBody = 1 << 20

// Doer abstracts the HTTP client so tests can fake transport behavior.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier POSTs JSON payloads to callback URLs. Delivery failures are
// logged and surface as a nil response; retry is the caller's concern.
type Notifier struct {
	client Doer
	logger *slog.Logger
}

// NewNotifier builds a Notifier. A nil client falls back to an http.Client
// with a 30 second timeout, a nil logger to slog.Default().
func NewNotifier(client Doer, logger *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		client: client,
		logger: logger,
	}
}

// Send POSTs the JSON-encoded payload to callbackURL with the given headers.
// Only HTTP 200 counts as delivered: the response is returned as-is and the
// caller owns closing its body. Transport errors and non-200 statuses are
// logged and yield nil.
func (n *Notifier) Send(ctx context.Context, callbackURL string, payload interface{}, headers map[string]string) *http.Response {
	n.logger.Info("sending the data to the callback url", "url", callbackURL)

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("error occurred while marshalling callback payload", "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("error occurred while building callback request", "url", callbackURL, "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("exception occurred while sending request", "url", callbackURL, "error", err)
		return nil
	}

	n.logger.Info("response received from callback url", "status_code", resp.StatusCode)
	if resp.StatusCode == http.StatusOK {
		n.logger.Info("successfully sent the request on callback url")
		return resp
	}

	n.logger.Error("error while sending the request on callback url", "status_code", resp.StatusCode)
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	if err := resp.Body.Close(); err != nil {
		n.logger.Error("error while closing callback response body", "error", err)
	}
	if readErr != nil || len(respBody) == 0 {
		n.logger.Info("the response error message is not available")
	} else {
		n.logger.Info("callback endpoint rejected the payload", "response", string(respBody), "payload", string(body))
	}

	return nil
}
