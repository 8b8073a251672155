package domain

import "encoding/json"

// ResultDelivery is the message a task runner enqueues once upstream NLP
// processing has produced a result that must be staged and delivered.
type ResultDelivery struct {
	UniqueID    string            `json:"unique_id" validate:"required"`
	CallbackURL string            `json:"callback_url" validate:"required,url"`
	ContentType string            `json:"content_type"`
	Result      json.RawMessage   `json:"result" validate:"required"`
	Headers     map[string]string `json:"headers"`
}
