package domain

type Queue interface {
	IsHealthy() bool
	PublishMessage(body string) error
	ConsumeMessages(consumerName string, handler func(string)) error
	Close() error
}
