package configs

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	Database   DatabaseConfig
	AWS        AWSConfig
	Callback   CallbackConfig
	RabbitMQ   RabbitMQConfig
	Redis      RedisConfig
}

type DatabaseConfig struct {
	Endpoint     string `envconfig:"DB_ENDPOINT"`
	Database     string `envconfig:"DB_DATABASE"`
	Username     string `envconfig:"DB_USERNAME"`
	Password     string `envconfig:"DB_PASSWORD"`
	Port         uint16 `envconfig:"DB_PORT" default:"5432"`
	SSLMode      string `envconfig:"DB_SSL_MODE" default:"require"`
	ResultsTable string `envconfig:"DB_RESULTS_TABLE" default:"task_results"`
	RetriesTable string `envconfig:"DB_RETRIES_TABLE" default:"callback_retries"`
}

type AWSConfig struct {
	Region              string `envconfig:"AWS_REGION" default:"us-east-1"`
	Bucket              string `envconfig:"RESULTS_BUCKET"`
	SignedURLExpirySecs int64  `envconfig:"SIGNED_URL_EXPIRY_SECS" default:"86400"`
}

type CallbackConfig struct {
	TimeoutSecs int64 `envconfig:"CALLBACK_TIMEOUT_SECS" default:"30"`
}

type RabbitMQConfig struct {
	Username            string `envconfig:"RABBIT_USERNAME"`
	Password            string `envconfig:"RABBIT_PASSWORD"`
	Host                string `envconfig:"RABBIT_HOST"`
	Port                string `envconfig:"RABBIT_PORT"`
	DeliveriesQueueName string `envconfig:"RESULT_DELIVERIES_QUEUE_NAME" default:"result_deliveries"`
}

type RedisConfig struct {
	Username string `envconfig:"REDIS_USERNAME"`
	Password string `envconfig:"REDIS_PASSWORD"`
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT"`
	DBIndex  int32  `envconfig:"REDIS_DB_INDEX"`
}

// ToMigrationUri returns a string specifically for the migration package with the right prefix
func (d DatabaseConfig) ToMigrationUri() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username,
		d.Password,
		d.Endpoint,
		d.Port,
		d.Database,
		d.SSLMode,
	)
}

// SignedURLExpiry returns the presigned link lifetime as a duration
func (a AWSConfig) SignedURLExpiry() time.Duration {
	return time.Duration(a.SignedURLExpirySecs) * time.Second
}

// Timeout returns the callback delivery timeout as a duration
func (c CallbackConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ToRabbitConnectionUri returns a connection URI to be used with the rabbitmq/amqp091-go package
func (d RabbitMQConfig) ToRabbitConnectionUri() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		d.Username,
		d.Password,
		d.Host,
		d.Port,
	)
}

// ToRedisConnectionUri returns a connection URI to be used with the redis/go-redis/v9 package
func (d RedisConfig) ToRedisConnectionUri() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s/%d",
		d.Username,
		d.Password,
		d.Host,
		d.Port,
		d.DBIndex,
	)
}

func InitConfig() *Config {
	err := godotenv.Load()

	if err != nil && !os.IsNotExist(err) {
		log.Fatalf("Unable to load .env %v", err)
	}

	var cfg Config
	err = envconfig.Process("", &cfg)
	if err != nil {
		fmt.Print("Cannot load env")
	}

	return &cfg
}
