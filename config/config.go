package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	ParcelBox ParcelBoxConfig `yaml:"parcelbox"`
	Auth      AuthConfig      `yaml:"auth"`
	Gateway   GatewayConfig   `yaml:"gateway"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"PARCELBOX_DB_HOST"`
	Port     int    `yaml:"port" env:"PARCELBOX_DB_PORT"`
	Username string `yaml:"username" env:"PARCELBOX_DB_USER"`
	Password string `yaml:"password" env:"PARCELBOX_DB_PASSWORD"`
	DBName   string `yaml:"name" env:"PARCELBOX_DB_NAME"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host" env:"PARCELBOX_KAFKA_HOST"`
	Port                     int    `yaml:"port" env:"PARCELBOX_KAFKA_PORT"`
	ParcelStatusTopicName    string `yaml:"parcel_status_topic_name"`
	PaymentRecordedTopicName string `yaml:"payment_recorded_topic_name"`
	RiderApprovedTopicName   string `yaml:"rider_approved_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host" env:"PARCELBOX_REDIS_HOST"`
	Port int    `yaml:"port" env:"PARCELBOX_REDIS_PORT"`
}

type ParcelBoxConfig struct {
	HTTPAddr           string `yaml:"http_addr" env:"PARCELBOX_HTTP_ADDR"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// Payment intents: per-principal limit per minute and how long an
	// Idempotency-Key keeps returning the same client secret.
	IntentRateLimitPerMinute    int `yaml:"intent_rate_limit_per_minute"`
	IntentIdempotencyTTLSeconds int `yaml:"intent_idempotency_ttl_seconds"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
}

type AuthConfig struct {
	Issuer   string `yaml:"issuer" env:"PARCELBOX_AUTH_ISSUER"`
	Audience string `yaml:"audience" env:"PARCELBOX_AUTH_AUDIENCE"`
	Secret   string `yaml:"secret" env:"PARCELBOX_AUTH_SECRET"`
}

type GatewayConfig struct {
	Mode     string `yaml:"mode" env:"PARCELBOX_GATEWAY_MODE"` // "stripe" | "fake"
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key" env:"PAYMENT_GATEWAY_KEY"`
	Currency string `yaml:"currency"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	// Secrets usually come from the environment and win over the file.
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse env overrides: %w", err)
	}

	return &config, nil
}

// DSN builds the pgx connection URL, escaping credentials and defaulting
// sslmode to disable.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
