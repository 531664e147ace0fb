package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  parcel_status_topic_name: "parcel.status_changed"
  rider_approved_topic_name: "rider.approved"
redis:
  host: "localhost"
  port: 6379
parcelbox:
  http_addr: ":8080"
  kafka_consumer_group: "parcel-worker"
  intent_rate_limit_per_minute: 20
auth:
  issuer: "parcelbox"
  audience: "parcelbox-web"
  secret: "file-secret"
gateway:
  mode: "fake"
  currency: "usd"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleYAML), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "parcel.status_changed", cfg.Kafka.ParcelStatusTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.ParcelBox.HTTPAddr)
	require.Equal(t, 20, cfg.ParcelBox.IntentRateLimitPerMinute)
	require.Equal(t, "file-secret", cfg.Auth.Secret)
	require.Equal(t, "fake", cfg.Gateway.Mode)
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("PARCELBOX_AUTH_SECRET", "env-secret")
	t.Setenv("PAYMENT_GATEWAY_KEY", "sk_test_123")
	t.Setenv("PARCELBOX_DB_PORT", "6543")

	cfg, err := LoadConfig(writeConfig(t))
	require.NoError(t, err)
	require.Equal(t, "env-secret", cfg.Auth.Secret)
	require.Equal(t, "sk_test_123", cfg.Gateway.APIKey)
	require.Equal(t, 6543, cfg.Database.Port)
	// untouched by env
	require.Equal(t, "parcelbox", cfg.Auth.Issuer)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfig_Addresses(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, Username: "u", Password: "p", DBName: "n"}
	require.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", d.DSN())
	d.SSLMode = "require"
	require.Equal(t, "postgres://u:p@h:1/n?sslmode=require", d.DSN())

	d.Password = "p@ss:w/rd"
	dsn, err := url.Parse(d.DSN())
	require.NoError(t, err)
	require.Equal(t, "h:1", dsn.Host)
	pw, _ := dsn.User.Password()
	require.Equal(t, "p@ss:w/rd", pw)
	require.Equal(t, "/n", dsn.Path)

	require.Equal(t, []string{"k:9092"}, KafkaConfig{Host: "k", Port: 9092}.Brokers())
	require.Equal(t, "r:6379", RedisConfig{Host: "r", Port: 6379}.Addr())
}
