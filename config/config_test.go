package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  activity_logged_topic_name: "activity.logged"
redis:
  host: "localhost"
  port: 6379
mqtt:
  broker_url: "tcp://localhost:1883"
agent:
  device_id: "rep-17"
  provider: "mqtt"
  max_age_ms: 300000
  activity_endpoint: "http://localhost:8080"
  fallback_capacity: 50
geocoding:
  api_key: "k"
activity_api:
  http_addr: ":8080"
  storage: "dynamodb"
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "activity.logged", cfg.Kafka.ActivityLoggedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, "rep-17", cfg.Agent.DeviceID)
	require.Equal(t, "mqtt", cfg.Agent.Provider)
	require.Equal(t, 300000, cfg.Agent.MaxAgeMs)
	require.Equal(t, 50, cfg.Agent.FallbackCapacity)
	require.Equal(t, "k", cfg.Geocoding.APIKey)
	require.Equal(t, ":8080", cfg.ActivityAPI.HTTPAddr)
	require.Equal(t, "dynamodb", cfg.ActivityAPI.Storage)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConnStrings(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Host: "h", Port: 5432, Username: "u", Password: "p", DBName: "d"},
		Kafka:    KafkaConfig{Host: "k", Port: 9092},
		Redis:    RedisConfig{Host: "r", Port: 6379},
	}
	require.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.Database.ConnString())
	require.Equal(t, []string{"k:9092"}, cfg.Kafka.Brokers())
	require.Equal(t, "r:6379", cfg.Redis.Addr())
}
