package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	DynamoDB    DynamoDBConfig    `yaml:"dynamodb"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Agent       AgentConfig       `yaml:"agent"`
	Geocoding   GeocodingConfig   `yaml:"geocoding"`
	ActivityAPI ActivityAPIConfig `yaml:"activity_api"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	ActivityLoggedTopicName string `yaml:"activity_logged_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DynamoDBConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	TableName string `yaml:"table_name"`
}

type MQTTConfig struct {
	BrokerURL   string `yaml:"broker_url"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type AgentConfig struct {
	DeviceID string `yaml:"device_id"`
	HTTPAddr string `yaml:"http_addr"`

	// "fake" | "http" | "mqtt"
	Provider        string `yaml:"provider"`
	ProviderBaseURL string `yaml:"provider_base_url"`

	// Zero means default: 600000 ms.
	MaxAgeMs int `yaml:"max_age_ms"`

	LowAccuracyTimeoutMs     int `yaml:"low_accuracy_timeout_ms"`
	StaleRefreshTimeoutMs    int `yaml:"stale_refresh_timeout_ms"`
	WatchTimeoutMs           int `yaml:"watch_timeout_ms"`
	HighAccuracyTimeoutMs    int `yaml:"high_accuracy_timeout_ms"`
	PermissionProbeTimeoutMs int `yaml:"permission_probe_timeout_ms"`

	DefaultLatitude  float64 `yaml:"default_latitude"`
	DefaultLongitude float64 `yaml:"default_longitude"`

	ActivityEndpoint string `yaml:"activity_endpoint"`
	FallbackDBPath   string `yaml:"fallback_db_path"`
	FallbackCapacity int    `yaml:"fallback_capacity"`

	ReplayIntervalSeconds int `yaml:"replay_interval_seconds"`
	ReplayBatchSize       int `yaml:"replay_batch_size"`

	Device         string `yaml:"device"`
	Browser        string `yaml:"browser"`
	BrowserVersion string `yaml:"browser_version"`
	OS             string `yaml:"os"`
}

type GeocodingConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`
}

type ActivityAPIConfig struct {
	GRPCAddr           string `yaml:"grpc_addr"`
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// "postgres" | "dynamodb"
	Storage string `yaml:"storage"`

	LastLocationTTLSeconds int `yaml:"last_location_ttl_seconds"`
	RateLimitPerMinute     int `yaml:"rate_limit_per_minute"`
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

	return &config, nil
}

func (c DatabaseConfig) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.DBName, sslMode)
}

func (c KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Host, c.Port)}
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
