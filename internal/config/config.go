package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OutboxBackend selects which store family the relay polls.
type OutboxBackend string

const (
	BackendPostgres OutboxBackend = "postgres"
	BackendMongo    OutboxBackend = "mongodb"
)

type Config struct {
	DBConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string

	KafkaBrokerURL      string
	KafkaOrderDataTopic string
	KafkaOutboxTopic    string
	KafkaConsumerGroup  string

	OutboxBackend      OutboxBackend
	OutboxTable        string
	OutboxPendingLabel string
	OutboxSentLabel    string
	OutboxPollInterval time.Duration

	StreamKey          string
	DeadLetterStream   string
	StreamGroup        string
	StreamConsumerName string

	InboundDrainInterval time.Duration

	HTTPPort       int
	MigrationsPath string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DBConfig.Host = getEnvOrDefault("TRADEFLOW_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("TRADEFLOW_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("TRADEFLOW_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("TRADEFLOW_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("TRADEFLOW_DB_NAME", "tradeflow_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("TRADEFLOW_DB_SSLMODE", "disable")

	cfg.MongoURI = getEnvOrDefault("TRADEFLOW_MONGO_URI", "mongodb://localhost:27017")
	cfg.MongoDatabase = getEnvOrDefault("TRADEFLOW_MONGO_DATABASE", "tradeflow")

	cfg.RedisAddr = getEnvOrDefault("TRADEFLOW_REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvOrDefault("TRADEFLOW_REDIS_PASSWORD", "")

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaOrderDataTopic = getEnvOrDefault("KAFKA_ORDER_DATA_TOPIC", "order_data")
	cfg.KafkaOutboxTopic = getEnvOrDefault("KAFKA_OUTBOX_TOPIC", "order_events")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "tradeflow-order-data-group")

	backend := getEnvOrDefault("OUTBOX_BACKEND", string(BackendPostgres))
	switch OutboxBackend(backend) {
	case BackendPostgres, BackendMongo:
		cfg.OutboxBackend = OutboxBackend(backend)
	default:
		return nil, fmt.Errorf("unsupported outbox backend %q", backend)
	}
	cfg.OutboxTable = getEnvOrDefault("OUTBOX_TABLE", "outbox_events")
	cfg.OutboxPendingLabel = getEnvOrDefault("OUTBOX_PENDING_LABEL", "PENDING")
	cfg.OutboxSentLabel = getEnvOrDefault("OUTBOX_SENT_LABEL", "SENT")
	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 3*time.Second)

	cfg.StreamKey = getEnvOrDefault("STATUS_STREAM_KEY", "status-stream")
	cfg.DeadLetterStream = getEnvOrDefault("STATUS_DLQ_STREAM_KEY", "status-stream-dlq")
	cfg.StreamGroup = getEnvOrDefault("STATUS_STREAM_GROUP", "status-group")
	cfg.StreamConsumerName = getEnvOrDefault("STATUS_STREAM_CONSUMER", defaultConsumerName())

	cfg.InboundDrainInterval = getEnvAsDuration("INBOUND_DRAIN_INTERVAL", 1*time.Second)

	cfg.HTTPPort = getEnvAsInt("HTTP_PORT", 8080)
	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func defaultConsumerName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "consumer-1"
	}
	return hostname
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
