package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tickets  TicketConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	AllowDatabaseReset bool
	MetricsEnabled     bool
}

type DatabaseConfig struct {
	Driver         string // "postgres" or "sqlite"
	URL            string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectRetries int
}

type RedisConfig struct {
	Enabled    bool
	Addr       string
	InsightTTL time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topics  TopicConfig
}

type TopicConfig struct {
	Tickets string
	Events  string
}

// TicketConfig holds the code generator options and the QR sealing key.
type TicketConfig struct {
	CodePrefix      string
	CodeDigits      int
	MaxCodeAttempts int
	QRSecretKey     string
}

type LogConfig struct {
	Dir     string
	Service string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", ":8050"),
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
			AllowDatabaseReset: getEnvBool("ALLOW_DATABASE_RESET", false),
			MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "sqlite"),
			URL:            getEnv("DATABASE_URL", "file:ticketing.db?cache=shared"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:    time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		},
		Redis: RedisConfig{
			Enabled:    getEnvBool("REDIS_ENABLED", false),
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			InsightTTL: getEnvDuration("INSIGHTS_CACHE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topics: TopicConfig{
				Tickets: getEnv("KAFKA_TOPIC_TICKETS", "ticketing.tickets"),
				Events:  getEnv("KAFKA_TOPIC_EVENTS", "ticketing.events"),
			},
		},
		Tickets: TicketConfig{
			CodePrefix:      getEnv("TICKET_CODE_PREFIX", "MANBD"),
			CodeDigits:      getEnvInt("TICKET_CODE_DIGITS", 6),
			MaxCodeAttempts: getEnvInt("TICKET_CODE_MAX_ATTEMPTS", 10),
			QRSecretKey:     getEnv("QR_SECRET_KEY", ""),
		},
		Log: LogConfig{
			Dir:     getEnv("LOG_DIR", "logs"),
			Service: getEnv("SERVICE_NAME", "ticket-service"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
