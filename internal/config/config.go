package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for a service process. Each service reads
// the sections it needs; defaults make a local docker-compose setup work
// without any environment at all.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Outbox    OutboxConfig
	Payment   PaymentConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type OutboxConfig struct {
	RelayInterval time.Duration
	BatchSize     int
	RetentionDays int
	SweepInterval time.Duration
}

type PaymentConfig struct {
	// SuccessRate drives the simulated settlement outcome; ForceOutcome
	// ("success" or "fail") overrides it for deterministic tests.
	SuccessRate  float64
	ForceOutcome string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	CreateLimit  int
	CreateWindow time.Duration
	ReadLimit    int
	ReadWindow   time.Duration
}

// Load reads configuration from the environment, with .env as a convenience
// for local runs. dbName is the service's own database default.
func Load(serviceName, dbName, defaultPort string) *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("APP_PORT", defaultPort),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", dbName),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", serviceName),
		},
		Outbox: OutboxConfig{
			RelayInterval: getEnvAsDuration("OUTBOX_RELAY_INTERVAL", 500*time.Millisecond),
			BatchSize:     getEnvAsInt("OUTBOX_BATCH_SIZE", 100),
			RetentionDays: getEnvAsInt("OUTBOX_RETENTION_DAYS", 7),
			SweepInterval: getEnvAsDuration("OUTBOX_SWEEP_INTERVAL", time.Hour),
		},
		Payment: PaymentConfig{
			SuccessRate:  getEnvAsFloat("PAYMENT_SUCCESS_RATE", 0.8),
			ForceOutcome: getEnv("PAYMENT_FORCE_OUTCOME", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			CreateLimit:  getEnvAsInt("RATELIMIT_CREATE_PER_MIN", 60),
			CreateWindow: time.Minute,
			ReadLimit:    getEnvAsInt("RATELIMIT_READ_PER_MIN", 600),
			ReadWindow:   time.Minute,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
