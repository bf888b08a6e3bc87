// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting the logbook service reads at startup.
type Config struct {
	// HTTP
	Port              string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// MongoDB snapshot archive, disabled when MongoURI is empty
	MongoURI        string
	MongoDB         string
	MongoCollection string

	// MQTT alert notifications, disabled when MQTTBroker is empty
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	// Redis alert dedup, disabled when RedisAddr is empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AlertDedupTTL time.Duration

	// Auth
	JWTSecret string
	JWTExpiry time.Duration
	Operators string // user:role:bcrypthash entries separated by ';'

	// Demo data
	SeedDemo bool
}

// Load reads the .env files given (or ./.env) and then the process environment.
// A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "logbook"),
		MongoCollection:   getEnv("MONGO_COLLECTION", "vehicles"),
		MQTTBroker:        os.Getenv("MQTT_BROKER"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "vehicle-logbook"),
		MQTTTopicPrefix:   getEnv("MQTT_TOPIC_PREFIX", "logbook"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		AlertDedupTTL:     getEnvDuration("ALERT_DEDUP_TTL", 24*time.Hour),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		Operators:         os.Getenv("OPERATORS"),
		SeedDemo:          getEnvBool("SEED_DEMO", true),
	}

	if cfg.RateLimitRequests <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", cfg.RateLimitRequests)
	}
	return cfg, nil
}

// ConfigureLogger applies the level and format to the standard logrus logger.
func (c *Config) ConfigureLogger() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("log_level", c.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).Warn("Invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("key", key).Warn("Invalid duration, using default")
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
