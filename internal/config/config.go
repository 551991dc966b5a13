package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the service configuration
type Config struct {
	Port     int
	LogLevel string
	Env      string
	DB       DBConfig
	Kafka    KafkaConfig
	Carrier  CarrierConfig
	Limits   LimitsConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the Kafka configuration
type KafkaConfig struct {
	Brokers        []string
	EventsTopic    string
	InventoryTopic string
	ConsumerGroup  string
}

// CarrierConfig holds the carrier tracking service configuration
type CarrierConfig struct {
	BaseURL string
}

// LimitsConfig holds the rate limiting knobs
type LimitsConfig struct {
	GlobalMaxTokens  float64
	GlobalRefillRate float64
	IPMaxTokens      float64
	IPRefillRate     float64
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	globalMax, err := getEnvFloat("RATE_GLOBAL_MAX_TOKENS", 200)
	if err != nil {
		return nil, err
	}
	globalRate, err := getEnvFloat("RATE_GLOBAL_REFILL_RATE", 100)
	if err != nil {
		return nil, err
	}
	ipMax, err := getEnvFloat("RATE_IP_MAX_TOKENS", 20)
	if err != nil {
		return nil, err
	}
	ipRate, err := getEnvFloat("RATE_IP_REFILL_RATE", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "tarpmill"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			EventsTopic:    getEnv("KAFKA_EVENTS_TOPIC", "erp.events"),
			InventoryTopic: getEnv("KAFKA_INVENTORY_TOPIC", "erp.inventory"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "erp-api"),
		},
		Carrier: CarrierConfig{
			BaseURL: getEnv("CARRIER_API_URL", "http://localhost:8090"),
		},
		Limits: LimitsConfig{
			GlobalMaxTokens:  globalMax,
			GlobalRefillRate: globalRate,
			IPMaxTokens:      ipMax,
			IPRefillRate:     ipRate,
		},
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
