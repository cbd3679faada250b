package config

import (
	"fmt"
	"log"
	"time"

	"courtcal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	// TrustedProxies are the CIDRs or IPs whose X-Forwarded-For is believed. Empty trusts none.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	// Storage. STORE is "mongo" or "memory".
	Store        string `mapstructure:"STORE"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Scheduling.
	Timezone           string        `mapstructure:"TIMEZONE"`
	TentativeBlocking  bool          `mapstructure:"TENTATIVE_BLOCKING"`
	MaxReserveAttempts int           `mapstructure:"MAX_RESERVE_ATTEMPTS"`
	MaxOccurrences     int           `mapstructure:"MAX_OCCURRENCES"`
	SlotCacheTTL       time.Duration `mapstructure:"SLOT_CACHE_TTL"`
	IdempotencyTTL     time.Duration `mapstructure:"IDEMPOTENCY_TTL"`

	// Deadlines.
	FederalHolidays bool     `mapstructure:"FEDERAL_HOLIDAYS"`
	Holidays        []string `mapstructure:"HOLIDAYS"`
	ReminderHour    int      `mapstructure:"REMINDER_HOUR"`
	SweepCron       string   `mapstructure:"SWEEP_CRON"`

	// Events. EVENT_SINK is "asynq", "kafka" or "log".
	EventSink    string `mapstructure:"EVENT_SINK"`
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	// Tracing.
	OtelEnabled     bool    `mapstructure:"OTEL_ENABLED"`
	OtelEndpoint    string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelSampleRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`

	WorkingHours models.WeeklyHours        `mapstructure:"WORKING_HOURS"`
	Resources    []models.BookableResource `mapstructure:"RESOURCES"`
}

var AppConfig Config

func LoadConfig() {
	if err := godotenv.Load(".env"); err == nil {
		log.Println("Loaded environment from .env")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("TRUSTED_PROXIES", []string{})
	v.SetDefault("STORE", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "courtcal")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("TENTATIVE_BLOCKING", false)
	v.SetDefault("MAX_RESERVE_ATTEMPTS", 3)
	v.SetDefault("MAX_OCCURRENCES", 1000)
	v.SetDefault("SLOT_CACHE_TTL", "10m")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("FEDERAL_HOLIDAYS", true)
	v.SetDefault("REMINDER_HOUR", 8)
	v.SetDefault("SWEEP_CRON", "0 6 * * *")
	v.SetDefault("EVENT_SINK", "asynq")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "scheduling.events")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)
}

// Validate checks the values that would otherwise fail deep inside a request.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	switch c.Store {
	case "mongo", "memory":
	default:
		return fmt.Errorf("STORE must be mongo or memory, got %q", c.Store)
	}
	switch c.EventSink {
	case "asynq", "kafka", "log":
	default:
		return fmt.Errorf("EVENT_SINK must be asynq, kafka or log, got %q", c.EventSink)
	}
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be within 0-23, got %d", c.ReminderHour)
	}
	if err := c.WorkingHours.Validate(); err != nil {
		return fmt.Errorf("WORKING_HOURS: %w", err)
	}
	for _, r := range c.Resources {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("RESOURCES %s: %w", r.ID, err)
		}
	}
	return nil
}

// Location resolves TIMEZONE. Call after LoadConfig.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultHours is WORKING_HOURS, or Monday to Friday 9:00 to 17:00 when unset.
func (c Config) DefaultHours() models.WeeklyHours {
	if len(c.WorkingHours) == 0 {
		return models.StandardWeek(9*60, 17*60)
	}
	return c.WorkingHours
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
