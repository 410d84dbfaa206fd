package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB       int    `mapstructure:"REDIS_CACHE_DB"`
	RedisNotifyQueueDB int    `mapstructure:"REDIS_NOTIFY_QUEUE_DB"`

	// Booking policy defaults, applied when an instructor has no profile yet.
	DefaultMinAdvanceHours   int     `mapstructure:"DEFAULT_MIN_ADVANCE_HOURS"`
	DefaultMaxAdvanceDays    int     `mapstructure:"DEFAULT_MAX_ADVANCE_DAYS"`
	DefaultSlotDurationHours float64 `mapstructure:"DEFAULT_SLOT_DURATION_HOURS"`
	DefaultBufferMinutes     int     `mapstructure:"DEFAULT_BUFFER_MINUTES"`
	DailyBookingLimit        int     `mapstructure:"DAILY_BOOKING_LIMIT"`

	// Reconciliation sweep cadences and reminder lookahead, in minutes.
	MissedSweepIntervalMin   int `mapstructure:"MISSED_SWEEP_INTERVAL_MIN"`
	ReminderSweepIntervalMin int `mapstructure:"REMINDER_SWEEP_INTERVAL_MIN"`
	ReminderLookaheadMin     int `mapstructure:"REMINDER_LOOKAHEAD_MIN"`

	// Timeout for calls to external collaborators (ledger, room provisioning).
	ExternalTimeoutSec int `mapstructure:"EXTERNAL_TIMEOUT_SEC"`

	// Notification dispatch rate, messages per second.
	NotifyRatePerSec int `mapstructure:"NOTIFY_RATE_PER_SEC"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_NOTIFY_QUEUE_DB", 1)
	viper.SetDefault("DEFAULT_MIN_ADVANCE_HOURS", 2)
	viper.SetDefault("DEFAULT_MAX_ADVANCE_DAYS", 30)
	viper.SetDefault("DEFAULT_SLOT_DURATION_HOURS", 1.0)
	viper.SetDefault("DEFAULT_BUFFER_MINUTES", 0)
	viper.SetDefault("DAILY_BOOKING_LIMIT", 5)
	viper.SetDefault("MISSED_SWEEP_INTERVAL_MIN", 60)
	viper.SetDefault("REMINDER_SWEEP_INTERVAL_MIN", 15)
	viper.SetDefault("REMINDER_LOOKAHEAD_MIN", 60)
	viper.SetDefault("EXTERNAL_TIMEOUT_SEC", 5)
	viper.SetDefault("NOTIFY_RATE_PER_SEC", 20)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
