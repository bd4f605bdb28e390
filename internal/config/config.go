package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	AllowAdminSignup          bool
	Database                  DatabaseConfig
	Redis                     RedisConfig
	Booking                   BookingConfig
	Retry                     RetryConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds the schedule cache connection. An empty Addr disables caching.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	ScheduleTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// BookingConfig controls how booking requests are checked against weekly windows.
type BookingConfig struct {
	EnforceWindows bool
	Location       *time.Location
}

// RetryConfig controls retries of transient persistence failures.
type RetryConfig struct {
	Attempts int
	Backoff  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "clinic"),
	}

	// Times are stored in UTC; the clinic timezone is applied in the booking rules.
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	scheduleTTL, err := getEnvDuration("SCHEDULE_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	enforceWindows, err := getEnvBool("BOOKING_ENFORCE_WINDOWS", true)
	if err != nil {
		return nil, err
	}

	tzName := getEnv("CLINIC_TIMEZONE", "UTC")
	location, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", tzName, err)
	}

	retryAttempts, err := getEnvInt("PERSISTENCE_RETRY_ATTEMPTS", 2)
	if err != nil {
		return nil, err
	}
	if retryAttempts < 1 {
		return nil, fmt.Errorf("invalid PERSISTENCE_RETRY_ATTEMPTS: must be at least 1, got %d", retryAttempts)
	}

	retryBackoff, err := getEnvDuration("PERSISTENCE_RETRY_BACKOFF", 50*time.Millisecond)
	if err != nil {
		return nil, err
	}

	allowAdminSignup, err := getEnvBool("ALLOW_ADMIN_SIGNUP", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		AllowAdminSignup:          allowAdminSignup,
		Database:                  dbConfig,
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          redisDB,
			ScheduleTTL: scheduleTTL,
		},
		Booking: BookingConfig{
			EnforceWindows: enforceWindows,
			Location:       location,
		},
		Retry: RetryConfig{
			Attempts: retryAttempts,
			Backoff:  retryBackoff,
		},
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
