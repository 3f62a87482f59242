package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Appointment backend.
	BackendBaseURL string
	BackendToken   string
	BackendTimeout time.Duration

	// Calendar behavior.
	Timezone       string
	QueryWeekStart string
	FirstDayOfWeek string
	DefaultView    string
	DaysCount      int
	Locale         string
	TimeFormat     string
	SettingsPath   string

	// Sessions.
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	SessionTTL      time.Duration
	SessionIdle     time.Duration
	JanitorSchedule string

	DatabaseURL string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendBaseURL: strings.TrimRight(strings.TrimSpace(getEnv("BACKEND_BASE_URL", "http://localhost:3000/api/v1")), "/"),
		BackendToken:   getEnv("BACKEND_TOKEN", ""),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),

		Timezone:       getEnv("CALENDAR_TIMEZONE", "America/Sao_Paulo"),
		QueryWeekStart: strings.ToLower(getEnv("CALENDAR_QUERY_WEEK_START", "monday")),
		FirstDayOfWeek: strings.ToLower(getEnv("CALENDAR_FIRST_DAY_OF_WEEK", "sunday")),
		DefaultView:    strings.ToLower(getEnv("CALENDAR_DEFAULT_VIEW", "month")),
		DaysCount:      getEnvAsInt("CALENDAR_DAYS_COUNT", 3),
		Locale:         getEnv("CALENDAR_LOCALE", "pt-BR"),
		TimeFormat:     getEnv("CALENDAR_TIME_FORMAT", "24h"),
		SettingsPath:   getEnv("VIEW_SETTINGS_PATH", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		SessionIdle:     getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		JanitorSchedule: getEnv("SESSION_JANITOR_SCHEDULE", "@every 5m"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
