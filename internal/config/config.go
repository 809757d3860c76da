package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Redis       RedisConfig
	Postgres    PostgresConfig
	Stations    StationsConfig
	Geolocation GeolocationConfig
	Alarm       AlarmConfig
	RateLimit   RateLimitConfig
	Session     SessionConfig
	Monitoring  MonitoringConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	Host           string
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PostgresConfig is optional; an empty URL keeps the catalog off the database.
type PostgresConfig struct {
	URL string
}

type StationsConfig struct {
	File  string
	Sheet string
}

// GeolocationConfig only tunes the timeout. Fixes are always fresh and high
// accuracy.
type GeolocationConfig struct {
	Timeout time.Duration
}

type AlarmConfig struct {
	Sound  string
	Volume float64
}

type RateLimitConfig struct {
	LocatePerMin         int
	RequestsPerMinute    int
	SessionsPerIPPerHour int
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type MonitoringConfig struct {
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            getEnv("ENV", "development"),
			Host:           getEnv("HOST", "0.0.0.0"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Stations: StationsConfig{
			File:  getEnv("STATIONS_FILE", ""),
			Sheet: getEnv("STATIONS_SHEET", "Stations"),
		},
		Geolocation: GeolocationConfig{
			Timeout: getEnvAsMillis("GEO_TIMEOUT_MS", 10*time.Second),
		},
		Alarm: AlarmConfig{
			Sound:  getEnv("ALARM_SOUND", "alarm.mp3"),
			Volume: getEnvAsFloat("ALARM_VOLUME", 1.0),
		},
		RateLimit: RateLimitConfig{
			LocatePerMin:         getEnvAsInt("RATE_LIMIT_LOCATE_PER_MIN", 10),
			RequestsPerMinute:    getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MIN", 100),
			SessionsPerIPPerHour: getEnvAsInt("RATE_LIMIT_SESSIONS_PER_IP_PER_HOUR", 20),
		},
		Session: SessionConfig{
			TTL:             time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
			CleanupInterval: time.Duration(getEnvAsInt("SESSION_CLEANUP_MINUTES", 5)) * time.Minute,
		},
		Monitoring: MonitoringConfig{
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Geolocation.Timeout <= 0 {
		return fmt.Errorf("GEO_TIMEOUT_MS must be positive, got %s", c.Geolocation.Timeout)
	}
	if c.Alarm.Volume < 0 || c.Alarm.Volume > 1 {
		return fmt.Errorf("ALARM_VOLUME must be between 0 and 1, got %v", c.Alarm.Volume)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
