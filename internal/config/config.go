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
	Database DatabaseConfig
	Server   ServerConfig
	Session  SessionConfig
	Auth     AuthConfig
	Mail     MailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	LogFile        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
	LoginRateLimit int // POST /login requests per minute per IP
}

type SessionConfig struct {
	Store        string // "postgres" or "redis"
	RedisURL     string
	CookieName   string
	CookieSecure bool          // force Secure even when TLS terminates upstream
	Timeout      time.Duration // SESSION_TIMEOUT_LIMIT
	Lifetime     time.Duration // how long an idle record survives in the store
}

type AuthConfig struct {
	CleanupInterval     time.Duration
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
	AdminAlertEmail     string
}

type MailConfig struct {
	Driver       string // "smtp", "ses" or "none"
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
	FromName     string
	AWSRegion    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "vestibule"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 0)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 10*time.Second),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFile:        getEnv("LOG_FILE", ""),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			LoginRateLimit: getEnvAsInt("LOGIN_RATE_LIMIT", 10),
		},
		Session: SessionConfig{
			Store:        strings.ToLower(getEnv("SESSION_STORE", "postgres")),
			RedisURL:     getEnv("REDIS_URL", ""),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "vestibule_session"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", env == "production"),
			Timeout:      time.Duration(getEnvAsInt("SESSION_TIMEOUT_LIMIT", 1800)) * time.Second,
			Lifetime:     getEnvAsDuration("SESSION_LIFETIME", 24*time.Hour),
		},
		Auth: AuthConfig{
			CleanupInterval:     getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 250),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
			AdminAlertEmail:     getEnv("ADMIN_ALERT_EMAIL", ""),
		},
		Mail: MailConfig{
			Driver:       strings.ToLower(getEnv("MAIL_DRIVER", "none")),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromAddress:  getEnv("SMTP_FROM_EMAIL", ""),
			FromName:     getEnv("SMTP_FROM_NAME", "Vestibule"),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate reports every missing setting at once so operators can fix the
// environment in a single pass.
func (c *Config) validate() error {
	var missing []string

	if strings.TrimSpace(c.Database.Host) == "" {
		missing = append(missing, "DB_HOST")
	}
	if strings.TrimSpace(c.Database.User) == "" {
		missing = append(missing, "DB_USER")
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.Database.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}

	switch c.Session.Store {
	case "postgres":
	case "redis":
		if c.Session.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be \"postgres\" or \"redis\" (got %q)", c.Session.Store)
	}

	switch c.Mail.Driver {
	case "none":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			missing = append(missing, "SMTP_HOST")
		}
		if c.Mail.FromAddress == "" {
			missing = append(missing, "SMTP_FROM_EMAIL")
		}
	case "ses":
		if c.Mail.FromAddress == "" {
			missing = append(missing, "SMTP_FROM_EMAIL")
		}
	default:
		return fmt.Errorf("MAIL_DRIVER must be one of none, smtp, ses (got %q)", c.Mail.Driver)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Session.Timeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT_LIMIT must be positive")
	}

	if c.Auth.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
