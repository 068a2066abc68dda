package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Email     EmailConfig     `yaml:"email"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// AuthConfig holds Google OAuth authentication configuration
type AuthConfig struct {
	Enabled            bool     `yaml:"enabled"`
	GoogleClientID     string   `yaml:"google_client_id"`
	GoogleClientSecret string   `yaml:"google_client_secret"`
	AuthorizedEmails   []string `yaml:"authorized_emails"`
	SessionSecret      string   `yaml:"session_secret"`
	CookieName         string   `yaml:"cookie_name"`
	CookieMaxAge       int      `yaml:"cookie_max_age"`
}

// EmailConfig holds SES delivery settings for run and scale reports
type EmailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
}

// DashboardConfig holds report extraction settings
type DashboardConfig struct {
	ReportURL      string `yaml:"report_url"`
	AuthStatePath  string `yaml:"auth_state_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig holds automation state persistence settings. When
// DatabaseURL is set, Postgres is used; otherwise state lives in StatusPath.
// RedisAddr enables the cross-host run lock when non-empty.
type StorageConfig struct {
	StatusPath  string `yaml:"status_path"`
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`
}

// SchedulerConfig holds hourly trigger settings
type SchedulerConfig struct {
	Enabled      bool `yaml:"enabled"`
	MinuteOffset int  `yaml:"minute_offset"`
}

// ArtifactsConfig holds diagnostic capture settings
type ArtifactsConfig struct {
	LocalDir string `yaml:"local_dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "roasrobo_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 86400
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = "us-east-1"
	}
	if cfg.Dashboard.TimeoutSeconds == 0 {
		cfg.Dashboard.TimeoutSeconds = 180
	}
	if cfg.Dashboard.AuthStatePath == "" {
		cfg.Dashboard.AuthStatePath = "auth_state.json"
	}
	if cfg.Storage.StatusPath == "" {
		cfg.Storage.StatusPath = "automation_status.json"
	}
	if cfg.Scheduler.MinuteOffset == 0 {
		cfg.Scheduler.MinuteOffset = 5
	}
	if cfg.Artifacts.LocalDir == "" {
		cfg.Artifacts.LocalDir = "artifacts"
	}
	if cfg.Artifacts.S3Region == "" {
		cfg.Artifacts.S3Region = "us-east-1"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("AUTHORIZED_EMAILS"); v != "" {
		cfg.Auth.AuthorizedEmails = splitList(v)
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.Region = v
	}
	if v := os.Getenv("NOTIFICATION_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("NOTIFICATION_EMAIL"); v != "" {
		cfg.Email.To = v
	}
	if v := os.Getenv("REPORT_URL"); v != "" {
		cfg.Dashboard.ReportURL = v
	}
	if v := os.Getenv("AUTH_STATE_PATH"); v != "" {
		cfg.Dashboard.AuthStatePath = v
	}
	if v := os.Getenv("STATUS_FILE"); v != "" {
		cfg.Storage.StatusPath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("ARTIFACTS_S3_BUCKET"); v != "" {
		cfg.Artifacts.S3Bucket = v
	}

	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
