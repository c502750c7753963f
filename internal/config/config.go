package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ProjectRoot string `yaml:"-"`
	LogLevel    string `yaml:"log_level"`

	Server struct {
		Port               string `yaml:"port"`
		CookieSecure       bool   `yaml:"cookie_secure"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"` // sqlite3 or postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Session struct {
		Expiration time.Duration `yaml:"expiration"`
	} `yaml:"session"`

	Auth struct {
		AdminEmails []string `yaml:"admin_emails"`
	} `yaml:"auth"`

	LLM struct {
		Provider      string `yaml:"provider"` // gemini, openai or none
		GeminiAPIKey  string `yaml:"gemini_api_key"`
		GeminiModel   string `yaml:"gemini_model"`
		GeminiBaseURL string `yaml:"gemini_base_url"`
		OpenAIAPIKey  string `yaml:"openai_api_key"`
		OpenAIModel   string `yaml:"openai_model"`
		OpenAIBaseURL string `yaml:"openai_base_url"`
	} `yaml:"llm"`

	Storage struct {
		Driver    string `yaml:"driver"` // local or s3
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		Endpoint  string `yaml:"endpoint"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"storage"`
}

// Load reads the configuration from environment variables, falling back to
// defaults. If path (or CONFIG_FILE) names a YAML file, its values override
// the environment.
func Load(path string) (*Config, error) {
	projectRoot := findProjectRoot()

	cfg := &Config{ProjectRoot: projectRoot}
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.CookieSecure = getEnv("COOKIE_SECURE", "false") == "true"
	cfg.Server.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 60)

	cfg.Database.Driver = getEnv("DB_DRIVER", "sqlite3")
	if cfg.Database.Driver == "postgres" {
		cfg.Database.DSN = getEnv("DATABASE_URL", "")
	} else {
		cfg.Database.DSN = getEnv("DB_PATH", filepath.Join(projectRoot, "aicafe.db"))
	}

	cfg.Session.Expiration = time.Duration(getEnvInt("SESSION_HOURS", 24)) * time.Hour

	cfg.Auth.AdminEmails = splitList(getEnv("ADMIN_EMAILS", ""))

	cfg.LLM.Provider = getEnv("LLM_PROVIDER", "gemini")
	cfg.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", "")
	cfg.LLM.GeminiModel = getEnv("GEMINI_MODEL", "gemini-1.5-flash")
	cfg.LLM.GeminiBaseURL = getEnv("GEMINI_BASE_URL", "")
	cfg.LLM.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.LLM.OpenAIModel = getEnv("OPENAI_MODEL", "gpt-4o-mini")
	cfg.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", "local")
	cfg.Storage.Bucket = getEnv("S3_BUCKET", "avatars")
	cfg.Storage.Region = getEnv("S3_REGION", "us-east-1")
	cfg.Storage.Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.Storage.PublicURL = getEnv("S3_PUBLIC_URL", "")

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	return cfg, nil
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.Auth.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// findProjectRoot walks up from the working directory until it finds go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}

// getEnv returns the value of an environment variable or the default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
