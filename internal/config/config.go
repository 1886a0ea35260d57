package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		Mode        string   `yaml:"mode"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
		// AdminURL connects with a role that bypasses row-level security; used for counts only.
		AdminURL string `yaml:"admin_url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Attempt struct {
		TTL string `yaml:"ttl"`
	} `yaml:"attempt"`
	AI struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"ai"`
	Auth struct {
		JWTSecret    string `yaml:"jwt_secret"`
		PublicKeyPEM string `yaml:"public_key_pem"`
		Issuer       string `yaml:"issuer"`
	} `yaml:"auth"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; the environment alone can configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Postgres.URL, "DATABASE_URL")
	setFromEnv(&cfg.Postgres.AdminURL, "DATABASE_ADMIN_URL")
	setFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&cfg.AI.Provider, "AI_PROVIDER")
	setFromEnv(&cfg.AI.Model, "AI_MODEL")
	setFromEnv(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setFromEnv(&cfg.Auth.Issuer, "AUTH_ISSUER")
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	switch strings.ToLower(cfg.AI.Provider) {
	case "openai":
		setFromEnv(&cfg.AI.APIKey, "OPENAI_API_KEY")
		setFromEnv(&cfg.AI.BaseURL, "OPENAI_BASE_URL")
	default:
		setFromEnv(&cfg.AI.APIKey, "GOOGLE_GEMINI_API_KEY")
	}
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
