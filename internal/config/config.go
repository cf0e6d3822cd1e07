package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable overrides.
const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
)

// Defaults applied when the config file omits a value.
const (
	DefaultPort             = 8470
	DefaultChatHistoryLimit = 50

	defaultJWTExpiry = 7 * 24 * time.Hour
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config
// file or environment.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database.dsn` in config file or env DB_CONNECTION)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// Config holds resolved application configuration.
type Config struct {
	DatabaseDSN      string
	JWT              JWTConfig
	Port             int
	ChatHistoryLimit int
}

// fileConfig maps the YAML layout of the config file. JWT expiry is read as
// a string because yaml.v3 has no native time.Duration decoding.
type fileConfig struct {
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT struct {
		Secret string `yaml:"secret"`
		Expiry string `yaml:"expiry"`
	} `yaml:"jwt"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Chat struct {
		HistoryLimit int `yaml:"history-limit"`
	} `yaml:"chat"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the config file and applies environment overrides. A missing
// file is not an error as long as the environment supplies a DSN.
func Load(configPath string) (Config, error) {
	result := Config{
		Port:             DefaultPort,
		ChatHistoryLimit: DefaultChatHistoryLimit,
		JWT:              JWTConfig{Expiry: defaultJWTExpiry},
	}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
		result.DatabaseDSN = strings.TrimSpace(cfg.Database.DSN)
		result.JWT.Secret = strings.TrimSpace(cfg.JWT.Secret)
		if expiryRaw := strings.TrimSpace(cfg.JWT.Expiry); expiryRaw != "" {
			expiry, errParse := time.ParseDuration(expiryRaw)
			if errParse != nil || expiry <= 0 {
				return Config{}, fmt.Errorf("invalid jwt expiry %q", expiryRaw)
			}
			result.JWT.Expiry = expiry
		}
		if cfg.Server.Port > 0 {
			result.Port = cfg.Server.Port
		}
		if cfg.Chat.HistoryLimit > 0 {
			result.ChatHistoryLimit = cfg.Chat.HistoryLimit
		}
	} else if !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		result.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.JWT.Expiry = expiry
		}
	}

	if result.DatabaseDSN == "" {
		return Config{}, ErrMissingDatabaseDSN
	}
	return result, nil
}
