package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	Redis     RedisConfig      `json:"redis"`
	AI        AIConfig         `json:"ai"`
	Cache     CacheConfig      `json:"cache"`
	Backfill  BackfillConfig   `json:"backfill"`
	CORS      []string         `json:"cors"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AIConfig struct {
	Provider  string                 `json:"provider"`
	Model     string                 `json:"model"`
	Dimension int                    `json:"dimension"`
	Data      map[string]interface{} `json:"data"`
	LruSize   int                    `json:"lru_size"`
	LruTTLSec int                    `json:"lru_ttl_seconds"`
}

type CacheConfig struct {
	EmbeddingTTLSec int `json:"embedding_ttl_seconds"`
	SearchTTLSec    int `json:"search_ttl_seconds"`
}

type BackfillConfig struct {
	// Cron spec for the periodic embedding backfill; empty disables it.
	Spec string `json:"spec"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	cfg.applyEnvDefaults()
	if cfg.Port == 0 {
		cfg.Port = 8090
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.Dimension == 0 {
		cfg.AI.Dimension = 768
	}
	if cfg.AI.LruSize == 0 {
		cfg.AI.LruSize = 10000
	}
	if cfg.AI.LruTTLSec == 0 {
		cfg.AI.LruTTLSec = 7200
	}
	return &cfg, nil
}

// applyEnvDefaults fills store endpoints from the environment when the
// config file leaves them empty, then falls back to local defaults.
func (c *Config) applyEnvDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = envOr("DB_HOST", "localhost")
	}
	if c.Database.Port == 0 {
		c.Database.Port = envIntOr("DB_PORT", 5432)
	}
	if c.Database.DBName == "" {
		c.Database.DBName = envOr("DB_NAME", "taskdb")
	}
	if c.Database.User == "" {
		c.Database.User = envOr("DB_USER", "taskuser")
	}
	if c.Database.Password == "" {
		c.Database.Password = envOr("DB_PASSWORD", "taskpass")
	}
	if c.Redis.Host == "" {
		c.Redis.Host = envOr("REDIS_HOST", "localhost")
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = envIntOr("REDIS_PORT", 6379)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
