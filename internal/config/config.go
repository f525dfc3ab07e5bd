package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port string `yaml:"port"`

	// Database
	DBDriver        string `yaml:"db_driver"`          // "sqlite" | "postgres"
	DBPath          string `yaml:"db_path"`            // SQLite path
	DBUrl           string `yaml:"db_url"`             // Postgres DSN
	DBBusyTimeoutMs int    `yaml:"db_busy_timeout_ms"` // SQLite lock wait

	// Auth
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpiryHours int    `yaml:"token_expiry_hours"`

	// Quota
	DailyQuotaMinutes int `yaml:"daily_quota_minutes"`

	// Executor
	PythonBin          string `yaml:"python_bin"`
	ExecTimeoutSeconds int    `yaml:"exec_timeout_seconds"`
	WorkDir            string `yaml:"work_dir"` // per-run temp dirs created under here

	// Pending-input store ("" = in-process map)
	RedisURL string `yaml:"redis_url"`

	// Artifact archive (optional; empty endpoint disables)
	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`

	// Seed admin account (optional; empty disables seeding)
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load reads the optional YAML config file named by GPUHUB_CONFIG, then
// applies environment variable overrides on top. Env always wins so a
// deployment can share one file and vary per instance.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               "3001",
		DBDriver:           "sqlite",
		DBPath:             "./data/gpuhub.db",
		DBBusyTimeoutMs:    5000,
		TokenExpiryHours:   24,
		DailyQuotaMinutes:  60,
		PythonBin:          "python3",
		ExecTimeoutSeconds: 300,
		WorkDir:            os.TempDir(),
		MinioBucket:        "gpuhub-artifacts",
		LogLevel:           "info",
	}

	if path := os.Getenv("GPUHUB_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	overrideStr(&cfg.Port, "PORT")
	overrideStr(&cfg.DBDriver, "GPUHUB_DB_DRIVER")
	overrideStr(&cfg.DBPath, "GPUHUB_DB_PATH")
	overrideStr(&cfg.DBUrl, "GPUHUB_DATABASE_URL")
	overrideInt(&cfg.DBBusyTimeoutMs, "GPUHUB_DB_BUSY_TIMEOUT_MS")
	overrideStr(&cfg.JWTSecret, "JWT_SECRET")
	overrideInt(&cfg.TokenExpiryHours, "GPUHUB_TOKEN_EXPIRY_HOURS")
	overrideInt(&cfg.DailyQuotaMinutes, "DAILY_GPU_QUOTA_MINUTES")
	overrideStr(&cfg.PythonBin, "GPUHUB_PYTHON_BIN")
	overrideInt(&cfg.ExecTimeoutSeconds, "GPUHUB_EXEC_TIMEOUT_SECONDS")
	overrideStr(&cfg.WorkDir, "GPUHUB_WORK_DIR")
	overrideStr(&cfg.RedisURL, "GPUHUB_REDIS_URL")
	overrideStr(&cfg.MinioEndpoint, "GPUHUB_MINIO_ENDPOINT")
	overrideStr(&cfg.MinioAccessKey, "GPUHUB_MINIO_ACCESS_KEY")
	overrideStr(&cfg.MinioSecretKey, "GPUHUB_MINIO_SECRET_KEY")
	overrideStr(&cfg.MinioBucket, "GPUHUB_MINIO_BUCKET")
	overrideStr(&cfg.AdminEmail, "GPUHUB_ADMIN_EMAIL")
	overrideStr(&cfg.AdminPassword, "GPUHUB_ADMIN_PASSWORD")
	overrideStr(&cfg.LogLevel, "LOG_LEVEL")

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func overrideStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
