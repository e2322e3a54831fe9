package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Otel     OtelConfig     `mapstructure:"otel"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
// PublicBaseURL 作为上传文件 URL 的前缀，为空时返回相对路径。
type APIConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	PublicBaseURL  string        `mapstructure:"public_base_url"`
}

// LogConfig 控制 slog 输出。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds the single connection string that selects the backend.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	LogLevel string `mapstructure:"log_level"`
}

// StorageConfig 选择上传文件的存储后端。
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	UploadsDir string `mapstructure:"uploads_dir"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// RedisConfig 包含 Redis 连接配置，Addr 为空表示不启用。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

// Enabled reports whether a redis server was configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

// AuthConfig 控制登录限流与可选的 JWT 签发。
type AuthConfig struct {
	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	JWTPrivateKeyPath     string        `mapstructure:"jwt_private_key_path"`
	JWTPublicKeyPath      string        `mapstructure:"jwt_public_key_path"`
	AccessTokenTTL        time.Duration `mapstructure:"access_token_ttl"`
}

// TokensEnabled reports whether both PEM paths are present.
func (a AuthConfig) TokensEnabled() bool {
	return strings.TrimSpace(a.JWTPrivateKeyPath) != "" && strings.TrimSpace(a.JWTPublicKeyPath) != ""
}

// ScanConfig 指向 clamd，空地址表示跳过病毒扫描。
type ScanConfig struct {
	ClamdAddr string `mapstructure:"clamd_addr"`
}

// OtelConfig controls tracing export.
type OtelConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// WorkerConfig 控制后台任务消费。
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

const (
	StorageDriverLocal = "local"
	StorageDriverMinIO = "minio"
)

// Load reads configuration from environment variables, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.CORSOrigins = normalizeList(cfg.API.CORSOrigins)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8000)
	v.SetDefault("api.request_timeout", 30*time.Second)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.public_base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "lessin-uploads")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("auth.login_rate_limit_per_hour", 0)
	v.SetDefault("auth.access_token_ttl", time.Hour)
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "lessin-api")
	v.SetDefault("otel.sample_ratio", 0.1)
	v.SetDefault("worker.concurrency", 5)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.request_timeout":            "API_REQUEST_TIMEOUT",
		"api.cors_origins":               "CORS_ALLOWED_ORIGINS",
		"api.public_base_url":            "PUBLIC_BASE_URL",
		"log.level":                      "LOG_LEVEL",
		"log.format":                     "LOG_FORMAT",
		"database.url":                   "DATABASE_URL",
		"database.log_level":             "DATABASE_LOG_LEVEL",
		"storage.driver":                 "STORAGE_DRIVER",
		"storage.uploads_dir":            "UPLOADS_DIR",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.bucket":                   "MINIO_BUCKET",
		"minio.region":                   "MINIO_REGION",
		"minio.bucket_lookup":            "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
		"redis.addr":                     "REDIS_ADDR",
		"redis.password":                 "REDIS_PASSWORD",
		"auth.login_rate_limit_per_hour": "LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.jwt_private_key_path":      "JWT_PRIVATE_KEY_PATH",
		"auth.jwt_public_key_path":       "JWT_PUBLIC_KEY_PATH",
		"auth.access_token_ttl":          "ACCESS_TOKEN_TTL",
		"scan.clamd_addr":                "CLAMD_ADDR",
		"otel.enabled":                   "OTEL_ENABLED",
		"otel.endpoint":                  "OTEL_EXPORTER_OTLP_ENDPOINT",
		"otel.insecure":                  "OTEL_EXPORTER_OTLP_INSECURE",
		"otel.service_name":              "OTEL_SERVICE_NAME",
		"otel.sample_ratio":              "OTEL_SAMPLER_RATIO",
		"worker.concurrency":             "WORKER_CONCURRENCY",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

// normalizeList 兼容 "a,b" 形式的环境变量。
func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.RequestTimeout < 0 {
		return errors.New("api request timeout must not be negative")
	}
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return errors.New("database url is required (DATABASE_URL)")
	}
	switch cfg.Storage.Driver {
	case StorageDriverLocal:
		if strings.TrimSpace(cfg.Storage.UploadsDir) == "" {
			return errors.New("uploads dir is required")
		}
	case StorageDriverMinIO:
		if cfg.MinIO.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if cfg.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if cfg.MinIO.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Auth.LoginRateLimitPerHour < 0 {
		return errors.New("login rate limit must not be negative")
	}
	if (cfg.Auth.JWTPrivateKeyPath == "") != (cfg.Auth.JWTPublicKeyPath == "") {
		return errors.New("jwt private and public key paths must be set together")
	}
	if cfg.Otel.SampleRatio < 0 || cfg.Otel.SampleRatio > 1 {
		return errors.New("otel sample ratio must be within [0,1]")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
