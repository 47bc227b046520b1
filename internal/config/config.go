package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	CORS     CORSConfig     `yaml:"cors"`
	Quality  QualityConfig  `yaml:"quality"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

// DatabaseConfig MySQL connection settings
type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN returns the MySQL DSN
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// EventChannel is the pub/sub channel lifecycle events are mirrored to.
	EventChannel string `yaml:"event_channel"`
}

// JWTConfig token settings (seconds)
type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"`
	RefreshIn int    `yaml:"refresh_in"`
}

// CORSConfig allowed origins, comma separated
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// QualityConfig quality gate settings
type QualityConfig struct {
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Weights    WeightConfig    `yaml:"weights"`

	AnalyzerTimeout     time.Duration `yaml:"analyzer_timeout"`
	ReviewWindow        time.Duration `yaml:"review_window"`
	ExpirySweepInterval time.Duration `yaml:"expiry_sweep_interval"`
	PersistRetries      int           `yaml:"persist_retries"`
	MinReviewerLevel    int           `yaml:"min_reviewer_level"`
	BlockedTerms        []string      `yaml:"blocked_terms"`

	// tokens without a tenant claim need this level to pick a tenant by header
	PlatformOperatorLevel int `yaml:"platform_operator_level"`

	LLM LLMConfig `yaml:"llm"`
}

// ThresholdConfig decision thresholds (0..100)
type ThresholdConfig struct {
	AutoApprove int `yaml:"auto_approve"`
	MinPublish  int `yaml:"min_publish"`
	BrandMin    int `yaml:"brand_min"`
	ImageMin    int `yaml:"image_min"`
	ContentMin  int `yaml:"content_min"`
	SEOMin      int `yaml:"seo_min"`
}

// WeightConfig composite score weights
type WeightConfig struct {
	Image   float64 `yaml:"image"`
	Content float64 `yaml:"content"`
	SEO     float64 `yaml:"seo"`
	Brand   float64 `yaml:"brand"`
}

// LLMConfig OpenAI-compatible safety reviewer
type LLMConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8085, Env: "local"},
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            3306,
			User:            "qualitygate",
			DBName:          "qualitygate",
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{
			Host:         "127.0.0.1",
			Port:         6379,
			PoolSize:     10,
			EventChannel: "qualitygate:events",
		},
		JWT:  JWTConfig{ExpiresIn: 900, RefreshIn: 604800},
		CORS: CORSConfig{AllowOrigins: "http://localhost:3000"},
		Quality: QualityConfig{
			Thresholds: ThresholdConfig{
				AutoApprove: 95,
				MinPublish:  80,
				BrandMin:    80,
				ImageMin:    75,
				ContentMin:  75,
				SEOMin:      70,
			},
			Weights: WeightConfig{
				Image:   0.30,
				Content: 0.30,
				SEO:     0.15,
				Brand:   0.25,
			},
			AnalyzerTimeout:     2 * time.Second,
			ReviewWindow:        24 * time.Hour,
			ExpirySweepInterval: time.Minute,
			PersistRetries:      2,
			MinReviewerLevel:    5,

			PlatformOperatorLevel: 10,

			LLM: LLMConfig{
				Model:   "gpt-4o-mini",
				Timeout: 10 * time.Second,
			},
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies env overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if _, err := cfg.Quality.Policy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Redis.Host, "REDIS_HOST")
	setInt(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Env, "APP_ENV")
	setString(&cfg.CORS.AllowOrigins, "CORS_ALLOW_ORIGINS")
	setString(&cfg.Quality.LLM.BaseURL, "QUALITY_LLM_URL")
	setString(&cfg.Quality.LLM.APIKey, "QUALITY_LLM_KEY")
	if v := os.Getenv("QUALITY_LLM_ENABLED"); v != "" {
		cfg.Quality.LLM.Enabled = v == "true" || v == "1"
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// IsDevelopment reports whether the server runs in a local/dev environment
func (c *Config) IsDevelopment() bool {
	switch c.Server.Env {
	case "", "local", "dev", "development":
		return true
	}
	return false
}
