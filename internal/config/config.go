package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"photo-curator/internal/logging"
)

// API type values accepted for Config.APIType.
const (
	APITypeOllama = "ollama"
	APITypeOpenAI = "openai"
)

// Worker pool bounds. The default is deliberately low: every worker slot
// holds an in-flight vision call against the same model server.
const (
	MinWorkers     = 1
	MaxWorkers     = 16
	DefaultWorkers = 3
)

// Config holds all application configuration
type Config struct {
	// Model service
	APIHost        string        `mapstructure:"api_host"`
	APIType        string        `mapstructure:"api_type"`
	VisionModel    string        `mapstructure:"vision_model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Temperature    float64       `mapstructure:"temperature"`
	RPCTimeout     time.Duration `mapstructure:"rpc_timeout"`

	// Thumbnail cache
	CacheDir         string `mapstructure:"cache_dir"`
	MemoryCacheItems int    `mapstructure:"memory_cache_items"`
	DiskCacheMB      int64  `mapstructure:"disk_cache_mb"`
	ThumbnailSize    int    `mapstructure:"thumbnail_size"`

	// Stores
	PostgresDSN string `mapstructure:"postgres_dsn"`
	RatingsPath string `mapstructure:"ratings_path"`

	// Workers
	Workers      int `mapstructure:"workers"`
	MaxImageSize int `mapstructure:"max_image_size"`

	// Observability
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// SetDefaults registers default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	v.SetDefault("api_host", "http://localhost:11434")
	v.SetDefault("api_type", APITypeOllama)
	v.SetDefault("vision_model", "qwen3-vl:8b-instruct-q4_K_M")
	v.SetDefault("embedding_model", "hf.co/Qwen/Qwen3-Embedding-0.6B-GGUF:Q8_0")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("rpc_timeout", 120*time.Second)

	v.SetDefault("cache_dir", filepath.Join(dataDir, "thumbnails"))
	v.SetDefault("memory_cache_items", 200)
	v.SetDefault("disk_cache_mb", 500)
	v.SetDefault("thumbnail_size", 200)

	v.SetDefault("postgres_dsn", "")
	v.SetDefault("ratings_path", filepath.Join(dataDir, "ratings.db"))

	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("max_image_size", 1024)

	v.SetDefault("metrics_addr", "")
}

// Load resolves configuration from the given viper instance and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.APIType != APITypeOllama && cfg.APIType != APITypeOpenAI {
		return nil, fmt.Errorf("invalid api_type %q (must be %q or %q)", cfg.APIType, APITypeOllama, APITypeOpenAI)
	}

	if cfg.Workers < MinWorkers {
		logging.Warn("workers=%d below minimum, using %d", cfg.Workers, MinWorkers)
		cfg.Workers = MinWorkers
	}
	if cfg.Workers > MaxWorkers {
		logging.Warn("workers=%d above maximum, using %d", cfg.Workers, MaxWorkers)
		cfg.Workers = MaxWorkers
	}

	if cfg.MemoryCacheItems <= 0 {
		cfg.MemoryCacheItems = 200
	}
	if cfg.DiskCacheMB <= 0 {
		cfg.DiskCacheMB = 500
	}
	if cfg.ThumbnailSize <= 0 {
		cfg.ThumbnailSize = 200
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = 1024
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = 120 * time.Second
	}

	return &cfg, nil
}

// DiskCacheBytes returns the disk cache budget in bytes.
func (c *Config) DiskCacheBytes() int64 {
	return c.DiskCacheMB * 1024 * 1024
}

// defaultDataDir returns the per-user data directory for caches and stores.
func defaultDataDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "photo-curator")
}
