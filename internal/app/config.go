package app

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/kubeagle/kubeagle/internal/cache"
	"github.com/kubeagle/kubeagle/internal/limiter"
)

// Config holds the application configuration
type Config struct {
	// Cluster configuration
	Context string `mapstructure:"context"`

	// Concurrency configuration
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`

	// Cache configuration
	MaxCacheEntries int           `mapstructure:"max_cache_entries"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// Metrics endpoint configuration
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	MetricsPort    int  `mapstructure:"metrics_port"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configFile string) (*Config, error) {
	viper.SetDefault("cluster.context", "")

	viper.SetDefault("concurrency.max_concurrent", limiter.DefaultCapacity)
	viper.SetDefault("concurrency.acquire_timeout", "60s")

	viper.SetDefault("cache.max_entries", cache.DefaultCapacity)
	viper.SetDefault("cache.refresh_interval", "0s")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "/tmp/kubeagle.log")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("$HOME/.kubeagle")
		viper.AddConfigPath("/etc/kubeagle")
	}

	viper.SetEnvPrefix("KUBEAGLE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Context:         viper.GetString("cluster.context"),
		MaxConcurrent:   viper.GetInt("concurrency.max_concurrent"),
		AcquireTimeout:  viper.GetDuration("concurrency.acquire_timeout"),
		MaxCacheEntries: viper.GetInt("cache.max_entries"),
		RefreshInterval: viper.GetDuration("cache.refresh_interval"),
		MetricsEnabled:  viper.GetBool("metrics.enabled"),
		MetricsPort:     viper.GetInt("metrics.port"),
		LogLevel:        viper.GetString("logging.level"),
		LogFile:         viper.GetString("logging.file"),
	}

	// Normalise zero values in case configuration omitted units or left blank
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = limiter.DefaultCapacity
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = limiter.DefaultAcquireTimeout
	}
	if cfg.MaxCacheEntries <= 0 {
		cfg.MaxCacheEntries = cache.DefaultCapacity
	}
	if cfg.MetricsPort <= 0 {
		cfg.MetricsPort = 9090
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "/tmp/kubeagle.log"
	}

	return cfg, nil
}
