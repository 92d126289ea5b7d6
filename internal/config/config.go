// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HeliusAPIKey     string   `mapstructure:"helius_api_key"`
	HeliusBaseURL    string   `mapstructure:"helius_base_url"`
	BirdeyeAPIKey    string   `mapstructure:"birdeye_api_key"`
	BirdeyeBaseURL   string   `mapstructure:"birdeye_base_url"`
	PollIntervalMs   int      `mapstructure:"poll_interval_ms"`
	FeedCapacity     int      `mapstructure:"feed_capacity"`
	PollConcurrency  int      `mapstructure:"poll_concurrency"`
	FetchRetries     int      `mapstructure:"fetch_retries"` // повторы после первой попытки
	HTTPTimeoutMs    int      `mapstructure:"http_timeout_ms"`
	MetadataCacheMax int      `mapstructure:"metadata_cache_max"`
	ListenAddr       string   `mapstructure:"listen_addr"`
	DebugLogging     bool     `mapstructure:"debug_logging"`
	JSONLogging      bool     `mapstructure:"json_logging"`
	JournalPath      string   `mapstructure:"journal_path"`
	Wallets          []string `mapstructure:"wallets"`
}

const (
	EnvPrefix = "BUYFEED"

	DefaultHeliusBaseURL   = "https://api.helius.xyz"
	DefaultBirdeyeBaseURL  = "https://public-api.birdeye.so"
	DefaultPollIntervalMs  = 60000
	DefaultFeedCapacity    = 100
	DefaultPollConcurrency = 4
	DefaultFetchRetries    = 3
	DefaultHTTPTimeoutMs   = 10000
	DefaultListenAddr      = ":8080"
)

// LoadConfig reads the optional config file at path and overlays BUYFEED_*
// environment variables. An empty path means environment and defaults only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"helius_api_key":     "",
		"helius_base_url":    DefaultHeliusBaseURL,
		"birdeye_api_key":    "",
		"birdeye_base_url":   DefaultBirdeyeBaseURL,
		"poll_interval_ms":   DefaultPollIntervalMs,
		"feed_capacity":      DefaultFeedCapacity,
		"poll_concurrency":   DefaultPollConcurrency,
		"fetch_retries":      DefaultFetchRetries,
		"http_timeout_ms":    DefaultHTTPTimeoutMs,
		"metadata_cache_max": 0,
		"listen_addr":        DefaultListenAddr,
		"debug_logging":      false,
		"json_logging":       false,
		"journal_path":       "",
		"wallets":            []string{},
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

// PollInterval returns the recurring poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// HTTPTimeout returns the per-request timeout for outbound calls.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMs) * time.Millisecond
}

// FetchMaxTries returns the total number of attempts per request: the first
// one plus fetch_retries retries.
func (c *Config) FetchMaxTries() uint {
	return uint(c.FetchRetries) + 1
}

func validateConfig(cfg *Config) error {
	if cfg.HeliusAPIKey == "" {
		return errors.New("missing helius_api_key in configuration")
	}
	if err := validateURLWithCache(cfg.HeliusBaseURL, "http"); err != nil {
		return fmt.Errorf("invalid helius_base_url: %w", err)
	}
	if err := validateURLWithCache(cfg.BirdeyeBaseURL, "http"); err != nil {
		return fmt.Errorf("invalid birdeye_base_url: %w", err)
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen_addr is empty")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.FeedCapacity <= 0 {
		return errors.New("invalid feed_capacity")
	}
	if cfg.PollConcurrency <= 0 {
		return errors.New("invalid poll_concurrency")
	}
	if cfg.FetchRetries < 0 {
		return errors.New("invalid fetch_retries")
	}
	if cfg.HTTPTimeoutMs <= 0 {
		return errors.New("invalid http_timeout_ms")
	}
	if cfg.MetadataCacheMax < 0 {
		return errors.New("invalid metadata_cache_max")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// loadEnvironmentVariables handles the values viper cannot decode directly:
// unprefixed API keys (HELIUS_API_KEY, BIRDEYE_API_KEY) and a comma-separated
// wallet list.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	if cfg.HeliusAPIKey == "" {
		cfg.HeliusAPIKey = strings.TrimSpace(os.Getenv("HELIUS_API_KEY"))
	}
	if cfg.BirdeyeAPIKey == "" {
		cfg.BirdeyeAPIKey = strings.TrimSpace(os.Getenv("BIRDEYE_API_KEY"))
	}

	envWallets := v.GetString("WALLETS")
	if envWallets != "" {
		var clean []string
		for _, w := range strings.Split(envWallets, ",") {
			if w = strings.TrimSpace(w); w != "" {
				clean = append(clean, w)
			}
		}
		if len(clean) > 0 {
			cfg.Wallets = clean
		}
	}
}
