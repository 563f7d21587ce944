// Package config loads the microanalyst configuration from defaults, an
// optional YAML file and MICROANALYST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analysis"
	"github.com/JackSmack1971/microanalyst-tools/pkg/cache"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/logging"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/binance"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

// Output formats.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration. Build it once with Load
// and pass the sections to constructors.
type Config struct {
	Defaults   Defaults            `yaml:"defaults"`
	Thresholds analysis.Thresholds `yaml:"thresholds"`
	Cache      Cache               `yaml:"cache"`
	Providers  Providers           `yaml:"providers"`
	Display    Display             `yaml:"display"`
	Server     Server              `yaml:"server"`
	Logging    Logging             `yaml:"logging"`
}

// Defaults are CLI defaults.
type Defaults struct {
	Days         int    `yaml:"days"`
	OutputFormat string `yaml:"output_format"`
}

// Cache selects the cache backend and TTLs.
type Cache struct {
	Backend   string        `yaml:"backend"`
	Dir       string        `yaml:"dir"`
	RedisAddr string        `yaml:"redis_addr"`
	MarketTTL time.Duration `yaml:"market_ttl"`
	SpotTTL   time.Duration `yaml:"spot_ttl"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
}

// CoinGecko configures the aggregator provider.
type CoinGecko struct {
	BaseURL     string        `yaml:"base_url"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// Binance configures the exchange provider.
type Binance struct {
	BaseURL    string `yaml:"base_url"`
	QuoteAsset string `yaml:"quote_asset"`
	DepthLimit int    `yaml:"depth_limit"`
}

// Providers configures both upstreams.
type Providers struct {
	CoinGecko        CoinGecko     `yaml:"coingecko"`
	Binance          Binance       `yaml:"binance"`
	Timeout          time.Duration `yaml:"timeout"`
	RetryOnRateLimit bool          `yaml:"retry_on_rate_limit"`
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait"`
}

// Display tweaks terminal rendering.
type Display struct {
	Compact bool `yaml:"compact"`
}

// Server configures microanalyst-server.
type Server struct {
	Addr           string        `yaml:"addr"`
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// Logging configures zerolog.
type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	ttl := cache.DefaultTTLPolicy()
	cg := coingecko.DefaultConfig()
	bn := binance.DefaultConfig()
	retry := client.DefaultRetryPolicy()

	return Config{
		Defaults:   Defaults{Days: 30, OutputFormat: FormatTerminal},
		Thresholds: analysis.DefaultThresholds(),
		Cache: Cache{
			Backend:   cache.BackendDisk,
			Dir:       defaultCacheDir(),
			RedisAddr: "localhost:6379",
			MarketTTL: ttl.Market,
			SpotTTL:   ttl.Spot,
			MemoryTTL: 30 * time.Second,
		},
		Providers: Providers{
			CoinGecko: CoinGecko{BaseURL: cg.BaseURL, MinInterval: cg.MinInterval},
			Binance: Binance{
				BaseURL:    bn.BaseURL,
				QuoteAsset: bn.QuoteAsset,
				DepthLimit: bn.DepthLimit,
			},
			Timeout:          10 * time.Second,
			RetryOnRateLimit: retry.Enabled,
			MaxRateLimitWait: retry.MaxWait,
		},
		Server:  Server{Addr: ":8080", StreamInterval: 30 * time.Second},
		Logging: Logging{Level: string(logging.LevelWarn)},
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "microanalyst", "cache")
	}
	return filepath.Join(home, ".microanalyst", "cache")
}

// SearchPaths returns the candidate config files in lookup order.
func SearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "microanalyst", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".microanalyst", "config.yaml"))
	}
	return paths
}

// Load builds the configuration. An explicit path wins over the search
// paths. A missing file yields defaults; an unreadable or invalid file is
// logged and also yields defaults. Environment overrides are applied last.
func Load(path string, logger zerolog.Logger) Config {
	if path == "" {
		for _, candidate := range SearchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Debug().Str("path", path).Msg("Config file not found, using defaults")
		case err != nil:
			logger.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config file")
		default:
			logger.Debug().Str("path", path).Msg("Loaded config file")
			cfg = loaded
		}
	}

	withEnv, err := ApplyEnv(cfg, os.LookupEnv)
	if err != nil {
		logger.Warn().Err(err).Msg("Ignoring invalid environment overrides")
		return cfg
	}
	return withEnv
}

// LoadFile reads path on top of the defaults and validates the result.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Sections and keys absent from data
// keep their default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var problems []string

	if c.Defaults.Days <= 0 {
		problems = append(problems, "defaults.days must be positive")
	}
	if !ValidFormat(c.Defaults.OutputFormat) {
		problems = append(problems, fmt.Sprintf("defaults.output_format %q is unknown", c.Defaults.OutputFormat))
	}

	t := c.Thresholds
	if t.Volatility.Medium > t.Volatility.High {
		problems = append(problems, "thresholds.volatility.medium exceeds high")
	}
	if t.Spread.Medium > t.Spread.High {
		problems = append(problems, "thresholds.spread.medium exceeds high")
	}
	if t.VolumeDelta.Warning > t.VolumeDelta.Critical {
		problems = append(problems, "thresholds.volume_delta.warning exceeds critical")
	}
	if t.Imbalance.Low > t.Imbalance.High {
		problems = append(problems, "thresholds.imbalance.low exceeds high")
	}

	switch c.Cache.Backend {
	case cache.BackendDisk, cache.BackendRedis, cache.BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("cache.backend %q is unknown", c.Cache.Backend))
	}
	if c.Cache.MarketTTL <= 0 || c.Cache.SpotTTL <= 0 {
		problems = append(problems, "cache TTLs must be positive")
	}

	if !binance.ValidDepthLimit(c.Providers.Binance.DepthLimit) {
		problems = append(problems, fmt.Sprintf("providers.binance.depth_limit %d is not supported", c.Providers.Binance.DepthLimit))
	}
	if c.Providers.Timeout <= 0 {
		problems = append(problems, "providers.timeout must be positive")
	}
	if c.Server.StreamInterval <= 0 {
		problems = append(problems, "server.stream_interval must be positive")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		problems = append(problems, fmt.Sprintf("logging.level %q is unknown", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ValidFormat reports whether f is a known output format.
func ValidFormat(f string) bool {
	switch f {
	case FormatTerminal, FormatJSON, FormatHTML, FormatMarkdown:
		return true
	}
	return false
}

// ApplyEnv overlays MICROANALYST_* variables read through lookup and
// validates the result. cfg is not modified.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	get := func(name string) (string, bool) {
		v, ok := lookup("MICROANALYST_" + name)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	var errs []error
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("MICROANALYST_%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("MICROANALYST_%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("MICROANALYST_%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	setInt("DAYS", &cfg.Defaults.Days)
	setString("OUTPUT", &cfg.Defaults.OutputFormat)
	setString("CACHE_BACKEND", &cfg.Cache.Backend)
	setString("CACHE_DIR", &cfg.Cache.Dir)
	setString("REDIS_ADDR", &cfg.Cache.RedisAddr)
	setString("COINGECKO_URL", &cfg.Providers.CoinGecko.BaseURL)
	setDuration("COINGECKO_MIN_INTERVAL", &cfg.Providers.CoinGecko.MinInterval)
	setString("BINANCE_URL", &cfg.Providers.Binance.BaseURL)
	setString("QUOTE_ASSET", &cfg.Providers.Binance.QuoteAsset)
	setDuration("TIMEOUT", &cfg.Providers.Timeout)
	setBool("RETRY_ON_RATE_LIMIT", &cfg.Providers.RetryOnRateLimit)
	setString("SERVER_ADDR", &cfg.Server.Addr)
	setDuration("STREAM_INTERVAL", &cfg.Server.StreamInterval)
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setBool("LOG_PRETTY", &cfg.Logging.Pretty)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
