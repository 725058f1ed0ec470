// Package config loads daemon configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lingomark/lingomark"
)

// Provider names accepted by LINGOMARK_PROVIDER.
const (
	ProviderDeepL  = "deepl"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config is the daemon configuration. Every field maps to an environment
// variable; unset variables fall back to the tagged defaults.
type Config struct {
	// HTTP API.
	ListenAddr     string   `env:"LINGOMARK_LISTEN"          envDefault:":7345"`
	AllowedOrigins []string `env:"LINGOMARK_ALLOWED_ORIGINS" envSeparator:","`

	// Translation.
	Enabled    bool   `env:"LINGOMARK_ENABLED"     envDefault:"true"`
	Provider   string `env:"LINGOMARK_PROVIDER"    envDefault:"deepl"`
	TargetLang string `env:"LINGOMARK_TARGET_LANG" envDefault:"en"`
	SourceLang string `env:"LINGOMARK_SOURCE_LANG"`

	DeepLKey      string `env:"DEEPL_API_KEY"`
	DeepLEndpoint string `env:"DEEPL_API_ENDPOINT"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"LINGOMARK_OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Provider hardening. Zero values leave the provider untouched; the
	// rate limit is in requests per minute, the breaker threshold in
	// consecutive failures before the circuit opens.
	RetryAttempts    int `env:"LINGOMARK_RETRY_ATTEMPTS"    envDefault:"0"`
	RateLimit        int `env:"LINGOMARK_RATE_LIMIT"        envDefault:"0"`
	BreakerThreshold int `env:"LINGOMARK_BREAKER_THRESHOLD" envDefault:"0"`

	// Cache. An empty redis URL selects the in-process cache.
	RedisURL  string `env:"LINGOMARK_REDIS_URL"`
	CacheTTL  int    `env:"LINGOMARK_CACHE_TTL"  envDefault:"604800"`
	WarmCache bool   `env:"LINGOMARK_WARM_CACHE" envDefault:"false"`

	// Storage.
	DataDir  string `env:"LINGOMARK_DATA_DIR"`
	RingSize int    `env:"LINGOMARK_RING_SIZE" envDefault:"100"`

	// Hosted sync. Both URL and anon key must be set to enable it.
	SyncURL     string `env:"LINGOMARK_SYNC_URL"`
	SyncAnonKey string `env:"LINGOMARK_SYNC_ANON_KEY"`
	SyncTable   string `env:"LINGOMARK_SYNC_TABLE" envDefault:"translations"`

	RememberMe      bool          `env:"LINGOMARK_REMEMBER_ME"      envDefault:"true"`
	RefreshInterval time.Duration `env:"LINGOMARK_REFRESH_INTERVAL" envDefault:"10m"`

	// Logging.
	LogLevel  string `env:"LINGOMARK_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LINGOMARK_LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the environment and resolves the data
// directory.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.DataDir = filepath.Join(base, "lingomark")
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderDeepL, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if !lingomark.IsSupportedTarget(c.TargetLang) {
		return fmt.Errorf("unsupported target language %q", c.TargetLang)
	}
	return nil
}

// Addr returns the listen address with a leading colon when only a port
// number was given.
func (c Config) Addr() string {
	addr := strings.TrimSpace(c.ListenAddr)
	if addr == "" {
		return ":7345"
	}
	if _, err := strconv.Atoi(addr); err == nil {
		return ":" + addr
	}
	return addr
}

// DatabasePath returns the sqlite file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "lingomark.db")
}

// HostedEnabled reports whether hosted sync is configured.
func (c Config) HostedEnabled() bool {
	return c.SyncURL != "" && c.SyncAnonKey != ""
}

// Level maps the configured log level onto slog. Unknown values mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
