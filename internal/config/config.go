// Package config loads the application configuration from defaults, an optional
// YAML file and REEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/internal/pipeline"
	"github.com/aretw0/reel/pkg/adapters/azuretts"
	"github.com/aretw0/reel/pkg/adapters/gemini"
	"github.com/aretw0/reel/pkg/adapters/openai"
	"github.com/aretw0/reel/pkg/adapters/publish"
	"github.com/aretw0/reel/pkg/adapters/websearch"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/persistence/middleware"
)

// EnvPrefix prefixes every environment override, e.g. REEL_LLM_API_KEY.
const EnvPrefix = "REEL"

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the full application configuration.
type Config struct {
	Log       logging.Config   `mapstructure:"log"`
	Engine    EngineConfig     `mapstructure:"engine"`
	Workspace WorkspaceConfig  `mapstructure:"workspace"`
	Store     StoreConfig      `mapstructure:"store"`
	LLM       openai.Config    `mapstructure:"llm"`
	Gemini    gemini.Config    `mapstructure:"gemini"`
	TTS       azuretts.Config  `mapstructure:"tts"`
	Search    websearch.Config `mapstructure:"search"`
	Render    RenderConfig     `mapstructure:"render"`
	Mux       MuxConfig        `mapstructure:"mux"`
	Publish   publish.Config   `mapstructure:"publish"`
	HTTP      HTTPConfig       `mapstructure:"http"`
}

// EngineConfig bounds every run.
type EngineConfig struct {
	domain.Budgets    `mapstructure:",squash"`
	MaxSteps          int           `mapstructure:"max_steps"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
	MaxConcurrentRuns int           `mapstructure:"max_concurrent_runs"`
	SilentFallback    bool          `mapstructure:"silent_fallback"`
}

// WorkspaceConfig places the per-run scratch directories.
type WorkspaceConfig struct {
	Root string `mapstructure:"root"`
	Keep bool   `mapstructure:"keep"`
}

// StoreConfig selects where run records live.
type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
	SQLitePath    string        `mapstructure:"sqlite_path"`

	// EncryptionKey is a base64 AES-256 key sealing concepts and messages at rest.
	EncryptionKey  string   `mapstructure:"encryption_key"`
	FallbackKeys   []string `mapstructure:"fallback_keys"`
	Redact         bool     `mapstructure:"redact"`
	RedactPatterns []string `mapstructure:"redact_patterns"`
}

// RenderConfig configures the renderer process.
type RenderConfig struct {
	CommandsFile string        `mapstructure:"commands_file"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Quality      string        `mapstructure:"quality"`
}

// MuxConfig configures the muxer process.
type MuxConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPConfig configures the HTTP facade.
type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Loader reads configuration through a viper instance.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a loader. An empty path searches ./reel.yaml and ~/.config/reel/config.yaml.
func NewLoader(path string) *Loader {
	return &Loader{v: viper.New(), configFile: path}
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load resolves the configuration.
// Precedence: flags bound on Viper(), environment, config file, defaults.
func (l *Loader) Load() (*Config, error) {
	setDefaults(l.v)

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("reel")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "reel"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := l.v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	v.SetDefault("engine.max_steps", 150)
	v.SetDefault("engine.max_evaluation_revisions", domain.DefaultMaxEvaluationRevisions)
	v.SetDefault("engine.max_render_revisions", domain.DefaultMaxRenderRevisions)
	v.SetDefault("engine.run_timeout", "30m")
	v.SetDefault("engine.max_concurrent_runs", 2)
	v.SetDefault("engine.silent_fallback", true)

	v.SetDefault("workspace.root", os.TempDir())
	v.SetDefault("workspace.keep", false)

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_ttl", "168h")
	v.SetDefault("store.sqlite_path", "reel.db")
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})
	v.SetDefault("store.redact", true)
	v.SetDefault("store.redact_patterns", []string{})

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4.1-mini")
	v.SetDefault("llm.timeout", "5m")

	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.timeout", "5m")

	v.SetDefault("tts.region", "eastus")
	v.SetDefault("tts.key", "")
	v.SetDefault("tts.voice", "en-US-AvaMultilingualNeural")
	v.SetDefault("tts.timeout", "2m")
	v.SetDefault("tts.endpoint", "")

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.max_chars", 15000)
	v.SetDefault("search.timeout", "30s")
	v.SetDefault("search.search_url", "")

	v.SetDefault("render.commands_file", "")
	v.SetDefault("render.timeout", "10m")
	v.SetDefault("render.quality", "high")
	v.SetDefault("mux.timeout", "3m")

	v.SetDefault("publish.dir", filepath.Join("static", "videos"))
	v.SetDefault("publish.base_url", "/static/videos")

	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.cors_origins", []string{"*"})
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Engine.Budgets.Validate(); err != nil {
		errs = append(errs, err)
	}
	if bound := pipeline.StepBound(c.Engine.Budgets); c.Engine.MaxSteps <= bound {
		errs = append(errs, fmt.Errorf("engine.max_steps (%d) must exceed the worst-case run length (%d) for these budgets", c.Engine.MaxSteps, bound))
	}
	if c.Engine.MaxConcurrentRuns < 1 {
		errs = append(errs, errors.New("engine.max_concurrent_runs must be at least 1"))
	}
	if c.Engine.RunTimeout <= 0 {
		errs = append(errs, errors.New("engine.run_timeout must be positive"))
	}
	switch c.Store.Driver {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, redis, sqlite", c.Store.Driver))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("store.fallback_keys[%d]: %w", i, err))
		}
	}
	switch c.Render.Quality {
	case "high", "low":
	default:
		errs = append(errs, fmt.Errorf("render.quality %q is not one of high, low", c.Render.Quality))
	}
	switch strings.ToLower(c.Log.Format) {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of auto, text, json", c.Log.Format))
	}
	return errors.Join(errs...)
}
