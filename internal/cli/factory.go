// Package cli assembles the generator and its adapters from configuration.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/config"
	"github.com/aretw0/reel/internal/pipeline"
	"github.com/aretw0/reel/pkg/adapters/azuretts"
	"github.com/aretw0/reel/pkg/adapters/ffmpeg"
	"github.com/aretw0/reel/pkg/adapters/gemini"
	"github.com/aretw0/reel/pkg/adapters/manim"
	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/adapters/openai"
	"github.com/aretw0/reel/pkg/adapters/process"
	"github.com/aretw0/reel/pkg/adapters/publish"
	"github.com/aretw0/reel/pkg/adapters/redis"
	"github.com/aretw0/reel/pkg/adapters/sqlite"
	"github.com/aretw0/reel/pkg/adapters/websearch"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/aretw0/reel/pkg/persistence/middleware"
	"github.com/aretw0/reel/pkg/ports"
)

// App is a fully wired generator plus the resources it owns.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Generator *reel.Generator
	Metrics   *observability.Metrics

	closers []func() error
}

// Close releases the run store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires every adapter named by cfg into a generator.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	store, closer, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	collaborators, err := Collaborators(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := os.MkdirAll(cfg.Workspace.Root, 0o755); err != nil {
		app.Close()
		return nil, fmt.Errorf("prepare workspace root: %w", err)
	}

	gen, err := reel.New(collaborators,
		reel.WithLogger(logger),
		reel.WithStore(store),
		reel.WithBudgets(cfg.Engine.Budgets),
		reel.WithMaxSteps(cfg.Engine.MaxSteps),
		reel.WithRunTimeout(cfg.Engine.RunTimeout),
		reel.WithWorkspace(cfg.Workspace.Root, cfg.Workspace.Keep),
		reel.WithSilentFallback(cfg.Engine.SilentFallback),
		reel.WithTimeouts(Timeouts(cfg)),
		reel.WithLifecycleHooks(domain.ComposeHooks(
			app.Metrics.Hooks(),
			observability.LoggingHooks(logger),
		)),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Generator = gen
	return app, nil
}

// OpenStore opens the configured run record store, wrapped in the redaction and
// encryption middlewares when enabled. The closer may be nil.
func OpenStore(cfg config.StoreConfig) (ports.RunStore, func() error, error) {
	store, closer, err := openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}

	var mws []middleware.Middleware
	if cfg.Redact {
		patterns := cfg.RedactPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultRedactPatterns
		}
		redact, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			return nil, nil, closeWith(closer, err)
		}
		mws = append(mws, redact)
	}
	if cfg.EncryptionKey != "" {
		enc := middleware.EncryptionConfig{}
		if enc.ActiveKey, err = middleware.ParseKey(cfg.EncryptionKey); err != nil {
			return nil, nil, closeWith(closer, err)
		}
		for _, k := range cfg.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, nil, closeWith(closer, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		encrypt, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, nil, closeWith(closer, err)
		}
		mws = append(mws, encrypt)
	}
	return middleware.Chain(store, mws...), closer, nil
}

func closeWith(closer func() error, err error) error {
	if closer != nil {
		return errors.Join(err, closer())
	}
	return err
}

func openBackend(cfg config.StoreConfig) (ports.RunStore, func() error, error) {
	switch cfg.Driver {
	case config.StoreRedis:
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.RedisTTL))
		return s, s.Close, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.StoreMemory, "":
		return memory.NewStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Collaborators builds the stock adapters. Evaluation and narration need a Gemini key,
// speech synthesis an Azure key; without them those steps are skipped.
func Collaborators(cfg *config.Config, logger *slog.Logger) (pipeline.Collaborators, error) {
	commands, err := process.LoadCommands(cfg.Render.CommandsFile)
	if err != nil {
		return pipeline.Collaborators{}, fmt.Errorf("load process commands: %w", err)
	}
	runner := process.NewRunner(process.WithRegistry(commands))

	quality := manim.QualityHigh
	if cfg.Render.Quality == "low" {
		quality = manim.QualityLow
	}

	llm := openai.New(cfg.LLM, logger)
	c := pipeline.Collaborators{
		Planner:  openai.NewPlanner(llm),
		Coder:    openai.NewCoder(llm),
		Renderer: manim.New(runner, manim.WithQuality(quality)),
		Muxer: ffmpeg.New(runner,
			ffmpeg.WithSilentFallback(cfg.Engine.SilentFallback),
			ffmpeg.WithLogger(logger),
		),
		Publisher: publish.New(cfg.Publish),
	}

	if cfg.Search.Enabled {
		c.Researcher = websearch.New(cfg.Search, logger)
	}
	if cfg.Gemini.APIKey != "" {
		vision := gemini.New(cfg.Gemini, logger)
		c.Evaluator = gemini.NewEvaluator(vision)
		c.Narrator = gemini.NewNarrator(vision)
	} else {
		logger.Warn("gemini.api_key not set: video review and narration are disabled")
	}
	if cfg.TTS.Key != "" {
		c.Synthesizer = azuretts.New(cfg.TTS, logger)
	} else {
		logger.Warn("tts.key not set: speech synthesis is disabled")
	}
	return c, nil
}

// Timeouts derives the per-step timeouts from the adapter settings.
func Timeouts(cfg *config.Config) pipeline.Timeouts {
	t := pipeline.DefaultTimeouts()
	if cfg.LLM.Timeout > 0 {
		t.Plan = cfg.LLM.Timeout
		t.Generate = cfg.LLM.Timeout
	}
	if cfg.Render.Timeout > 0 {
		t.Render = cfg.Render.Timeout
	}
	if cfg.Search.Timeout > 0 {
		t.Research = cfg.Search.Timeout
	}
	if cfg.Gemini.Timeout > 0 {
		t.Evaluate = cfg.Gemini.Timeout
		t.Narrate = cfg.Gemini.Timeout
	}
	if cfg.TTS.Timeout > 0 {
		t.Synthesize = cfg.TTS.Timeout
	}
	if cfg.Mux.Timeout > 0 {
		t.Mux = cfg.Mux.Timeout
	}
	return t
}
