package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 150, cfg.Engine.MaxSteps)
	assert.Equal(t, 3, cfg.Engine.MaxEvaluationRevisions)
	assert.Equal(t, 6, cfg.Engine.MaxRenderRevisions)
	assert.Equal(t, 30*time.Minute, cfg.Engine.RunTimeout)
	assert.True(t, cfg.Engine.SilentFallback)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.Equal(t, 15000, cfg.Search.MaxChars)
	assert.Equal(t, 10*time.Minute, cfg.Render.Timeout)
	assert.Equal(t, "/static/videos", cfg.Publish.BaseURL)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.yaml")
	yml := `
engine:
  max_render_revisions: 2
  run_timeout: 5m
store:
  driver: sqlite
  sqlite_path: /tmp/runs.db
llm:
  model: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("REEL_LLM_MODEL", "from-env")
	t.Setenv("REEL_HTTP_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.MaxRenderRevisions)
	assert.Equal(t, 3, cfg.Engine.MaxEvaluationRevisions)
	assert.Equal(t, 5*time.Minute, cfg.Engine.RunTimeout)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [:"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"negative budget", func(c *Config) { c.Engine.MaxRenderRevisions = -1 }, "must not be negative"},
		{"ceiling below bound", func(c *Config) { c.Engine.MaxSteps = 20 }, "worst-case run length"},
		{"ceiling at bound", func(c *Config) { c.Engine.MaxSteps = 9 + 3*(3+6) }, "worst-case run length"},
		{"no concurrency", func(c *Config) { c.Engine.MaxConcurrentRuns = 0 }, "max_concurrent_runs"},
		{"unknown store", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
