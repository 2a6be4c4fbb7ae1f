// Package publish copies finished videos into the directory served to clients.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// Config locates the published files on disk and on the wire.
type Config struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

// Publisher implements ports.Publisher on the local filesystem.
type Publisher struct {
	dir  string
	base string
}

var _ ports.Publisher = (*Publisher)(nil)

// New creates a publisher.
func New(cfg Config) *Publisher {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join("static", "videos")
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "/static/videos"
	}
	return &Publisher{dir: dir, base: base}
}

// Dir is the directory files are published into.
func (p *Publisher) Dir() string {
	return p.dir
}

// Publish atomically copies localPath to <dir>/<name>. Readers never observe a partial file.
func (p *Publisher) Publish(ctx context.Context, localPath, name string) (ports.Publication, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return ports.Publication{}, domain.Fatalf("invalid publication name %q", name)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return ports.Publication{}, domain.Fatal(fmt.Errorf("create publish dir: %w", err))
	}

	src, err := os.Open(localPath)
	if err != nil {
		return ports.Publication{}, fmt.Errorf("open output: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(p.dir, name)
	t, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o644))
	if err != nil {
		return ports.Publication{}, fmt.Errorf("stage publication: %w", err)
	}
	defer t.Cleanup()

	if _, err := io.Copy(t, &ctxReader{ctx: ctx, r: src}); err != nil {
		return ports.Publication{}, fmt.Errorf("copy output: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return ports.Publication{}, fmt.Errorf("publish output: %w", err)
	}

	return ports.Publication{Path: dest, URL: p.URL(name)}, nil
}

// URL is the externally reachable reference of a published name.
func (p *Publisher) URL(name string) string {
	if strings.Contains(p.base, "://") {
		return p.base + "/" + name
	}
	return path.Join(p.base, name)
}

// ctxReader stops long copies when the context ends.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}
