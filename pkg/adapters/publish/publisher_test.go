package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	src := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o644))

	dir := filepath.Join(t.TempDir(), "static", "videos")
	p := New(Config{Dir: dir, BaseURL: "/static/videos/"})

	pub, err := p.Publish(context.Background(), src, "abc_final.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc_final.mp4"), pub.Path)
	assert.Equal(t, "/static/videos/abc_final.mp4", pub.URL)

	data, err := os.ReadFile(pub.Path)
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))

	// The source stays in place; the workspace owns it.
	assert.FileExists(t, src)
}

func TestPublish_AbsoluteBaseURL(t *testing.T) {
	p := New(Config{Dir: t.TempDir(), BaseURL: "https://cdn.example.com/videos"})
	assert.Equal(t, "https://cdn.example.com/videos/x.mp4", p.URL("x.mp4"))
}

func TestPublish_Errors(t *testing.T) {
	p := New(Config{Dir: t.TempDir()})

	_, err := p.Publish(context.Background(), "/nope", "../escape.mp4")
	assert.True(t, domain.IsFatal(err))

	_, err = p.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "ok.mp4")
	require.Error(t, err)
	assert.False(t, domain.IsFatal(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := filepath.Join(t.TempDir(), "final.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o644))
	_, err = p.Publish(ctx, src, "canceled.mp4")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(p.Dir(), "canceled.mp4"))
}
