package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/reel/pkg/adapters/process"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeFFmpeg(t *testing.T, body string) *process.Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake muxer requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	runner := process.NewRunner()
	runner.Register(CommandName, path)
	return runner
}

func inputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "video.mp4")
	audio := filepath.Join(dir, "audio.mp3")
	require.NoError(t, os.WriteFile(video, []byte("silent"), 0o644))
	require.NoError(t, os.WriteFile(audio, []byte("voice"), 0o644))
	return video, audio, filepath.Join(dir, "build", "final.mp4")
}

func TestArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-y", "-i", "v.mp4", "-i", "a.mp3", "-c:v", "copy", "-c:a", "aac", "-shortest", "out.mp4"},
		Args("v.mp4", "a.mp3", "out.mp4"))
}

func TestMux_WithAudio(t *testing.T) {
	// The last argument is the output path.
	runner := fakeFFmpeg(t, `for last; do :; done; echo muxed > "$last"`)
	video, audio, out := inputs(t)

	got, err := New(runner).Mux(context.Background(), ports.MuxRequest{VideoPath: video, AudioPath: audio, OutputPath: out})
	require.NoError(t, err)
	assert.Equal(t, out, got)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "muxed\n", string(data))
}

func TestMux_WithoutAudioCopiesVideo(t *testing.T) {
	video, _, out := inputs(t)

	got, err := New(process.NewRunner()).Mux(context.Background(), ports.MuxRequest{VideoPath: video, OutputPath: out})
	require.NoError(t, err)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "silent", string(data))
}

func TestMux_Failure(t *testing.T) {
	runner := fakeFFmpeg(t, `echo "Invalid data found when processing input" >&2; exit 1`)
	video, audio, out := inputs(t)
	req := ports.MuxRequest{VideoPath: video, AudioPath: audio, OutputPath: out}

	t.Run("without fallback", func(t *testing.T) {
		_, err := New(runner).Mux(context.Background(), req)
		require.Error(t, err)
		assert.False(t, domain.IsFatal(err))
		assert.Contains(t, err.Error(), "Invalid data found")
	})

	t.Run("with fallback", func(t *testing.T) {
		got, err := New(runner, WithSilentFallback(true)).Mux(context.Background(), req)
		require.NoError(t, err)
		data, err := os.ReadFile(got)
		require.NoError(t, err)
		assert.Equal(t, "silent", string(data))
	})
}

func TestMux_UnavailableIsFatal(t *testing.T) {
	video, audio, out := inputs(t)
	_, err := New(process.NewRunner()).Mux(context.Background(), ports.MuxRequest{VideoPath: video, AudioPath: audio, OutputPath: out})
	assert.True(t, domain.IsFatal(err))
}
