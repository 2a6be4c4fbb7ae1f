// Package ffmpeg combines rendered video and synthesized narration with the ffmpeg CLI.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/aretw0/reel/internal/textutil"
	"github.com/aretw0/reel/pkg/adapters/process"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// CommandName is the registry key the muxer invokes.
const CommandName = "ffmpeg"

// Muxer implements ports.Muxer.
type Muxer struct {
	runner *process.Runner
	// fallback copies the silent video when ffmpeg fails on a run that has audio.
	fallback bool
	logger   *slog.Logger
}

var _ ports.Muxer = (*Muxer)(nil)

// Option configures the muxer.
type Option func(*Muxer)

// WithSilentFallback publishes the silent video when muxing fails.
func WithSilentFallback(enabled bool) Option {
	return func(m *Muxer) { m.fallback = enabled }
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(m *Muxer) { m.logger = l }
}

// New creates a muxer backed by the "ffmpeg" command of runner.
func New(runner *process.Runner, opts ...Option) *Muxer {
	m := &Muxer{runner: runner, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Args builds the ffmpeg argument list. The video stream is copied and the
// output is cut to the shorter of the two inputs.
func Args(video, audio, output string) []string {
	return []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		output,
	}
}

// Mux writes req.OutputPath. Without audio the silent video is copied as is.
func (m *Muxer) Mux(ctx context.Context, req ports.MuxRequest) (string, error) {
	if req.VideoPath == "" {
		return "", errors.New("no video to mux")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", domain.Fatal(fmt.Errorf("create output dir: %w", err))
	}

	if req.AudioPath == "" {
		if err := copyFile(req.VideoPath, req.OutputPath); err != nil {
			return "", fmt.Errorf("copy silent video: %w", err)
		}
		return req.OutputPath, nil
	}

	res, err := m.runner.Run(ctx, process.Invocation{
		Name: CommandName,
		Args: Args(req.VideoPath, req.AudioPath, req.OutputPath),
	})
	if err == nil {
		return req.OutputPath, nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, process.ErrNotRegistered) {
		err = domain.Fatal(fmt.Errorf("ffmpeg is not available: %w", err))
	} else {
		err = fmt.Errorf("ffmpeg failed: %s", textutil.LastTraceback(res.Stderr, 1000))
	}

	if !m.fallback {
		return "", err
	}
	m.logger.WarnContext(ctx, "mux failed, publishing silent video", "error", err)
	if cerr := copyFile(req.VideoPath, req.OutputPath); cerr != nil {
		return "", errors.Join(err, cerr)
	}
	return req.OutputPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
