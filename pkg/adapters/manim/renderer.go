// Package manim renders animation scripts with the Manim Community CLI.
package manim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aretw0/reel/internal/textutil"
	"github.com/aretw0/reel/pkg/adapters/process"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
)

// CommandName is the registry key the renderer invokes.
const CommandName = "manim"

// maxDiagnostic bounds the error text handed back to the revision loop.
const maxDiagnostic = 1500

// Quality selects the manim quality flag and the directory it renders into.
type Quality struct {
	Flag string
	Dir  string
}

var (
	QualityLow  = Quality{Flag: "-ql", Dir: "480p15"}
	QualityHigh = Quality{Flag: "-qh", Dir: "1080p60"}
)

// Renderer implements ports.Renderer.
type Renderer struct {
	runner  *process.Runner
	quality Quality
}

var _ ports.Renderer = (*Renderer)(nil)

// Option configures the renderer.
type Option func(*Renderer)

// WithQuality overrides the render quality.
func WithQuality(q Quality) Option {
	return func(r *Renderer) { r.quality = q }
}

// New creates a renderer backed by the "manim" command of runner.
func New(runner *process.Runner, opts ...Option) *Renderer {
	r := &Renderer{runner: runner, quality: QualityHigh}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OutputName is the file name manim is asked to write.
func OutputName(requestID string) string {
	return requestID + "_combined_video.mp4"
}

// Args builds the manim argument list for req.
func (r *Renderer) Args(req ports.RenderRequest) []string {
	return []string{
		"render", r.quality.Flag,
		"--format", "mp4",
		"--media_dir", req.MediaDir,
		"-o", OutputName(req.RequestID),
		req.ScriptPath,
		req.SceneClass,
	}
}

// Render runs manim and moves the produced video into req.OutputDir.
func (r *Renderer) Render(ctx context.Context, req ports.RenderRequest) (string, error) {
	if req.ScriptPath == "" {
		return "", errors.New("no script to render")
	}
	if !r.runner.Registered(CommandName) {
		return "", domain.Fatalf("renderer command %q is not configured", CommandName)
	}

	res, err := r.runner.Run(ctx, process.Invocation{
		Name: CommandName,
		Args: r.Args(req),
		Dir:  filepath.Dir(req.ScriptPath),
	})
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", domain.Fatal(fmt.Errorf("manim is not installed: %w", err))
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("render interrupted: %w", err)
		}
		return "", errors.New(diagnostic(res))
	}

	produced, err := locate(req)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return "", domain.Fatal(fmt.Errorf("create output dir: %w", err))
	}
	dest := filepath.Join(req.OutputDir, OutputName(req.RequestID))
	if err := os.Rename(produced, dest); err != nil {
		return "", fmt.Errorf("move rendered video: %w", err)
	}
	return dest, nil
}

// diagnostic keeps the tail of the output, which is where Python tracebacks end.
func diagnostic(res process.Result) string {
	text := textutil.LastTraceback(res.Combined(), maxDiagnostic)
	if strings.TrimSpace(text) == "" {
		return fmt.Sprintf("manim exited with code %d and no output", res.ExitCode)
	}
	return text
}

// locate finds the rendered file. Manim nests it under videos/<script>/<quality>/
// unless the scene writes straight into the media directory.
func locate(req ports.RenderRequest) (string, error) {
	name := OutputName(req.RequestID)
	base := strings.TrimSuffix(filepath.Base(req.ScriptPath), filepath.Ext(req.ScriptPath))

	candidates := []string{
		filepath.Join(req.MediaDir, "videos", base, QualityHigh.Dir, name),
		filepath.Join(req.MediaDir, "videos", base, QualityLow.Dir, name),
		filepath.Join(req.MediaDir, name),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	// Fall back to a walk for quality folders we do not know about.
	var found string
	_ = filepath.WalkDir(req.MediaDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if found != "" {
		return found, nil
	}
	return "", fmt.Errorf("render finished but %s was not produced", name)
}
