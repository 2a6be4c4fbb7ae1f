// Package gemini provides the video-understanding collaborators (evaluation and
// narration) on top of the Gemini REST API and its file service.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/reel/internal/httpx"
	"github.com/aretw0/reel/pkg/domain"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
)

// Config selects the endpoint and model.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Client uploads videos and asks the model about them.
type Client struct {
	http   *httpx.Client
	base   string
	key    string
	model  string
	poll   time.Duration
	logger *slog.Logger
}

// New creates a client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		http:   httpx.New(timeout, logger),
		base:   base,
		key:    cfg.APIKey,
		model:  model,
		poll:   2 * time.Second,
		logger: logger,
	}
}

type remoteFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (c *Client) url(path string) string {
	return c.base + path + "?key=" + c.key
}

// AskAboutVideo uploads the video, waits until it is processed, asks the prompt and
// deletes the upload.
func (c *Client) AskAboutVideo(ctx context.Context, videoPath, prompt string) (string, error) {
	if videoPath == "" {
		return "", errors.New("no video to analyze")
	}
	file, err := c.upload(ctx, videoPath)
	if err != nil {
		return "", err
	}
	defer c.remove(context.WithoutCancel(ctx), file.Name)

	if file, err = c.waitActive(ctx, file); err != nil {
		return "", err
	}
	return c.generate(ctx, []part{
		{Text: prompt},
		{FileData: &fileData{MimeType: file.MimeType, FileURI: file.URI}},
	})
}

func (c *Client) upload(ctx context.Context, path string) (remoteFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return remoteFile{}, domain.Fatal(fmt.Errorf("read video: %w", err))
	}
	mime := "video/mp4"

	meta, _ := json.Marshal(map[string]any{"file": map[string]string{"display_name": filepath.Base(path)}})
	resp, err := c.http.Do(ctx, http.MethodPost, c.url("/upload/v1beta/files"), map[string]string{
		"Content-Type":                        "application/json",
		"X-Goog-Upload-Protocol":              "resumable",
		"X-Goog-Upload-Command":               "start",
		"X-Goog-Upload-Header-Content-Length": strconv.Itoa(len(data)),
		"X-Goog-Upload-Header-Content-Type":   mime,
	}, meta)
	if err != nil {
		return remoteFile{}, fmt.Errorf("start upload: %w", err)
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if _, err := httpx.JSON(resp); err != nil {
		return remoteFile{}, fmt.Errorf("start upload: %w", err)
	}
	if uploadURL == "" {
		return remoteFile{}, errors.New("start upload: no upload URL returned")
	}

	resp, err = c.http.Do(ctx, http.MethodPost, uploadURL, map[string]string{
		"Content-Length":        strconv.Itoa(len(data)),
		"X-Goog-Upload-Offset":  "0",
		"X-Goog-Upload-Command": "upload, finalize",
	}, data)
	if err != nil {
		return remoteFile{}, fmt.Errorf("upload video: %w", err)
	}
	body, err := httpx.JSON(resp)
	if err != nil {
		return remoteFile{}, fmt.Errorf("upload video: %w", err)
	}

	var out struct {
		File remoteFile `json:"file"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return remoteFile{}, fmt.Errorf("parse upload response: %w", err)
	}
	if out.File.MimeType == "" {
		out.File.MimeType = mime
	}
	c.logger.DebugContext(ctx, "video uploaded", "file", out.File.Name, "bytes", len(data))
	return out.File, nil
}

func (c *Client) waitActive(ctx context.Context, f remoteFile) (remoteFile, error) {
	for {
		switch f.State {
		case "ACTIVE", "":
			return f, nil
		case "FAILED":
			return f, fmt.Errorf("file %s failed processing", f.Name)
		}

		select {
		case <-ctx.Done():
			return f, ctx.Err()
		case <-time.After(c.poll):
		}

		resp, err := c.http.Do(ctx, http.MethodGet, c.url("/v1beta/"+f.Name), nil, nil)
		if err != nil {
			return f, fmt.Errorf("poll file: %w", err)
		}
		body, err := httpx.JSON(resp)
		if err != nil {
			return f, fmt.Errorf("poll file: %w", err)
		}
		var next remoteFile
		if err := json.Unmarshal(body, &next); err != nil {
			return f, fmt.Errorf("parse file status: %w", err)
		}
		if next.MimeType == "" {
			next.MimeType = f.MimeType
		}
		f = next
	}
}

func (c *Client) remove(ctx context.Context, name string) {
	if name == "" {
		return
	}
	resp, err := c.http.Do(ctx, http.MethodDelete, c.url("/v1beta/"+name), nil, nil)
	if err == nil {
		_, err = httpx.JSON(resp)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "failed to delete uploaded file", "file", name, "error", err)
	}
}

func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Role: "user", Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	resp, err := c.http.Do(ctx, http.MethodPost, c.url("/v1beta/models/"+c.model+":generateContent"),
		map[string]string{"Content-Type": "application/json"}, body)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	data, err := httpx.JSON(resp)
	if err != nil {
		return "", err
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("API returned no candidates")
	}

	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}
