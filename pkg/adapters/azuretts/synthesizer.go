// Package azuretts synthesizes narration with the Azure Speech REST API.
package azuretts

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/aretw0/reel/internal/httpx"
	"github.com/aretw0/reel/pkg/ports"
)

const (
	defaultVoice = "en-US-AvaMultilingualNeural"
	outputFormat = "audio-24khz-96kbitrate-mono-mp3"
	pause        = `<break time="50ms"/>`
)

// Config selects the region, credentials and voice.
type Config struct {
	Region  string        `mapstructure:"region"`
	Key     string        `mapstructure:"key"`
	Voice   string        `mapstructure:"voice"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Endpoint overrides the regional URL.
	Endpoint string `mapstructure:"endpoint"`
}

// Synthesizer implements ports.Synthesizer.
type Synthesizer struct {
	http     *httpx.Client
	endpoint string
	key      string
	voice    string
}

var _ ports.Synthesizer = (*Synthesizer)(nil)

// New creates a synthesizer.
func New(cfg Config, logger *slog.Logger) *Synthesizer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Synthesizer{
		http:     httpx.New(timeout, logger),
		endpoint: endpoint,
		key:      cfg.Key,
		voice:    voice,
	}
}

// Synthesize writes an MP3 of req.Text to req.OutputPath.
func (s *Synthesizer) Synthesize(ctx context.Context, req ports.SpeechRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", errors.New("no narration text to synthesize")
	}
	lang := req.Language
	if lang == "" {
		lang = "en-US"
	}

	resp, err := s.http.Do(ctx, http.MethodPost, s.endpoint, map[string]string{
		"Ocp-Apim-Subscription-Key": s.key,
		"Content-Type":              "application/ssml+xml",
		"X-Microsoft-OutputFormat":  outputFormat,
		"User-Agent":                "reel",
	}, []byte(SSML(req.Text, lang, s.voice)))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	audio, err := httpx.JSON(resp)
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", errors.New("speech service returned no audio")
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", err
	}
	if err := renameio.WriteFile(req.OutputPath, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return req.OutputPath, nil
}

var paragraphs = regexp.MustCompile(`\n\s*\n`)

// SSML wraps text in a speak document. Blank lines become short pauses.
func SSML(text, lang, voice string) string {
	parts := paragraphs.Split(strings.TrimSpace(text), -1)
	for i, p := range parts {
		parts[i] = escape(strings.TrimSpace(p))
	}
	return fmt.Sprintf(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		escape(lang), escape(voice), strings.Join(parts, pause))
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
