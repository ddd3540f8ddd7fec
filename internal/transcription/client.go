// Package transcription sends finalized utterance audio to a
// whisper-compatible HTTP API and returns the recognized text.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kennychae/atot/internal/resilience"
	"github.com/kennychae/atot/internal/trace"
)

// Config holds transcription client settings
type Config struct {
	Endpoint      string
	APIKey        string
	Model         string
	Language      string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = resilience.TranscriptionMaxRetries
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	return c
}

// Error is an API-level transcription failure carrying the HTTP status,
// so the retry layer can classify it.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription: status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus implements resilience.StatusCoder
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// Client transcribes WAV audio via a whisper-compatible endpoint
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *resilience.Breaker
	sem     chan struct{} // Bounds concurrent uploads
	logger  *slog.Logger
}

// NewClient creates a transcription client
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewBreaker(resilience.TranscriptionBreakerConfig()),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		logger:  slog.Default().With("component", "transcription"),
	}
}

// Transcribe uploads WAV bytes and returns the recognized text.
// An empty language falls back to the configured default.
func (c *Client) Transcribe(ctx context.Context, wavData []byte, language string) (string, error) {
	if len(wavData) == 0 {
		return "", fmt.Errorf("transcription: empty audio")
	}
	if language == "" {
		language = c.cfg.Language
	}

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	ctx, span := trace.StartSpan(ctx, "transcribe")
	defer span.End()
	span.SetAttr("bytes", len(wavData))
	span.SetAttr("language", language)

	retryCfg := resilience.TranscriptionRetryConfig()
	retryCfg.MaxRetries = c.cfg.MaxRetries

	var text string
	err := resilience.Retry(ctx, retryCfg, func() error {
		return c.breaker.Execute(func() error {
			result, err := c.doRequest(ctx, wavData, language)
			if err != nil {
				return err
			}
			text = result
			return nil
		})
	})
	if err != nil {
		c.logger.Error("transcription failed", "error", err, "bytes", len(wavData))
		return "", err
	}

	span.SetAttr("chars", len(text))
	return text, nil
}

func (c *Client) doRequest(ctx context.Context, wavData []byte, language string) (string, error) {
	body, contentType, err := c.buildForm(wavData, language)
	if err != nil {
		return "", fmt.Errorf("transcription: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("transcription: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("transcription: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
		}
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("transcription: decode response: %w", err)
	}
	return strings.TrimSpace(parsed.Text), nil
}

func (c *Client) buildForm(wavData []byte, language string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile(fileFieldName, uploadFilename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("model", c.cfg.Model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("language", language); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
