package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediminds/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	ErrNoInput         = errors.New("no prescription input")
	ErrMissingAPIKey   = errors.New("Gemini API key is missing")
	ErrInvalidResponse = errors.New("invalid response from Gemini")
)

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		BaseURL:    cfg.GeminiBaseURL,
		Timeout:    cfg.GeminiTimeout,
		RetryCount: 2,
	}
}

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string
	logger *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Model == "" {
		opts.Model = "gemini-1.5-pro"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		apiKey: opts.APIKey,
		model:  opts.Model,
		logger: logger,
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// generate sends one user turn and returns the text of the first candidate.
func (c *Client) generate(ctx context.Context, parts ...part) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	payload := generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 2048,
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(payload).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		c.logger.Error("Gemini API call failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("call Gemini API: %w", err)
	}

	if resp.IsError() {
		msg := strings.TrimSpace(string(resp.Body()))
		var body apiErrorBody
		if json.Unmarshal(resp.Body(), &body) == nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		c.logger.Error("Gemini API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", msg),
		)
		return "", fmt.Errorf("Gemini API returned status %d: %s", resp.StatusCode(), msg)
	}

	var result generateResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", ErrInvalidResponse, err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
