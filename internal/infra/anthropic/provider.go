// Package anthropic implements the classification service invoker over
// the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
)

// Config holds the Messages API settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Endpoint  string // defaults to the public API; overridden in tests
}

// Provider calls the Messages API. Errors carry the HTTP status code and
// response text so callers can classify throttling by message content.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// NewProvider creates a Messages API provider.
func NewProvider(cfg Config) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return &Provider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends one prompt and returns the text of the first content
// block of the response.
func (p *Provider) Invoke(ctx context.Context, prompt string) (string, error) {
	reqBody := messagesRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("rate limited (429), retry after: %s", resp.Header.Get("Retry-After"))
	case 529:
		return "", fmt.Errorf("service overloaded (529): %s", string(body))
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr messagesResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			return "", fmt.Errorf("http %d: %s: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	return msgResp.Content[0].Text, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
