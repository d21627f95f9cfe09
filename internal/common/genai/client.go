// internal/common/genai/client.go

// Package genai provides an OpenAI-compatible chat-completion client with
// provider fallback: xAI Grok when an xAI key is configured, then OpenAI,
// then a locally running Ollama server which needs no key.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"research-crew/internal/common/httpclient"
)

const (
	xaiBaseURL    = "https://api.x.ai/v1"
	openaiBaseURL = "https://api.openai.com/v1"

	xaiModel    = "grok"
	openaiModel = "gpt-3.5-turbo"
)

var (
	// ErrNoProvider means no provider could be resolved.
	ErrNoProvider = errors.New("genai: no language model provider available")
	// ErrEmptyCompletion means the provider returned no choices.
	ErrEmptyCompletion = errors.New("genai: empty completion")
)

// Provider identifies which backend serves completions.
type Provider string

const (
	ProviderXAI    Provider = "xai"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config selects the provider and generation parameters.
type Config struct {
	XAIAPIKey    string
	OpenAIAPIKey string
	OllamaURL    string
	OllamaModel  string
	MaxTokens    int
	Temperature  float64
}

// ChatMessage is an OpenAI-compatible chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Client sends chat completions to the resolved provider.
type Client struct {
	provider Provider
	baseURL  string
	apiKey   string
	model    string
	cfg      Config
	http     *httpclient.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBaseURL overrides the resolved provider base URL (useful for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewClient resolves the provider from the configured keys and returns a
// ready client. Resolution order matches the original deployment: xAI,
// then OpenAI, then Ollama.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		// Local models can be slow; the generous timeout mirrors the
		// original deployment's Ollama settings.
		http: httpclient.NewClient(20 * time.Minute).WithMaxRetries(0),
	}

	switch {
	case cfg.XAIAPIKey != "":
		c.provider = ProviderXAI
		c.baseURL = xaiBaseURL
		c.apiKey = cfg.XAIAPIKey
		c.model = xaiModel
	case cfg.OpenAIAPIKey != "":
		c.provider = ProviderOpenAI
		c.baseURL = openaiBaseURL
		c.apiKey = cfg.OpenAIAPIKey
		c.model = openaiModel
	default:
		c.provider = ProviderOllama
		c.baseURL = strings.TrimRight(cfg.OllamaURL, "/") + "/v1"
		c.model = cfg.OllamaModel
	}

	for _, o := range opts {
		o(c)
	}
	return c
}

// Provider reports which backend the client resolved to.
func (c *Client) Provider() Provider {
	return c.provider
}

// Complete sends the messages and returns the completion text.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(reqBody); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("genai: %s completion error (%d): %s", c.provider, resp.StatusCode, string(b))
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return out.Choices[0].Message.Content, nil
}

// ProbeOllama checks whether the local Ollama server is reachable and the
// configured model is pulled. Only meaningful when the resolved provider
// is Ollama; other providers return nil.
func (c *Client) ProbeOllama(ctx context.Context) error {
	if c.provider != ProviderOllama {
		return nil
	}

	base := strings.TrimSuffix(c.baseURL, "/v1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama server not responding: %v", ErrNoProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama server returned %d", ErrNoProvider, resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("%w: decode ollama tags: %v", ErrNoProvider, err)
	}

	for _, m := range tags.Models {
		if m.Name == c.model || strings.HasPrefix(m.Name, c.model+":") {
			return nil
		}
	}
	return fmt.Errorf("%w: model %q not pulled (run 'ollama pull %s')", ErrNoProvider, c.model, c.model)
}
