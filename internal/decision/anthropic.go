package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// anthropicAPIURL is the Anthropic Messages API endpoint.
	anthropicAPIURL = "https://api.anthropic.com/v1/messages"

	// defaultAnthropicModel is used when no model is configured.
	defaultAnthropicModel = "claude-3-haiku-20240307"

	// anthropicMaxTokens leaves room for a TARGET line and a short THOUGHT.
	anthropicMaxTokens = 300
)

// AnthropicGenerator implements Generator using the Anthropic Messages API.
type AnthropicGenerator struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// HTTPOption configures the HTTP generators.
type HTTPOption func(*httpSettings)

type httpSettings struct {
	model      string
	url        string
	httpClient *http.Client
}

// WithModel overrides the model name.
func WithModel(model string) HTTPOption {
	return func(s *httpSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithEndpoint overrides the API endpoint (used by tests).
func WithEndpoint(url string) HTTPOption {
	return func(s *httpSettings) {
		if url != "" {
			s.url = url
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *httpSettings) {
		if c != nil {
			s.httpClient = c
		}
	}
}

func applyHTTPOptions(model, url string, opts []HTTPOption) httpSettings {
	s := httpSettings{model: model, url: url, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewAnthropicGenerator creates a generator authenticated with apiKey.
func NewAnthropicGenerator(apiKey string, opts ...HTTPOption) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is empty")
	}
	s := applyHTTPOptions(defaultAnthropicModel, anthropicAPIURL, opts)
	return &AnthropicGenerator{
		apiKey:     apiKey,
		model:      s.model,
		url:        s.url,
		httpClient: s.httpClient,
	}, nil
}

// Name implements Generator.
func (g *AnthropicGenerator) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqBytes, err := json.Marshal(messagesRequest{
		Model:     g.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var respData messagesResponse
	if err := json.Unmarshal(body, &respData); err != nil {
		return "", parseError(g.Name(), "unmarshal response: %v", err)
	}
	if respData.Error != nil {
		return "", fmt.Errorf("API error: %s", respData.Error.Message)
	}

	var text strings.Builder
	for _, block := range respData.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", parseError(g.Name(), "empty response from API")
	}
	return text.String(), nil
}
