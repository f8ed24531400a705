package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AnthropicClient implements ChatClient for the Anthropic messages API.
//
// Token accounting is estimated: prompt and completion counts are derived by
// whitespace-splitting the input and output text, and totaled as their sum.
// Results are labeled Estimated accordingly.
type AnthropicClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	httpClient  *http.Client
	logger      *zap.Logger
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:    apiKey,
		BaseURL:   "https://api.anthropic.com/v1",
		Model:     "claude-3-opus-20240229",
		MaxTokens: 300,
		Timeout:   90 * time.Second,
	}
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(config AnthropicConfig, logger *zap.Logger) *AnthropicClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnthropicClient{
		apiKey:    config.APIKey,
		baseURL:   config.BaseURL,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Name returns the display name used in formatted replies.
func (c *AnthropicClient) Name() string { return "Claude" }

// Provider returns the ledger key for usage accounting.
func (c *AnthropicClient) Provider() string { return "anthropic" }

// Request executes one messages call. The instruction rides the top-level
// system field; an image replaces the plain user turn with a text block plus
// a base64 image block.
func (c *AnthropicClient) Request(ctx context.Context, req Request) (*Result, error) {
	// Apply the client timeout if the context has no deadline of its own.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	c.logger.Debug("anthropic request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Bool("has_image", len(req.Image) > 0),
		zap.Bool("has_instruction", req.Instruction != ""))

	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	// Pace consecutive calls slightly to stay under burst limits.
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	var userContent interface{} = req.Prompt
	if len(req.Image) > 0 {
		encoded := base64.StdEncoding.EncodeToString(req.Image)
		userContent = []AnthropicContentBlock{
			{Type: "text", Text: req.Prompt},
			{Type: "image", Source: &AnthropicImageSource{
				Type:      "base64",
				MediaType: "image/jpeg",
				Data:      encoded,
			}},
		}
	}

	reqBody := AnthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.Instruction,
		Messages: []AnthropicMessage{
			{Role: "user", Content: userContent},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if anthropicResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	if len(anthropicResp.Content) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	var result strings.Builder
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			result.WriteString(content.Text)
		}
	}
	text := strings.TrimSpace(result.String())

	promptTokens := EstimateTokens(req.Prompt)
	completionTokens := EstimateTokens(text)

	c.logger.Debug("anthropic response",
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("response_len", len(text)),
		zap.Int("estimated_tokens", promptTokens+completionTokens))

	return &Result{
		Text:             text,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Estimated:        true,
	}, nil
}

// SetModel changes the model used for completions.
func (c *AnthropicClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *AnthropicClient) GetModel() string {
	return c.model
}
