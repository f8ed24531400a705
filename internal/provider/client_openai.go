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

// OpenAIClient implements ChatClient for the OpenAI chat completions API.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	httpClient  *http.Client
	logger      *zap.Logger
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:    apiKey,
		BaseURL:   "https://api.openai.com/v1",
		Model:     "gpt-4-vision-preview",
		MaxTokens: 300,
		Timeout:   90 * time.Second,
	}
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(config OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
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
func (c *OpenAIClient) Name() string { return "GPT" }

// Provider returns the ledger key for usage accounting.
func (c *OpenAIClient) Provider() string { return "openai" }

// Request executes one chat completion. Token counts come verbatim from the
// provider-reported usage block.
func (c *OpenAIClient) Request(ctx context.Context, req Request) (*Result, error) {
	// Apply the client timeout if the context has no deadline of its own.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	c.logger.Debug("openai request",
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

	var messages []OpenAIMessage
	if req.Instruction != "" {
		messages = append(messages, OpenAIMessage{Role: "system", Content: req.Instruction})
	}
	if len(req.Image) > 0 {
		encoded := base64.StdEncoding.EncodeToString(req.Image)
		messages = append(messages, OpenAIMessage{
			Role: "user",
			Content: []OpenAIContentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &OpenAIImageURL{
					URL: "data:image/jpeg;base64," + encoded,
				}},
			},
		})
	} else {
		messages = append(messages, OpenAIMessage{Role: "user", Content: req.Prompt})
	}

	reqBody := OpenAIRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

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

	var openaiResp OpenAIResponse
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if openaiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", openaiResp.Error.Message)
	}

	if len(openaiResp.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	text := strings.TrimSpace(openaiResp.Choices[0].Message.Content)
	c.logger.Debug("openai response",
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("response_len", len(text)),
		zap.Int("total_tokens", openaiResp.Usage.TotalTokens))

	return &Result{
		Text:             text,
		PromptTokens:     openaiResp.Usage.PromptTokens,
		CompletionTokens: openaiResp.Usage.CompletionTokens,
		TotalTokens:      openaiResp.Usage.TotalTokens,
	}, nil
}

// SetModel changes the model used for completions.
func (c *OpenAIClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *OpenAIClient) GetModel() string {
	return c.model
}
