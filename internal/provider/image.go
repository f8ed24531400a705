package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ImageClient implements ImageGenerator over the OpenAI image generations
// API. There is no token concept here; cost is a flat per-image rate
// resolved by the pricing table.
type ImageClient struct {
	apiKey     string
	baseURL    string
	model      string
	size       string
	quality    string
	httpClient *http.Client
	logger     *zap.Logger
}

// DefaultImageGenConfig returns sensible defaults.
func DefaultImageGenConfig(apiKey string) ImageGenConfig {
	return ImageGenConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   "dall-e-3",
		Size:    "1024x1024",
		Quality: "standard",
		Timeout: 2 * time.Minute,
	}
}

// NewImageClient creates a new image generation client.
func NewImageClient(config ImageGenConfig, logger *zap.Logger) *ImageClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		size:    config.Size,
		quality: config.Quality,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Provider returns the ledger key for usage accounting.
func (c *ImageClient) Provider() string { return "openai_image" }

// Generate produces one image for the prompt and returns its URL.
func (c *ImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	c.logger.Debug("image generation request",
		zap.String("model", c.model),
		zap.String("size", c.size),
		zap.Int("prompt_len", len(prompt)))

	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	reqBody := OpenAIImageRequest{
		Model:   c.model,
		Prompt:  prompt,
		N:       1,
		Size:    c.size,
		Quality: c.quality,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/images/generations", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var imageResp OpenAIImageResponse
	if err := json.Unmarshal(body, &imageResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if imageResp.Error != nil {
		return "", fmt.Errorf("API error: %s", imageResp.Error.Message)
	}

	if len(imageResp.Data) == 0 {
		return "", fmt.Errorf("no image returned")
	}

	c.logger.Debug("image generation response",
		zap.Duration("elapsed", time.Since(startTime)))

	return imageResp.Data[0].URL, nil
}
