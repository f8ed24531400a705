// Package provider implements the chat and image-generation backends. Each
// adapter normalizes a (prompt, optional image, optional instruction)
// triple into its provider's request shape and normalizes the raw reply
// into a common Result.
package provider

import (
	"context"
	"strings"
)

// Request is the normalized input to a chat provider call.
type Request struct {
	Prompt string

	// Image is raw image bytes, base64-encoded by the adapter. Optional.
	Image []byte

	// Instruction is a system-level instruction injected ahead of the user
	// turn. Optional.
	Instruction string
}

// Result is the normalized output of one chat provider call.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// Estimated marks token counts derived by whitespace-splitting rather
	// than reported by the provider.
	Estimated bool
}

// ChatClient is the uniform adapter interface for chat providers.
type ChatClient interface {
	// Name is the display name used when formatting replies.
	Name() string

	// Provider is the ledger key used for usage accounting.
	Provider() string

	// Request executes one chat completion. Network, auth, and
	// malformed-response failures come back as errors; the adapter never
	// retries.
	Request(ctx context.Context, req Request) (*Result, error)
}

// ImageGenerator is the adapter interface for image generation.
type ImageGenerator interface {
	// Provider is the ledger key used for usage accounting.
	Provider() string

	// Generate produces one image for the prompt and returns its URL.
	Generate(ctx context.Context, prompt string) (string, error)
}

// EstimateTokens approximates a token count by whitespace-splitting.
// Results built on it must set Result.Estimated.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}
