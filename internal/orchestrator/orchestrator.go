// Package orchestrator drives single-provider, compare, and image-generation
// requests: authorization, mode resolution, provider fan-out, reply
// composition, persistence, and chunked delivery.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tandembot/internal/access"
	"tandembot/internal/chunker"
	"tandembot/internal/modes"
	"tandembot/internal/provider"
)

// Kind identifies one of the closed set of chat providers.
type Kind int

const (
	KindGPT Kind = iota
	KindClaude
)

// User-facing messages.
const (
	DeniedMessage      = "You are not authorized to use this bot."
	EmptyPromptMessage = "Please provide a prompt for image generation."
	ImageErrorMessage  = "An error occurred while generating the image."
	ImageCaption       = "Generated image based on your prompt."
)

// compareSeparator divides the two providers' answers in a compare reply.
const compareSeparator = "--------------------------------"

var (
	// ErrUnauthorized reports a rejected identity. The denial message has
	// already been sent when this is returned.
	ErrUnauthorized = errors.New("identity not authorized")

	// ErrEmptyPrompt reports an image-generation request with no prompt.
	ErrEmptyPrompt = errors.New("empty image prompt")
)

// Ledger is the persistence sink for usage and conversation records.
type Ledger interface {
	RecordUsage(provider string, promptTokens, completionTokens, totalTokens int, cost float64) error
	RecordConversation(userID int64, message, response string) error
}

// Transport delivers outbound messages to the messaging platform.
type Transport interface {
	// SendText sends one message; markdown selects rich formatting.
	SendText(chatID int64, text string, markdown bool) error

	// SendPhoto sends a photo by URL with a caption.
	SendPhoto(chatID int64, url, caption string) error
}

// Options configures an Orchestrator.
type Options struct {
	Policy    *access.Policy
	Modes     *modes.Registry
	Ledger    Ledger
	Transport Transport
	Pricing   *provider.Pricing

	GPT    provider.ChatClient
	Claude provider.ChatClient
	Images provider.ImageGenerator

	// CallTimeout bounds each provider call so a hung backend cannot stall
	// a compare join or block the request forever.
	CallTimeout time.Duration

	// ChunkSize is the raw part ceiling for reply splitting.
	ChunkSize int

	// PartDelay paces consecutive part deliveries.
	PartDelay time.Duration

	Logger *zap.Logger
}

// Orchestrator coordinates provider calls and reply delivery.
type Orchestrator struct {
	policy    *access.Policy
	modes     *modes.Registry
	ledger    Ledger
	transport Transport
	pricing   *provider.Pricing

	gpt    provider.ChatClient
	claude provider.ChatClient
	images provider.ImageGenerator

	callTimeout time.Duration
	chunkSize   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 90 * time.Second
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 4000
	}
	if opts.PartDelay <= 0 {
		opts.PartDelay = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Orchestrator{
		policy:      opts.Policy,
		modes:       opts.Modes,
		ledger:      opts.Ledger,
		transport:   opts.Transport,
		pricing:     opts.Pricing,
		gpt:         opts.GPT,
		claude:      opts.Claude,
		images:      opts.Images,
		callTimeout: opts.CallTimeout,
		chunkSize:   opts.ChunkSize,
		limiter:     rate.NewLimiter(rate.Every(opts.PartDelay), 1),
		logger:      opts.Logger,
	}
}

// Client returns the adapter for a provider kind.
func (o *Orchestrator) Client(kind Kind) provider.ChatClient {
	if kind == KindClaude {
		return o.claude
	}
	return o.gpt
}

// HandleSingle runs one chat request against a single provider and delivers
// the formatted reply.
func (o *Orchestrator) HandleSingle(ctx context.Context, id access.Identity, text string, image []byte, kind Kind) error {
	logger := o.requestLogger("single", id)

	if !o.authorize(id, logger) {
		return ErrUnauthorized
	}

	client := o.Client(kind)
	instruction := o.modes.Instruction(id.ChatID)

	res, err := o.callProvider(ctx, client, provider.Request{
		Prompt:      text,
		Image:       image,
		Instruction: instruction,
	})

	var answer string
	if err != nil {
		logger.Warn("provider call failed",
			zap.String("provider", client.Provider()),
			zap.Error(err))
		answer = degradedText(client.Name())
	} else {
		answer = res.Text
		o.recordUsage(client.Provider(), res, logger)
	}

	reply := fmt.Sprintf("%s says:\n\n%s", client.Name(), answer)

	if err := o.ledger.RecordConversation(id.UserID, text, reply); err != nil {
		logger.Error("failed to record conversation", zap.Error(err))
	}

	o.deliver(ctx, id.ChatID, reply, logger)
	return nil
}

// HandleCompare runs the same request against both chat providers
// concurrently and delivers a composite reply. A failed or timed-out
// provider degrades to a placeholder; the other answer still delivers.
func (o *Orchestrator) HandleCompare(ctx context.Context, id access.Identity, text string, image []byte) error {
	logger := o.requestLogger("compare", id)

	if !o.authorize(id, logger) {
		return ErrUnauthorized
	}

	instruction := o.modes.Instruction(id.ChatID)
	req := provider.Request{Prompt: text, Image: image, Instruction: instruction}

	clients := []provider.ChatClient{o.gpt, o.claude}
	results := make([]*provider.Result, len(clients))
	errs := make([]error, len(clients))

	// Fan out; workers always return nil so one failure never cancels the
	// other call. The composite is only built after both complete.
	g, gctx := errgroup.WithContext(ctx)
	for i, client := range clients {
		i, client := i, client
		g.Go(func() error {
			results[i], errs[i] = o.callProvider(gctx, client, req)
			return nil
		})
	}
	_ = g.Wait()

	answers := make([]string, len(clients))
	for i, client := range clients {
		if errs[i] != nil {
			logger.Warn("provider call failed",
				zap.String("provider", client.Provider()),
				zap.Error(errs[i]))
			answers[i] = degradedText(client.Name())
			continue
		}
		answers[i] = results[i].Text
		o.recordUsage(client.Provider(), results[i], logger)
	}

	var b strings.Builder
	for i, client := range clients {
		if i > 0 {
			b.WriteString("\n\n" + compareSeparator + "\n\n")
		}
		fmt.Fprintf(&b, "*%s says:*\n\n%s", client.Name(), answers[i])
	}
	reply := b.String()

	if err := o.ledger.RecordConversation(id.UserID, text, reply); err != nil {
		logger.Error("failed to record conversation", zap.Error(err))
	}

	o.deliver(ctx, id.ChatID, reply, logger)
	return nil
}

// HandleImage generates one image for the prompt and delivers it with a
// caption. An empty prompt is a validation error; no provider call is made.
func (o *Orchestrator) HandleImage(ctx context.Context, id access.Identity, prompt string) error {
	logger := o.requestLogger("image", id)

	if !o.authorize(id, logger) {
		return ErrUnauthorized
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		o.sendPlain(id.ChatID, EmptyPromptMessage, logger)
		return ErrEmptyPrompt
	}

	cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	url, err := o.images.Generate(cctx, prompt)
	if err != nil {
		logger.Warn("image generation failed", zap.Error(err))
		o.sendPlain(id.ChatID, ImageErrorMessage, logger)
		return nil
	}

	// Flat per-image cost; no token concept applies.
	if err := o.ledger.RecordUsage(o.images.Provider(), 0, 0, 0, o.pricing.ImageCost()); err != nil {
		logger.Error("failed to record usage",
			zap.String("provider", o.images.Provider()),
			zap.Error(err))
	}

	if err := o.transport.SendPhoto(id.ChatID, url, ImageCaption); err != nil {
		logger.Error("failed to deliver photo", zap.Error(err))
	}
	return nil
}

// callProvider executes one adapter call under the per-call timeout.
func (o *Orchestrator) callProvider(ctx context.Context, client provider.ChatClient, req provider.Request) (*provider.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return client.Request(cctx, req)
}

// recordUsage writes one ledger row for a successful provider result.
// Written before delivery so a failed send never loses the record.
func (o *Orchestrator) recordUsage(providerName string, res *provider.Result, logger *zap.Logger) {
	cost := o.pricing.TokenCost(providerName, res.TotalTokens)
	if err := o.ledger.RecordUsage(providerName, res.PromptTokens, res.CompletionTokens, res.TotalTokens, cost); err != nil {
		logger.Error("failed to record usage",
			zap.String("provider", providerName),
			zap.Error(err))
	}
}

// deliver splits the reply into labeled parts and sends each with MarkdownV2
// escaping, pacing consecutive parts and falling back to plain text when a
// formatted send fails.
func (o *Orchestrator) deliver(ctx context.Context, chatID int64, reply string, logger *zap.Logger) {
	parts := chunker.Label(chunker.Split(reply, o.chunkSize))
	for _, part := range parts {
		if err := o.limiter.Wait(ctx); err != nil {
			logger.Warn("delivery cancelled",
				zap.Int("part", part.Index),
				zap.Int("total", part.Total),
				zap.Error(err))
			return
		}

		escaped := chunker.EscapeMarkdown(part.Text)
		err := o.transport.SendText(chatID, escaped, true)
		if err == nil {
			continue
		}
		logger.Warn("formatted send failed, falling back to plain text",
			zap.Int("part", part.Index),
			zap.Error(err))

		if err := o.transport.SendText(chatID, part.Text, false); err != nil {
			logger.Error("plain-text fallback failed",
				zap.Int("part", part.Index),
				zap.Error(err))
		}
	}
}

// authorize gates the request, sending the denial message on rejection.
func (o *Orchestrator) authorize(id access.Identity, logger *zap.Logger) bool {
	if o.policy.Authorize(id) {
		return true
	}
	logger.Info("request denied")
	o.sendPlain(id.ChatID, DeniedMessage, logger)
	return false
}

func (o *Orchestrator) sendPlain(chatID int64, text string, logger *zap.Logger) {
	if err := o.transport.SendText(chatID, text, false); err != nil {
		logger.Error("failed to send message", zap.Error(err))
	}
}

func (o *Orchestrator) requestLogger(op string, id access.Identity) *zap.Logger {
	return o.logger.With(
		zap.String("request_id", uuid.NewString()[:8]),
		zap.String("op", op),
		zap.Int64("user_id", id.UserID),
		zap.Int64("chat_id", id.ChatID))
}

func degradedText(name string) string {
	return fmt.Sprintf("Error occurred while processing %s request.", name)
}
