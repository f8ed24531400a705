// Package telegram glues the bot to the Telegram Bot API: the long-polling
// update loop, command routing, attachment downloads, and the local
// commands that read the usage ledger.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tandembot/internal/access"
	"tandembot/internal/modes"
	"tandembot/internal/orchestrator"
	"tandembot/internal/store"
)

const welcomeText = "Welcome! I can help you interact with GPT and Claude, " +
	"generate images, and use special chat modes. Use /help for more information."

const helpText = `Available commands:
/gpt <message> - Interact with GPT
/claude <message> - Interact with Claude
/compare <message> - Compare responses from GPT and Claude
/image <prompt> - Generate an image based on the prompt
/mode <mode_name|reset> - Switch to a special chat mode or reset it
/balance - Check the current API usage and costs
/recent_usage - Show the most recent usage records

Send a message or photo without a command to chat with GPT directly.`

// Bot runs the Telegram update loop and routes inbound messages.
type Bot struct {
	api         *tgbotapi.BotAPI
	orch        *orchestrator.Orchestrator
	store       *store.Store
	modes       *modes.Registry
	policy      *access.Policy
	logger      *zap.Logger
	httpClient  *http.Client
	pollTimeout time.Duration
}

// Options configures a Bot.
type Options struct {
	Token        string
	Orchestrator *orchestrator.Orchestrator
	Store        *store.Store
	Modes        *modes.Registry
	Policy       *access.Policy
	PollTimeout  time.Duration
	Logger       *zap.Logger
}

// New connects to the Telegram Bot API and builds the bot.
func New(opts Options) (*Bot, *tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	bot := &Bot{
		api:         api,
		orch:        opts.Orchestrator,
		store:       opts.Store,
		modes:       opts.Modes,
		policy:      opts.Policy,
		logger:      opts.Logger,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		pollTimeout: opts.PollTimeout,
	}
	return bot, api, nil
}

// WithOrchestrator installs the orchestrator after construction. The sender
// needs the API client before the orchestrator exists, so wiring happens in
// two steps.
func (b *Bot) WithOrchestrator(orch *orchestrator.Orchestrator) {
	b.orch = orch
}

// Run consumes updates until the context is cancelled. Each message is
// handled on its own goroutine so a slow provider call never blocks the
// update loop.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot started", zap.String("username", b.api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.pollTimeout.Seconds())
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	id := access.Identity{UserID: msg.From.ID, ChatID: msg.Chat.ID}

	if !msg.IsCommand() {
		b.handleFreeText(ctx, id, msg)
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.reply(id.ChatID, welcomeText)
	case "help":
		b.reply(id.ChatID, helpText)
	case "gpt", "g":
		b.handleChat(ctx, id, msg, args, orchestrator.KindGPT)
	case "claude", "c":
		b.handleChat(ctx, id, msg, args, orchestrator.KindClaude)
	case "compare", "vs":
		b.handleCompare(ctx, id, msg, args)
	case "image":
		if err := b.orch.HandleImage(ctx, id, args); err != nil {
			b.logger.Debug("image command rejected", zap.Error(err))
		}
	case "mode":
		b.handleMode(id, args)
	case "balance":
		b.handleBalance(id)
	case "recent_usage":
		b.handleRecent(id)
	default:
		b.reply(id.ChatID, "Unknown command. Use /help to see what I can do.")
	}
}

// handleFreeText routes plain messages and bare attachments to the default
// provider.
func (b *Bot) handleFreeText(ctx context.Context, id access.Identity, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" && !hasAttachment(msg) {
		return
	}

	image, ok := b.resolveAttachment(id, msg)
	if !ok {
		return
	}
	if err := b.orch.HandleSingle(ctx, id, text, image, orchestrator.KindGPT); err != nil {
		b.logger.Debug("free text rejected", zap.Error(err))
	}
}

func (b *Bot) handleChat(ctx context.Context, id access.Identity, msg *tgbotapi.Message, args string, kind orchestrator.Kind) {
	if args == "" && !hasAttachment(msg) {
		b.reply(id.ChatID, "Please provide a message after the command.")
		return
	}
	image, ok := b.resolveAttachment(id, msg)
	if !ok {
		return
	}
	if err := b.orch.HandleSingle(ctx, id, args, image, kind); err != nil {
		b.logger.Debug("chat command rejected", zap.Error(err))
	}
}

func (b *Bot) handleCompare(ctx context.Context, id access.Identity, msg *tgbotapi.Message, args string) {
	if args == "" && !hasAttachment(msg) {
		b.reply(id.ChatID, "Please provide a message after the command.")
		return
	}
	image, ok := b.resolveAttachment(id, msg)
	if !ok {
		return
	}
	if err := b.orch.HandleCompare(ctx, id, args, image); err != nil {
		b.logger.Debug("compare command rejected", zap.Error(err))
	}
}

// handleMode switches or clears the chat's active mode. Authorization comes
// first: mode state is a mutation.
func (b *Bot) handleMode(id access.Identity, args string) {
	if !b.policy.Authorize(id) {
		b.reply(id.ChatID, orchestrator.DeniedMessage)
		return
	}

	name := strings.TrimSpace(args)
	switch {
	case name == "":
		if active, ok := b.modes.Active(id.ChatID); ok {
			b.reply(id.ChatID, fmt.Sprintf("Current mode: %s. Use /mode reset to clear it.", active))
		} else {
			b.reply(id.ChatID, "No mode set. Available modes are: "+strings.Join(b.modes.Names(), ", "))
		}
	case name == "reset":
		b.modes.ResetActive(id.ChatID)
		b.reply(id.ChatID, "Chat mode reset.")
	default:
		if err := b.modes.SetActive(id.ChatID, name); err != nil {
			b.reply(id.ChatID, "Invalid mode. Available modes are: "+strings.Join(b.modes.Names(), ", "))
			return
		}
		b.reply(id.ChatID, "Chat mode set to: "+name)
	}
}

func (b *Bot) handleBalance(id access.Identity) {
	if !b.policy.Authorize(id) {
		b.reply(id.ChatID, orchestrator.DeniedMessage)
		return
	}

	totals, err := b.store.AggregateUsage()
	if err != nil {
		b.logger.Error("failed to aggregate usage", zap.Error(err))
		b.reply(id.ChatID, "Could not read usage right now.")
		return
	}
	if len(totals) == 0 {
		b.reply(id.ChatID, "No API usage recorded yet.")
		return
	}

	providers := make([]string, 0, len(totals))
	for provider := range totals {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	var sb strings.Builder
	sb.WriteString("API Usage Summary:\n")
	for _, provider := range providers {
		t := totals[provider]
		fmt.Fprintf(&sb, "%s: %d tokens used, $%.2f spent\n", provider, t.TotalTokens, t.Cost)
	}
	b.reply(id.ChatID, sb.String())
}

func (b *Bot) handleRecent(id access.Identity) {
	if !b.policy.Authorize(id) {
		b.reply(id.ChatID, orchestrator.DeniedMessage)
		return
	}

	records, err := b.store.RecentUsage(10)
	if err != nil {
		b.logger.Error("failed to query recent usage", zap.Error(err))
		b.reply(id.ChatID, "Could not read usage right now.")
		return
	}
	if len(records) == 0 {
		b.reply(id.ChatID, "No API usage recorded yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent usage (newest first):\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "%s  %s  prompt=%d completion=%d total=%d $%.4f\n",
			r.Timestamp.Format("2006-01-02 15:04"),
			r.Provider, r.PromptTokens, r.CompletionTokens, r.TotalTokens, r.Cost)
	}
	b.reply(id.ChatID, sb.String())
}

// resolveAttachment authorizes and downloads the message's attachment, if
// any. The gate runs before the download; a denied identity gets the denial
// message and (nil, false).
func (b *Bot) resolveAttachment(id access.Identity, msg *tgbotapi.Message) ([]byte, bool) {
	fileID := attachmentFileID(msg)
	if fileID == "" {
		return nil, true
	}

	if !b.policy.Authorize(id) {
		b.reply(id.ChatID, orchestrator.DeniedMessage)
		return nil, false
	}

	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		b.logger.Warn("failed to resolve attachment", zap.Error(err))
		b.reply(id.ChatID, "Could not download the attachment.")
		return nil, false
	}

	resp, err := b.httpClient.Get(url)
	if err != nil {
		b.logger.Warn("failed to download attachment", zap.Error(err))
		b.reply(id.ChatID, "Could not download the attachment.")
		return nil, false
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		b.logger.Warn("failed to read attachment", zap.Error(err))
		b.reply(id.ChatID, "Could not download the attachment.")
		return nil, false
	}
	return data, true
}

// attachmentFileID picks the document, or the highest-resolution photo
// variant when Telegram offers several sizes.
func attachmentFileID(msg *tgbotapi.Message) string {
	if msg.Document != nil {
		return msg.Document.FileID
	}
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	return ""
}

func hasAttachment(msg *tgbotapi.Message) bool {
	return attachmentFileID(msg) != ""
}

func (b *Bot) reply(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(m); err != nil {
		b.logger.Error("failed to send message", zap.Error(err))
	}
}
