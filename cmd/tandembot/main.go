package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tandembot/internal/access"
	"tandembot/internal/config"
	"tandembot/internal/modes"
	"tandembot/internal/orchestrator"
	"tandembot/internal/provider"
	"tandembot/internal/store"
	"tandembot/internal/telegram"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tandembot",
	Short: "tandembot - Telegram bot for GPT, Claude, and image generation",
	Long: `tandembot is a Telegram bot that forwards messages and photos to GPT
and Claude, compares their answers side by side, generates images, and
keeps a per-provider usage ledger in SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "tandembot.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token not configured (set telegram.token or TELEGRAM_TOKEN)")
	}

	allowedUsers, err := cfg.AllowedUserIDs()
	if err != nil {
		return err
	}
	allowedChats, err := cfg.AllowedChatIDs()
	if err != nil {
		return err
	}
	policy := access.NewPolicy(allowedUsers, allowedChats)
	if policy.Empty() {
		logger.Warn("no authorized users or chats configured; all requests will be denied")
	}

	store.SetMigrationLogger(logger.Named("store"))
	db, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := modes.NewRegistry(cfg.Modes)
	pricing := provider.NewPricing(cfg.Pricing.Rates, cfg.Pricing.ImageFlat)

	gpt := provider.NewOpenAIClient(provider.OpenAIConfig{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.Model,
		MaxTokens: cfg.OpenAI.MaxTokens,
		Timeout:   cfg.OpenAI.GetTimeout(),
	}, logger.Named("openai"))

	claude := provider.NewAnthropicClient(provider.AnthropicConfig{
		APIKey:    cfg.Anthropic.APIKey,
		BaseURL:   cfg.Anthropic.BaseURL,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Timeout:   cfg.Anthropic.GetTimeout(),
	}, logger.Named("anthropic"))

	images := provider.NewImageClient(provider.ImageGenConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.ImageGen.Model,
		Size:    cfg.ImageGen.Size,
		Quality: cfg.ImageGen.Quality,
	}, logger.Named("imagegen"))

	bot, api, err := telegram.New(telegram.Options{
		Token:       cfg.Telegram.Token,
		Store:       db,
		Modes:       registry,
		Policy:      policy,
		PollTimeout: cfg.GetPollTimeout(),
		Logger:      logger.Named("telegram"),
	})
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Options{
		Policy:      policy,
		Modes:       registry,
		Ledger:      db,
		Transport:   telegram.NewSender(api),
		Pricing:     pricing,
		GPT:         gpt,
		Claude:      claude,
		Images:      images,
		CallTimeout: cfg.OpenAI.GetTimeout(),
		ChunkSize:   cfg.Delivery.ChunkSize,
		PartDelay:   cfg.GetPartDelay(),
		Logger:      logger.Named("orchestrator"),
	})
	bot.WithOrchestrator(orch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
