// Package config loads tandembot configuration from a YAML file with
// environment variable overrides. A missing config file yields defaults so
// the bot can run from environment variables alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tandembot configuration.
type Config struct {
	Name string `yaml:"name"`

	// Telegram transport
	Telegram TelegramConfig `yaml:"telegram"`

	// Chat providers
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`

	// Image generation
	ImageGen ImageGenConfig `yaml:"image_gen"`

	// Authorization allow-lists
	Access AccessConfig `yaml:"access"`

	// Mode name -> system instruction
	Modes map[string]string `yaml:"modes"`

	// Persistence
	Storage StorageConfig `yaml:"storage"`

	// Cost accounting
	Pricing PricingConfig `yaml:"pricing"`

	// Outbound message delivery
	Delivery DeliveryConfig `yaml:"delivery"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// TelegramConfig configures the Telegram client.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	PollTimeout string `yaml:"poll_timeout"`
}

// ProviderConfig configures a chat provider client.
type ProviderConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`
}

// ImageGenConfig configures image generation requests.
type ImageGenConfig struct {
	Model   string `yaml:"model"`
	Size    string `yaml:"size"`
	Quality string `yaml:"quality"`
}

// AccessConfig holds the comma-separated authorization allow-lists.
type AccessConfig struct {
	AllowedUsers string `yaml:"allowed_users"`
	AllowedChats string `yaml:"allowed_chats"`
}

// StorageConfig configures the SQLite ledger.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// PricingConfig holds per-provider USD rates. Rates is keyed by the
// provider's ledger name and priced per single token.
type PricingConfig struct {
	Rates     map[string]float64 `yaml:"rates"`
	ImageFlat float64            `yaml:"image_flat"`
}

// DeliveryConfig configures reply chunking and pacing.
type DeliveryConfig struct {
	// ChunkSize is the raw part ceiling, kept under Telegram's 4096 hard
	// limit to leave room for the part label prefix.
	ChunkSize int    `yaml:"chunk_size"`
	PartDelay string `yaml:"part_delay"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "tandembot",

		Telegram: TelegramConfig{
			PollTimeout: "30s",
		},

		OpenAI: ProviderConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4-vision-preview",
			MaxTokens: 300,
			Timeout:   "90s",
		},

		Anthropic: ProviderConfig{
			BaseURL:   "https://api.anthropic.com/v1",
			Model:     "claude-3-opus-20240229",
			MaxTokens: 300,
			Timeout:   "90s",
		},

		ImageGen: ImageGenConfig{
			Model:   "dall-e-3",
			Size:    "1024x1024",
			Quality: "standard",
		},

		Modes: map[string]string{},

		Storage: StorageConfig{
			DatabasePath: "data/tandembot.db",
		},

		Pricing: PricingConfig{
			Rates: map[string]float64{
				"openai":    0.00002,
				"anthropic": 0.00002,
			},
			ImageFlat: 0.02,
		},

		Delivery: DeliveryConfig{
			ChunkSize: 4000,
			PartDelay: "500ms",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. Returns defaults if the file
// does not exist. Environment variables override file values either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Anthropic.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.OpenAI.Model = model
	}
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		c.Anthropic.Model = model
	}
	if model := os.Getenv("IMAGE_GEN_MODEL"); model != "" {
		c.ImageGen.Model = model
	}
	if ids := os.Getenv("ALLOWED_USER_IDS"); ids != "" {
		c.Access.AllowedUsers = ids
	}
	if ids := os.Getenv("ALLOWED_CHAT_IDS"); ids != "" {
		c.Access.AllowedChats = ids
	}
	if path := os.Getenv("TANDEMBOT_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
}

// AllowedUserIDs parses the comma-separated user allow-list.
func (c *Config) AllowedUserIDs() ([]int64, error) {
	return parseIDList(c.Access.AllowedUsers)
}

// AllowedChatIDs parses the comma-separated chat allow-list.
func (c *Config) AllowedChatIDs() ([]int64, error) {
	return parseIDList(c.Access.AllowedChats)
}

func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in allow-list: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetTimeout returns the provider call timeout as a duration.
func (p ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 90 * time.Second
	}
	return d
}

// GetPartDelay returns the inter-part delivery delay as a duration.
func (c *Config) GetPartDelay() time.Duration {
	d, err := time.ParseDuration(c.Delivery.PartDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetPollTimeout returns the Telegram long-poll timeout as a duration.
func (c *Config) GetPollTimeout() time.Duration {
	d, err := time.ParseDuration(c.Telegram.PollTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
