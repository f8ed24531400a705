package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tandembot", cfg.Name)
	assert.Equal(t, "gpt-4-vision-preview", cfg.OpenAI.Model)
	assert.Equal(t, "claude-3-opus-20240229", cfg.Anthropic.Model)
	assert.Equal(t, "dall-e-3", cfg.ImageGen.Model)
	assert.Equal(t, 4000, cfg.Delivery.ChunkSize)
	assert.Equal(t, 0.02, cfg.Pricing.ImageFlat)
	assert.Equal(t, 0.00002, cfg.Pricing.Rates["openai"])
	assert.Empty(t, cfg.Access.AllowedUsers)
}

func TestLoad_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandembot.yaml")
	data := `
name: mybot
openai:
  model: gpt-4o
  timeout: 45s
access:
  allowed_users: "1, 2, 3"
delivery:
  chunk_size: 2000
  part_delay: 250ms
pricing:
  rates:
    openai: 0.00001
  image_flat: 0.04
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mybot", cfg.Name)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 45*time.Second, cfg.OpenAI.GetTimeout())
	assert.Equal(t, 2000, cfg.Delivery.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, cfg.GetPartDelay())
	assert.Equal(t, 0.00001, cfg.Pricing.Rates["openai"])
	assert.Equal(t, 0.04, cfg.Pricing.ImageFlat)

	users, err := cfg.AllowedUserIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, users)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "tok-123")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("ALLOWED_USER_IDS", "7,8")
	t.Setenv("TANDEMBOT_DB", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cfg.Telegram.Token)
	assert.Equal(t, "sk-openai", cfg.OpenAI.APIKey)
	assert.Equal(t, "sk-ant", cfg.Anthropic.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "7,8", cfg.Access.AllowedUsers)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.DatabasePath)
}

func TestLoad_EnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandembot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai:\n  model: from-file\n"), 0644))
	t.Setenv("OPENAI_MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OpenAI.Model)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tandembot.yaml")

	cfg := DefaultConfig()
	cfg.Name = "roundtrip"
	cfg.Access.AllowedChats = "-100123"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.Name)

	chats, err := loaded.AllowedChatIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{-100123}, chats)
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"whitespace only", "   ", nil, false},
		{"single", "42", []int64{42}, false},
		{"spaced", " 1 , 2 ,3 ", []int64{1, 2, 3}, false},
		{"negative chat ids", "-100200300", []int64{-100200300}, false},
		{"trailing comma", "1,2,", []int64{1, 2}, false},
		{"garbage", "1,abc", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIDList(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	p := ProviderConfig{Timeout: "not a duration"}
	assert.Equal(t, 90*time.Second, p.GetTimeout())

	cfg := DefaultConfig()
	cfg.Delivery.PartDelay = ""
	assert.Equal(t, 500*time.Millisecond, cfg.GetPartDelay())

	cfg.Telegram.PollTimeout = "bogus"
	assert.Equal(t, 30*time.Second, cfg.GetPollTimeout())
}
