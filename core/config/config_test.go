package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ProfileCache.Capacity)
	assert.Equal(t, 2*time.Hour, cfg.ProfileCache.TTL())
	assert.Equal(t, 750*time.Millisecond, cfg.ChatBuffer.Debounce())
	assert.Equal(t, 30, cfg.ChatBuffer.MaxChatsPerOwner)
	assert.Equal(t, 15, cfg.AI.MaxSteps)
	assert.Same(t, cfg, Global)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PROFILE_CACHE_CAPACITY", "2")
	t.Setenv("PROFILE_CACHE_TTL_SECONDS", "0")
	t.Setenv("CHAT_BUFFER_DEBOUNCE_MS", "50")
	t.Setenv("APP_DEBUG", "on")
	t.Setenv("AI_API_KEY", "fallback-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.ProfileCache.Capacity)
	assert.Equal(t, time.Duration(0), cfg.ProfileCache.TTL())
	assert.Equal(t, 50*time.Millisecond, cfg.ChatBuffer.Debounce())
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "fallback-key", cfg.APIKeys.OpenAI)
}

func TestLoadConfig_InvalidValuesNormalised(t *testing.T) {
	t.Setenv("PROFILE_CACHE_CAPACITY", "-3")
	t.Setenv("CHAT_MAX_PER_OWNER", "0")
	t.Setenv("CHAT_BUFFER_DEBOUNCE_MS", "abc")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ProfileCache.Capacity)
	assert.Equal(t, 30, cfg.ChatBuffer.MaxChatsPerOwner)
	assert.Equal(t, 750, cfg.ChatBuffer.DebounceMs)
}
