package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns the non-secret settings currently loaded, for the
// monitoring endpoint.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":                 Global.App.Version,
		"app_debug":                   Global.App.Debug,
		"db_driver":                   Global.Database.Driver,
		"valkey_enabled":              Global.Database.ValkeyEnabled,
		"profile_cache_capacity":      Global.ProfileCache.Capacity,
		"profile_cache_ttl_seconds":   Global.ProfileCache.TTLSeconds,
		"chat_buffer_debounce_ms":     Global.ChatBuffer.DebounceMs,
		"chat_max_per_owner":          Global.ChatBuffer.MaxChatsPerOwner,
		"ai_provider":                 Global.AI.Provider,
		"ai_model":                    Global.AI.Model,
		"ai_max_steps":                Global.AI.MaxSteps,
		"ai_tool_token_ttl_seconds":   Global.AI.ToolTokenTTLSeconds,
		"memory_monitor_interval_sec": Global.Monitor.MemoryIntervalSeconds,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
