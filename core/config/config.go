package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App          AppConfig
	MCP          MCPConfig
	Paths        PathsConfig
	Database     DatabaseConfig
	ProfileCache ProfileCacheConfig
	ChatBuffer   ChatBufferConfig
	Upstream     UpstreamConfig
	AI           AIConfig
	Monitor      MonitorConfig
	Security     SecurityConfig
	APIKeys      APIKeysConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	ServerID           string
}

type MCPConfig struct {
	Port string
	Host string
}

type PathsConfig struct {
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// ProfileCacheConfig sizes the in-process user profile cache.
type ProfileCacheConfig struct {
	Capacity   int
	TTLSeconds int // 0 disables expiry
}

func (c ProfileCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ChatBufferConfig drives the debounced chat history writer.
type ChatBufferConfig struct {
	DebounceMs       int
	MaxChatsPerOwner int
	FlushWorkers     int
	FlushQueueSize   int
}

func (c ChatBufferConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// UpstreamConfig lists the campus endpoints proxied by the service.
type UpstreamConfig struct {
	ScheduleURL    string
	AuthURL        string
	UnauthURL      string
	UserInfoURL    string
	AttendanceURL  string
	TAPIURL        string
	MarkURL        string
	WeatherURL     string
	TavilyURL      string
	TurnstileURL   string
	TimeoutSeconds int
}

func (c UpstreamConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type AIConfig struct {
	Provider            string
	Model               string
	BaseURL             string
	MaxSteps            int
	CreditsURL          string
	ToolTokenTTLSeconds int
	Timezone            string
}

func (c AIConfig) ToolTokenTTL() time.Duration {
	return time.Duration(c.ToolTokenTTLSeconds) * time.Second
}

type MonitorConfig struct {
	MemoryIntervalSeconds int
}

type SecurityConfig struct {
	EncryptionKey string // 64 hex characters
}

type APIKeysConfig struct {
	OpenAI    string
	Gemini    string
	Tavily    string
	Weather   string
	Turnstile string
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	storages := getEnv("APP_BASE_DIR", "storages")

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.4.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(storages, "chisa.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "chisa:"),
	}

	upstreamCfg := UpstreamConfig{
		ScheduleURL:    getEnv("LHU_SCHEDULE_URL", ""),
		AuthURL:        getEnv("LHU_AUTH_URL", ""),
		UnauthURL:      getEnv("LHU_UNAUTH_URL", ""),
		UserInfoURL:    getEnv("LHU_USERINFO_URL", ""),
		AttendanceURL:  getEnv("LHU_ATTENDANCE_URL", ""),
		TAPIURL:        getEnv("LHU_TAPI_URL", ""),
		MarkURL:        getEnv("LHU_MARK_URL", ""),
		WeatherURL:     getEnv("WEATHER_API_URL", "http://api.weatherapi.com/v1"),
		TavilyURL:      getEnv("TAVILY_API_URL", "https://api.tavily.com"),
		TurnstileURL:   getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		TimeoutSeconds: getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30),
	}

	aiCfg := AIConfig{
		Provider:            getEnv("AI_PROVIDER", "openai"),
		Model:               getEnv("AI_MODEL", "deepseek/deepseek-v3.2"),
		BaseURL:             getEnv("AI_BASE_URL", ""),
		MaxSteps:            getEnvInt("AI_MAX_STEPS", 15),
		CreditsURL:          getEnv("AI_CREDITS_URL", ""),
		ToolTokenTTLSeconds: getEnvInt("AI_TOOL_TOKEN_TTL_SECONDS", 600),
		Timezone:            getEnv("AI_TIMEZONE", "Asia/Ho_Chi_Minh"),
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")
	if openAIKey == "" {
		openAIKey = getEnv("AI_API_KEY", "")
	}

	cfg := &Config{
		App:      appCfg,
		MCP:      MCPConfig{Port: getEnv("MCP_PORT", "8080"), Host: getEnv("MCP_HOST", "localhost")},
		Paths:    PathsConfig{Storages: storages},
		Database: dbCfg,
		ProfileCache: ProfileCacheConfig{
			Capacity:   getEnvInt("PROFILE_CACHE_CAPACITY", 500),
			TTLSeconds: getEnvInt("PROFILE_CACHE_TTL_SECONDS", 7200),
		},
		ChatBuffer: ChatBufferConfig{
			DebounceMs:       getEnvInt("CHAT_BUFFER_DEBOUNCE_MS", 750),
			MaxChatsPerOwner: getEnvInt("CHAT_MAX_PER_OWNER", 30),
			FlushWorkers:     getEnvInt("CHAT_FLUSH_WORKERS", 4),
			FlushQueueSize:   getEnvInt("CHAT_FLUSH_QUEUE_SIZE", 256),
		},
		Upstream: upstreamCfg,
		AI:       aiCfg,
		Monitor:  MonitorConfig{MemoryIntervalSeconds: getEnvInt("MEMORY_MONITOR_INTERVAL_SECONDS", 60)},
		Security: SecurityConfig{EncryptionKey: getEnv("ENCRYPTION_KEY", "")},
		APIKeys: APIKeysConfig{
			OpenAI:    openAIKey,
			Gemini:    getEnv("GEMINI_API_KEY", ""),
			Tavily:    getEnv("TAVILY_API_KEY", ""),
			Weather:   getEnv("WEATHER_API_KEY", ""),
			Turnstile: getEnv("CF_SECRET_KEY", ""),
		},
	}

	cfg.normalize()

	Global = cfg
	return cfg, nil
}

// normalize clamps values that would break the cache or the buffer.
func (c *Config) normalize() {
	if c.ProfileCache.Capacity < 1 {
		c.ProfileCache.Capacity = 500
	}
	if c.ProfileCache.TTLSeconds < 0 {
		c.ProfileCache.TTLSeconds = 0
	}
	if c.ChatBuffer.DebounceMs < 1 {
		c.ChatBuffer.DebounceMs = 750
	}
	if c.ChatBuffer.MaxChatsPerOwner < 1 {
		c.ChatBuffer.MaxChatsPerOwner = 30
	}
	if c.AI.MaxSteps < 1 {
		c.AI.MaxSteps = 15
	}
}
