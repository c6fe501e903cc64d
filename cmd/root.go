package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	assistantApp "github.com/lhudash/chisa-api/assistant/application"
	assistantDomain "github.com/lhudash/chisa-api/assistant/domain"
	assistantInfra "github.com/lhudash/chisa-api/assistant/infrastructure"
	"github.com/lhudash/chisa-api/assistant/providers"
	"github.com/lhudash/chisa-api/assistant/tools"
	authApp "github.com/lhudash/chisa-api/auth/application"
	authDomain "github.com/lhudash/chisa-api/auth/domain"
	authRepo "github.com/lhudash/chisa-api/auth/repository"
	chatApp "github.com/lhudash/chisa-api/chathistory/application"
	chatInfra "github.com/lhudash/chisa-api/chathistory/infrastructure"
	chatRepo "github.com/lhudash/chisa-api/chathistory/repository"
	coreconfig "github.com/lhudash/chisa-api/core/config"
	coreDB "github.com/lhudash/chisa-api/core/database"
	domainChat "github.com/lhudash/chisa-api/domains/chat"
	domainHealth "github.com/lhudash/chisa-api/domains/health"
	domainMonitoring "github.com/lhudash/chisa-api/domains/monitoring"
	domainUser "github.com/lhudash/chisa-api/domains/user"
	"github.com/lhudash/chisa-api/infrastructure/valkey"
	"github.com/lhudash/chisa-api/integrations/lhu"
	"github.com/lhudash/chisa-api/integrations/tavily"
	"github.com/lhudash/chisa-api/integrations/turnstile"
	"github.com/lhudash/chisa-api/integrations/weather"
	"github.com/lhudash/chisa-api/pkg/crypto"
	"github.com/lhudash/chisa-api/pkg/memmonitor"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/lhudash/chisa-api/pkg/msgworker"
	"github.com/lhudash/chisa-api/pkg/utils"
	profileApp "github.com/lhudash/chisa-api/profiles/application"
	profileRepo "github.com/lhudash/chisa-api/profiles/repository"
	"github.com/lhudash/chisa-api/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	appCtx, appCancel = context.WithCancel(context.Background())

	// Infrastructure
	db            *gorm.DB
	valkeyClient  *valkey.Client
	appMetrics    *metrics.Metrics
	memoryMonitor *memmonitor.Monitor
	flushPool     *msgworker.Pool
	nonceStore    authDomain.NonceStore

	// Repositories and core services
	profiles      *profileRepo.ProfileGormRepository
	chats         *chatRepo.ChatGormRepository
	writeBuffer   *chatInfra.WriteBuffer
	profileCache  *profileApp.ProfileCache
	chatService   *chatApp.ChatService
	tokenService  *authApp.TokenService
	toolRegistry  *assistantApp.Registry
	assistantSvc  *assistantApp.Service
	lhuClient     *lhu.Client
	weatherClient *weather.Client
	tavilyClient  *tavily.Client
	verifier      *turnstile.Verifier
	credits       *assistantInfra.CreditChecker

	// Usecase
	userUsecase       domainUser.IUserUsecase
	chatUsecase       domainChat.IChatUsecase
	healthUsecase     domainHealth.IHealthUsecase
	monitoringUsecase domainMonitoring.IMonitoringUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Short: "Chisa student assistant API",
	Long: `Backend for the Chisa student dashboard: schedule, grades, attendance,
library booking, weather and an AI assistant with tool calling.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")
	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()
	cobra.OnInitialize(initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.App.Port,
		"port", "p",
		coreconfig.Global.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&coreconfig.Global.App.Debug,
		"debug", "d",
		coreconfig.Global.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.Database.Driver,
		"db-driver", "",
		coreconfig.Global.Database.Driver,
		`database driver --db-driver <sqlite|postgres> | example: --db-driver=postgres`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.App.BasePath,
		"base-path", "",
		coreconfig.Global.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/chisa"`,
	)
}

// initApp opens the database and the optional Valkey connection. Everything
// else is built by initServices for the commands that serve traffic.
func initApp() {
	cfg := coreconfig.Global
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := os.MkdirAll(cfg.Paths.Storages, 0755); err != nil {
		logrus.Errorln(err)
	}

	var err error
	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[DB] %v", err)
	}
	profiles = profileRepo.NewProfileGormRepository(db)
	chats = chatRepo.NewChatGormRepository(db)

	if cfg.Database.ValkeyEnabled {
		valkeyClient, err = valkey.NewClient(valkey.ConfigFrom(cfg.Database))
		if err != nil {
			logrus.WithError(err).Warn("[VALKEY] unavailable, falling back to in-memory nonces")
			valkeyClient = nil
		}
	}
}

// initSchema creates or updates every table the service owns.
func initSchema(ctx context.Context) error {
	if err := profiles.InitSchema(ctx); err != nil {
		return err
	}
	return chats.InitSchema(ctx)
}

func initServices() {
	cfg := coreconfig.Global
	ctx := appCtx

	if err := initSchema(ctx); err != nil {
		logrus.Fatalf("[DB] schema: %v", err)
	}

	loc, err := time.LoadLocation(cfg.AI.Timezone)
	if err != nil {
		logrus.WithError(err).Warnf("[CONFIG] unknown timezone %q, using UTC+7", cfg.AI.Timezone)
		loc = time.FixedZone("ICT", 7*3600)
	}

	// 1. Observability
	appMetrics = metrics.New()
	memoryMonitor = memmonitor.New(memmonitor.DefaultSamples)
	memoryMonitor.Start(ctx, time.Duration(cfg.Monitor.MemoryIntervalSeconds)*time.Second)

	// 2. Profile cache and chat history
	profileCache = profileApp.NewProfileCache(profiles, cfg.ProfileCache.Capacity, cfg.ProfileCache.TTL(),
		profileApp.WithMetrics(appMetrics))

	flushPool = msgworker.NewPool(cfg.ChatBuffer.FlushWorkers, cfg.ChatBuffer.FlushQueueSize)
	flushPool.Start(ctx)
	writeBuffer = chatInfra.NewWriteBuffer(chats, chatInfra.BufferConfig{
		Debounce:         cfg.ChatBuffer.Debounce(),
		MaxChatsPerOwner: cfg.ChatBuffer.MaxChatsPerOwner,
	}, chatInfra.WithWorkerPool(flushPool), chatInfra.WithBufferMetrics(appMetrics))
	chatService = chatApp.NewChatService(chats, writeBuffer, profiles)

	// 3. Tokens
	if valkeyClient != nil {
		nonceStore = authRepo.NewValkeyNonceStore(valkeyClient)
	} else {
		nonceStore = authRepo.NewMemoryNonceStore()
	}
	key := cfg.Security.EncryptionKey
	if key == "" {
		key = ephemeralKey()
		logrus.Warn("[AUTH] ENCRYPTION_KEY not set, tool tokens will not survive a restart")
	}
	sealer, err := crypto.NewSealer(key)
	if err != nil {
		logrus.Fatalf("[AUTH] %v", err)
	}
	tokenService = authApp.NewTokenService(sealer, nonceStore, cfg.AI.ToolTokenTTL())

	// 4. Upstreams
	timeout := cfg.Upstream.Timeout()
	lhuClient = lhu.NewClient(lhu.ConfigFrom(cfg.Upstream, cfg.AI.Timezone), lhu.WithMetrics(appMetrics))
	weatherClient = weather.NewClient(cfg.Upstream.WeatherURL, cfg.APIKeys.Weather, timeout,
		weather.WithMetrics(appMetrics), weather.WithLocation(loc))
	tavilyClient = tavily.NewClient(cfg.Upstream.TavilyURL, cfg.APIKeys.Tavily, timeout, tavily.WithMetrics(appMetrics))
	verifier = turnstile.NewVerifier(cfg.Upstream.TurnstileURL, cfg.APIKeys.Turnstile, timeout)

	// 5. Assistant
	toolDeps := tools.Deps{Portal: lhuClient, Tokens: tokenService}
	if cfg.APIKeys.Weather != "" {
		toolDeps.Weather = weatherClient
	}
	if tavilyClient.Enabled() {
		toolDeps.Web = tavilyClient
	}
	toolRegistry = assistantApp.NewRegistry(appMetrics)
	if err := toolRegistry.Register(tools.All(toolDeps)...); err != nil {
		logrus.Fatalf("[ASSISTANT] %v", err)
	}

	deps := assistantApp.Deps{
		Provider:     newProvider(cfg),
		Registry:     toolRegistry,
		Orchestrator: assistantApp.NewOrchestrator(toolRegistry, cfg.AI.MaxSteps),
		Profiles:     profileCache,
		Users:        lhuClient,
		Tokens:       tokenService,
		Turns:        chatService,
		Model:        cfg.AI.Model,
		Location:     loc,
	}
	if cfg.AI.CreditsURL != "" {
		credits = assistantInfra.NewCreditChecker(cfg.AI.CreditsURL, cfg.APIKeys.OpenAI, timeout, appMetrics)
		deps.Credits = credits
	}
	assistantSvc = assistantApp.NewService(deps)

	// 6. Usecases
	userUsecase = usecase.NewUserService(lhuClient, verifier, profileCache)
	chatUsecase = usecase.NewChatService(chatService)
	healthUsecase = usecase.NewHealthService(5*time.Second, healthChecks(cfg)...)
	serverID := utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)
	monitoringUsecase = usecase.NewMonitoringService(serverID, profileCache, chatService, flushPool, memoryMonitor)

	logrus.WithFields(logrus.Fields{
		"provider": cfg.AI.Provider,
		"model":    cfg.AI.Model,
		"tools":    len(toolRegistry.List()),
		"valkey":   valkeyClient != nil,
	}).Info("[APP] services ready")
}

func newProvider(cfg *coreconfig.Config) assistantDomain.Provider {
	switch cfg.AI.Provider {
	case "gemini":
		return providers.NewGeminiProvider(cfg.APIKeys.Gemini, cfg.AI.Model)
	default:
		return providers.NewOpenAIProvider(cfg.APIKeys.OpenAI, cfg.AI.BaseURL, cfg.AI.Model)
	}
}

func healthChecks(cfg *coreconfig.Config) []usecase.HealthCheck {
	checks := []usecase.HealthCheck{
		{Component: "database", Ping: func(ctx context.Context) error { return coreDB.Ping(ctx, db) }},
		{Component: "valkey"},
	}
	if valkeyClient != nil {
		checks[1].Ping = valkeyClient.Ping
	}
	if cfg.AI.CreditsURL != "" {
		checks = append(checks, usecase.HealthCheck{Component: "ai_credits", Ping: func(ctx context.Context) error {
			_, err := credits.Balance(ctx)
			return err
		}})
	}
	return checks
}

func ephemeralKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp flushes buffered chat history and closes every connection.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if writeBuffer != nil {
		writeBuffer.Close(ctx)
	}
	if flushPool != nil {
		flushPool.Stop()
	}
	appCancel()

	if store, ok := nonceStore.(*authRepo.MemoryNonceStore); ok {
		store.Close()
	}
	if lhuClient != nil {
		_ = lhuClient.Close()
		_ = weatherClient.Close()
		_ = tavilyClient.Close()
	}
	if credits != nil {
		_ = credits.Close()
	}
	if valkeyClient != nil {
		valkeyClient.Close()
	}
	if db != nil {
		if err := coreDB.Close(); err != nil {
			logrus.WithError(err).Error("[DB] close failed")
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
