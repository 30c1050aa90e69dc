package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/tosachii/ryosa/internal/config"
	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/persona"
	"github.com/tosachii/ryosa/internal/providers/llm"
	"github.com/tosachii/ryosa/internal/service/brain"
	"github.com/tosachii/ryosa/internal/service/memory"
	"github.com/tosachii/ryosa/internal/service/prompt"
	"github.com/tosachii/ryosa/internal/storage/memstore"
	"github.com/tosachii/ryosa/internal/storage/sqlite"
	"github.com/tosachii/ryosa/internal/transport/discord"
	"github.com/tosachii/ryosa/internal/transport/twitch"
	"github.com/tosachii/ryosa/internal/web"
	"github.com/tosachii/ryosa/pkg/log"
	"github.com/tosachii/ryosa/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)

	// 2. Storage
	store, cleanup := initStorage(ctx, appCfg)
	if cleanup != nil {
		services = append(services, cleanup)
	}

	// 3. Persona
	p, err := persona.Load(appCfg.GetPersonaPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid persona file")
	}
	logger.Info().Str("persona", p.Name).Msg("persona loaded")

	// 4. Model provider
	provider, err := llm.NewProvider(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 5. Memory and prompt
	counter := prompt.BPECounter{}
	mem := memory.NewManager(store, memory.DefaultNoteExtractor(), counter, memory.Config{
		ContextWindow: appCfg.ContextWindow,
		NotesCapacity: appCfg.NotesCapacity,
	})
	builder := prompt.NewBuilder(counter, appCfg.PromptTokenBudget)

	// 6. Decision engine
	metrics := web.NewMetrics()
	limiter := brain.NewLimiter(brain.LimiterConfig{
		MaxGlobal:    appCfg.GlobalMaxResponses,
		Window:       time.Duration(appCfg.GlobalWindowSeconds) * time.Second,
		UserCooldown: time.Duration(appCfg.UserCooldownSeconds * float64(time.Second)),
	})
	engine := brain.NewEngine(
		p, mem, builder, provider, limiter,
		brain.NewScorer(p, appCfg.TriggerThreshold),
		metrics,
		brain.Config{
			ModelTimeout: time.Duration(appCfg.ModelTimeoutSeconds) * time.Second,
			PromptBudget: appCfg.PromptTokenBudget,
		},
	)

	// 7. Listeners
	if appCfg.EnableTwitch {
		services = append(services, twitch.NewBot(ctx, config.NewTwitchConfig(ctx), engine))
	}
	if appCfg.EnableDiscord {
		bot, err := discord.NewBot(ctx, config.NewDiscordConfig(ctx), engine)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize discord bot")
		}
		services = append(services, bot)
	}
	if appCfg.EnableWeb {
		services = append(services, web.NewServer(appCfg.WebAddr, engine, store, metrics))
	}
	if len(services) == 0 {
		logger.Fatal().Msg("no listeners enabled, nothing to do")
	}

	return services
}

// initStorage opens sqlite, or degrades to the in-memory store when the
// database cannot be opened. Profiles and turns are then session-scoped,
// but the companion still runs.
func initStorage(ctx context.Context, cfg *config.AppConfig) (core.Store, srv.Service) {
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).
			Str("path", cfg.GetDatabasePath()).
			Msg("sqlite unavailable, running on in-memory storage")
		return memstore.New(), nil
	}
	return sqlite.NewStore(db), srv.NewCleanup(db.Close)
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
