package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"sdch/internal/assembler"
	"sdch/internal/cache"
	"sdch/internal/chunker"
	"sdch/internal/config"
	"sdch/internal/embedder"
	"sdch/internal/httpapi"
	"sdch/internal/ingest"
	"sdch/internal/objectstore"
	"sdch/internal/observability"
	"sdch/internal/store"
	"sdch/internal/tier"
)

func main() {
	cfg, err := config.Load()
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	st, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init metadata store")
	}
	defer st.Close()

	var idxCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, 0)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory index cache")
			idxCache = cache.NewMemory()
		} else {
			defer rc.Close()
			idxCache = rc
		}
	} else {
		log.Info().Msg("REDIS_URL not set, using in-memory index cache")
		idxCache = cache.NewMemory()
	}

	texts, err := objectstore.NewLocal(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init upload storage")
	}

	var primary embedder.Embedder
	if cfg.OpenAIAPIKey != "" {
		primary = embedder.NewOpenAI(cfg.OpenAIAPIKey)
	} else {
		log.Info().Msg("OPENAI_API_KEY not set, embeddings use the local fallback")
	}
	gateway := embedder.NewGateway(primary, embedder.NewLocal())

	chk, err := chunker.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init chunker")
	}

	thresholds := tier.Thresholds{
		Tier1Max: cfg.Tiers.Tier1MaxTokens,
		Tier2Max: cfg.Tiers.Tier2MaxTokens,
		Tier3Max: cfg.Tiers.Tier3MaxTokens,
	}
	chunking := chunker.Options{
		TargetTokens:  cfg.Chunking.TargetTokens,
		OverlapTokens: cfg.Chunking.OverlapTokens,
		MaxTokens:     cfg.Chunking.MaxTokens,
	}
	budgetCfg := cfg.BudgetConfig()

	ing := ingest.New(st, texts, idxCache, gateway, chk, ingest.Options{
		Thresholds:   thresholds,
		Chunking:     chunking,
		MaxFileBytes: cfg.MaxFileSizeBytes(),
	})
	asm := assembler.New(st, texts, idxCache, gateway, chk, assembler.Options{
		Budget:         budgetCfg,
		Chunking:       chunking,
		Tier1MaxTokens: cfg.Tiers.Tier1MaxTokens,
		TopKDefault:    cfg.RAGTopK,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	httpapi.New(ing, asm, st, idxCache, budgetCfg, cfg.MaxFileSizeBytes()).Register(e)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("sdch server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped cleanly")
}
