package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables (optionally .env).
// Defaults follow the documented environment surface; Validate is the
// caller's responsibility so mains decide how to fail.
func Load() (Config, error) {
	// Use Overload so .env values override existing OS environment variables;
	// local development then behaves deterministically.
	_ = godotenv.Overload()

	cfg := Config{
		Host: strFromEnv("HOST", "0.0.0.0"),
		Port: intFromEnv("PORT", 8080),

		OpenAIAPIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		UploadDir:    strFromEnv("UPLOAD_DIR", "./uploads"),

		LogPath:  strings.TrimSpace(os.Getenv("LOG_PATH")),
		LogLevel: strFromEnv("LOG_LEVEL", "info"),

		MaxFileSizeMB: intFromEnv("MAX_FILE_SIZE_MB", 50),

		Tiers: TierConfig{
			Tier1MaxTokens: intFromEnv("TIER1_MAX_TOKENS", 12000),
			Tier2MaxTokens: intFromEnv("TIER2_MAX_TOKENS", 25000),
			Tier3MaxTokens: intFromEnv("TIER3_MAX_TOKENS", 50000),
		},
		Chunking: ChunkingConfig{
			TargetTokens:  intFromEnv("CHUNK_TARGET_TOKENS", 512),
			OverlapTokens: intFromEnv("CHUNK_OVERLAP_TOKENS", 64),
			MaxTokens:     intFromEnv("CHUNK_MAX_TOKENS", 768),
		},
		Budget: BudgetConfig{
			TotalWindow:    intFromEnv("TOTAL_CONTEXT_WINDOW", 200000),
			SystemTokens:   intFromEnv("RESERVED_SYSTEM_TOKENS", 2000),
			HistoryTokens:  intFromEnv("RESERVED_HISTORY_TOKENS", 10000),
			ResponseTokens: intFromEnv("RESERVED_RESPONSE_TOKENS", 4000),
		},

		RAGTopK: intFromEnv("RAG_TOP_K", 10),
	}

	return cfg, nil
}

func strFromEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
