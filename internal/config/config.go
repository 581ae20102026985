// Package config builds the process-wide configuration once at startup.
// Components receive it by parameter; nothing reads global state.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	"grid/internal/models"
)

// keyringService is the service name under which API credentials are
// stored in the OS keyring.
const keyringService = "grid"

type Config struct {
	// Generation provider.
	NovelAIBaseURL string
	NovelAIAPIKey  string
	DefaultModel   string

	// Curation system.
	EagleBaseURL  string
	EagleAPIToken string

	// Storage.
	DatabasePath string
	DataDir      string

	DefaultUserID string

	LogLevel  string
	LogFormat string
}

// Load reads .env (best effort), environment variables, and finally the
// OS keyring for credentials that are absent from the environment.
func Load() *Config {
	_ = godotenv.Load(envPath())

	cfg := &Config{
		NovelAIBaseURL: getenv("NOVELAI_BASE_URL", "https://image.novelai.net"),
		NovelAIAPIKey:  os.Getenv("NOVELAI_API_KEY"),
		DefaultModel:   getenv("DEFAULT_AI_MODEL", "nai-diffusion-4-full"),
		EagleBaseURL:   getenv("EAGLE_BASE_URL", "http://localhost:41595"),
		EagleAPIToken:  os.Getenv("EAGLE_API_TOKEN"),
		DatabasePath:   getenv("GRID_DB_PATH", filepath.Join("data", "grid.db")),
		DataDir:        getenv("GRID_DATA_DIR", "data"),
		DefaultUserID:  getenv("GRID_USER_ID", models.DefaultUserID),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
	}

	if cfg.NovelAIAPIKey == "" {
		if v, err := keyring.Get(keyringService, "novelai"); err == nil {
			cfg.NovelAIAPIKey = v
		}
	}
	if cfg.EagleAPIToken == "" {
		if v, err := keyring.Get(keyringService, "eagle"); err == nil {
			cfg.EagleAPIToken = v
		}
	}

	return cfg
}

// StoreAPIKey saves a credential ("novelai" or "eagle") in the OS keyring.
func StoreAPIKey(name, value string) error {
	return keyring.Set(keyringService, name, value)
}

// GeneratedDir is the root for generated image files, partitioned by
// date and session below it.
func (c *Config) GeneratedDir() string {
	return filepath.Join(c.DataDir, "generated")
}

// EncodedDir is the root for encoded vibe blobs.
func (c *Config) EncodedDir() string {
	return filepath.Join(c.DataDir, "encoded")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envPath walks up from the working directory looking for a .env next to
// go.mod, so commands work from any subdirectory of the project.
func envPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ".env"
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, ".env")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ".env"
		}
		dir = parent
	}
}
