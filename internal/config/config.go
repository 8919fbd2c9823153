package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Rab-crypto/tenax-sub001/internal/embedding"
)

const (
	// DataDirName is the per-project data directory.
	DataDirName = ".tenax"

	// FileName is the optional config file inside the data directory.
	FileName = "config.yaml"
)

// Config holds all configuration values.
type Config struct {
	ProjectRoot string `yaml:"-"`
	DataDir     string `yaml:"data_dir"`

	// Embedding
	EmbedProvider  string `yaml:"embed_provider"`
	EmbedModel     string `yaml:"embed_model"`
	EmbedDimension int    `yaml:"embed_dimension"`
	EmbedBatchSize int    `yaml:"embed_batch_size"`
	EmbedCacheSize int    `yaml:"embed_cache_size"`
	ModelCacheDir  string `yaml:"model_cache_dir"`
	OrtLibraryPath string `yaml:"ort_library_path"`
	OllamaHost     string `yaml:"ollama_host"`
	OpenAIAPIKey   string `yaml:"-"`
	AWSRegion      string `yaml:"aws_region"`

	// Logging
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	// Behaviour
	SearchLimit int           `yaml:"search_limit"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// Default returns the built-in configuration for a project root.
func Default(projectRoot string) Config {
	dataDir := filepath.Join(projectRoot, DataDirName)
	return Config{
		ProjectRoot:    projectRoot,
		DataDir:        dataDir,
		EmbedProvider:  string(embedding.ProviderLocal),
		EmbedBatchSize: 32,
		EmbedCacheSize: 256,
		OllamaHost:     "http://localhost:11434",
		LogFile:        filepath.Join(dataDir, "tenax.log"),
		LogLevel:       "INFO",
		SearchLimit:    10,
		LockTimeout:    10 * time.Second,
	}
}

// Load builds the configuration for projectRoot: defaults, then
// <data dir>/config.yaml when present, then TENAX_* environment variables.
func Load(projectRoot string) (Config, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return Config{}, fmt.Errorf("resolve project root: %w", err)
	}
	cfg := Default(abs)

	if dir := os.Getenv("TENAX_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
		cfg.LogFile = filepath.Join(dir, "tenax.log")
	}

	if err := cfg.loadFile(filepath.Join(cfg.DataDir, FileName)); err != nil {
		return Config{}, err
	}
	if err := cfg.loadEnv(); err != nil {
		return Config{}, err
	}

	if cfg.EmbedDimension == 0 {
		cfg.EmbedDimension = DefaultDimension(embedding.ProviderType(cfg.EmbedProvider), cfg.EmbedModel)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(abs, cfg.DataDir)
	}

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.EmbedProvider = getEnv("TENAX_EMBED_PROVIDER", c.EmbedProvider)
	c.EmbedModel = getEnv("TENAX_EMBED_MODEL", c.EmbedModel)
	c.ModelCacheDir = getEnv("TENAX_MODEL_CACHE_DIR", c.ModelCacheDir)
	c.OrtLibraryPath = getEnv("TENAX_ORT_LIBRARY", c.OrtLibraryPath)
	c.OllamaHost = getEnv("OLLAMA_HOST", c.OllamaHost)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.LogFile = getEnv("TENAX_LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("TENAX_LOG_LEVEL", c.LogLevel)

	ints := []struct {
		key string
		dst *int
	}{
		{"TENAX_EMBED_DIMENSION", &c.EmbedDimension},
		{"TENAX_EMBED_BATCH_SIZE", &c.EmbedBatchSize},
		{"TENAX_EMBED_CACHE_SIZE", &c.EmbedCacheSize},
		{"TENAX_SEARCH_LIMIT", &c.SearchLimit},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("TENAX_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TENAX_LOCK_TIMEOUT: %w", err)
		}
		c.LockTimeout = d
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if !slices.Contains(embedding.Providers, embedding.ProviderType(c.EmbedProvider)) {
		return fmt.Errorf("unknown embedding provider %q", c.EmbedProvider)
	}
	if c.EmbedDimension <= 0 {
		return fmt.Errorf("embed_dimension must be positive, got %d", c.EmbedDimension)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("embed_batch_size must be positive, got %d", c.EmbedBatchSize)
	}
	if c.EmbedCacheSize < 0 {
		return fmt.Errorf("embed_cache_size must not be negative, got %d", c.EmbedCacheSize)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("search_limit must be positive, got %d", c.SearchLimit)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive, got %s", c.LockTimeout)
	}
	return nil
}

// DefaultDimension is the output size of each provider's default model.
func DefaultDimension(p embedding.ProviderType, model string) int {
	switch p {
	case embedding.ProviderOpenAI:
		if model == "text-embedding-3-large" {
			return 3072
		}
		return 1536
	case embedding.ProviderBedrock:
		return 1024
	case embedding.ProviderOllama:
		if strings.HasPrefix(model, "nomic-embed-text") {
			return 768
		}
		return embedding.DefaultLocalDimension
	default:
		return embedding.DefaultLocalDimension
	}
}

// Level parses LogLevel.
func (c Config) Level() slog.Level {
	return parseLogLevel(c.LogLevel)
}

// Embedding returns the embedder settings.
func (c Config) Embedding() embedding.Config {
	return embedding.Config{
		Provider:       embedding.ProviderType(c.EmbedProvider),
		Model:          c.EmbedModel,
		Dimension:      c.EmbedDimension,
		BatchSize:      c.EmbedBatchSize,
		CacheSize:      c.EmbedCacheSize,
		ModelCacheDir:  c.ModelCacheDir,
		OrtLibraryPath: c.OrtLibraryPath,
		OllamaHost:     c.OllamaHost,
		OpenAIAPIKey:   c.OpenAIAPIKey,
		AWSRegion:      c.AWSRegion,
	}
}

// IndexPath is the project index file.
func (c Config) IndexPath() string { return filepath.Join(c.DataDir, "index.json") }

// VectorsPath is the vector store database.
func (c Config) VectorsPath() string { return filepath.Join(c.DataDir, "vectors.db") }

// SessionsDir holds retained transcripts.
func (c Config) SessionsDir() string { return filepath.Join(c.DataDir, "sessions") }

// LockPath is the advisory index lock.
func (c Config) LockPath() string { return filepath.Join(c.DataDir, "index.lock") }

// DetectProjectRoot picks the project root.
// Priority: TENAX_PROJECT_ROOT > git top-level > cwd.
func DetectProjectRoot() (string, error) {
	if root := os.Getenv("TENAX_PROJECT_ROOT"); root != "" {
		return filepath.Abs(root)
	}
	if top := gitTopLevel(); top != "" {
		return top, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("detect project root: %w", err)
	}
	return cwd, nil
}

func gitTopLevel() string {
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
