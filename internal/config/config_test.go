package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rab-crypto/tenax-sub001/internal/embedding"
)

var envKeys = []string{
	"TENAX_DATA_DIR", "TENAX_EMBED_PROVIDER", "TENAX_EMBED_MODEL", "TENAX_EMBED_DIMENSION",
	"TENAX_EMBED_BATCH_SIZE", "TENAX_EMBED_CACHE_SIZE", "TENAX_MODEL_CACHE_DIR", "TENAX_ORT_LIBRARY",
	"OLLAMA_HOST", "OPENAI_API_KEY", "AWS_REGION", "TENAX_LOG_FILE", "TENAX_LOG_LEVEL",
	"TENAX_SEARCH_LIMIT", "TENAX_LOCK_TIMEOUT", "TENAX_PROJECT_ROOT",
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, ".tenax"), cfg.DataDir)
	assert.Equal(t, "local", cfg.EmbedProvider)
	assert.Equal(t, embedding.DefaultLocalDimension, cfg.EmbedDimension)
	assert.Equal(t, 10, cfg.SearchLimit)
	assert.Equal(t, 10*time.Second, cfg.LockTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.Level())

	assert.Equal(t, filepath.Join(root, ".tenax", "index.json"), cfg.IndexPath())
	assert.Equal(t, filepath.Join(root, ".tenax", "vectors.db"), cfg.VectorsPath())
	assert.Equal(t, filepath.Join(root, ".tenax", "sessions"), cfg.SessionsDir())
	assert.Equal(t, filepath.Join(root, ".tenax", "index.lock"), cfg.LockPath())
}

func TestLoadLayers(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	dataDir := filepath.Join(root, ".tenax")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	file := `
embed_provider: hash
embed_dimension: 64
search_limit: 5
lock_timeout: 2s
log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, FileName), []byte(file), 0o644))

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(root)
		require.NoError(t, err)
		assert.Equal(t, "hash", cfg.EmbedProvider)
		assert.Equal(t, 64, cfg.EmbedDimension)
		assert.Equal(t, 5, cfg.SearchLimit)
		assert.Equal(t, 2*time.Second, cfg.LockTimeout)
		assert.Equal(t, slog.LevelDebug, cfg.Level())
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("TENAX_EMBED_DIMENSION", "128")
		t.Setenv("TENAX_SEARCH_LIMIT", "3")
		t.Setenv("TENAX_LOCK_TIMEOUT", "500ms")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		cfg, err := Load(root)
		require.NoError(t, err)
		assert.Equal(t, 128, cfg.EmbedDimension)
		assert.Equal(t, 3, cfg.SearchLimit)
		assert.Equal(t, 500*time.Millisecond, cfg.LockTimeout)

		ec := cfg.Embedding()
		assert.Equal(t, embedding.ProviderHash, ec.Provider)
		assert.Equal(t, 128, ec.Dimension)
		assert.Equal(t, "sk-test", ec.OpenAIAPIKey)
	})
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown provider", env: map[string]string{"TENAX_EMBED_PROVIDER": "magic"}, want: "unknown embedding provider"},
		{name: "bad int", env: map[string]string{"TENAX_SEARCH_LIMIT": "many"}, want: "TENAX_SEARCH_LIMIT"},
		{name: "negative dimension", env: map[string]string{"TENAX_EMBED_DIMENSION": "-1"}, want: "embed_dimension"},
		{name: "bad duration", env: map[string]string{"TENAX_LOCK_TIMEOUT": "soon"}, want: "TENAX_LOCK_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".tenax"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".tenax", FileName), []byte("search_limit: [oops"), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestDefaultDimension(t *testing.T) {
	tests := []struct {
		provider embedding.ProviderType
		model    string
		want     int
	}{
		{embedding.ProviderLocal, "", 384},
		{embedding.ProviderHash, "", 384},
		{embedding.ProviderOpenAI, "", 1536},
		{embedding.ProviderOpenAI, "text-embedding-3-large", 3072},
		{embedding.ProviderBedrock, "", 1024},
		{embedding.ProviderOllama, "nomic-embed-text", 768},
		{embedding.ProviderOllama, "all-minilm:l6-v2", 384},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider)+"/"+tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultDimension(tt.provider, tt.model))
		})
	}
}

func TestDetectProjectRootFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TENAX_PROJECT_ROOT", dir)

	root, err := DetectProjectRoot()
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("processed", "session_id", "s1")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "session_id=s1")
	assert.True(t, strings.HasPrefix(file.String(), "{"))
	assert.Contains(t, file.String(), `"session_id":"s1"`)
}

func TestSetupLoggerCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tenax.log")
	logger, cleanup := SetupLogger(path, slog.LevelError, slog.LevelInfo)
	logger.Info("to file only")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file only")
}
