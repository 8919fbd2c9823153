// Package embedding provides text embedding generation with multiple backend support.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Embedder defines the interface for text embedding providers.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The i-th vector always belongs to the i-th text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// Must match the dimension recorded in the vector store.
	Dimension() int
}

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderLocal runs an ONNX sentence-embedding model in process.
	ProviderLocal ProviderType = "local"

	// ProviderOllama uses an Ollama server through langchaingo.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses the OpenAI embeddings API through langchaingo.
	ProviderOpenAI ProviderType = "openai"

	// ProviderBedrock uses Amazon Titan text embeddings.
	ProviderBedrock ProviderType = "bedrock"

	// ProviderHash is a deterministic offline feature-hashing embedder.
	ProviderHash ProviderType = "hash"
)

// Providers lists every supported provider.
var Providers = []ProviderType{ProviderLocal, ProviderOllama, ProviderOpenAI, ProviderBedrock, ProviderHash}

// ErrDimensionMismatch is returned when a provider yields vectors of the wrong size.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Config holds configuration for creating an Embedder.
type Config struct {
	Provider ProviderType

	// Model is the provider-specific model name. For the local provider it is a
	// Hugging Face repository holding an ONNX export.
	Model string

	// Dimension is the required output dimension.
	Dimension int

	// BatchSize bounds the texts sent to the model in one call.
	BatchSize int

	// CacheSize enables an in-process LRU of embeddings when positive.
	CacheSize int

	// Local provider
	ModelCacheDir  string
	OrtLibraryPath string

	// Remote providers
	OllamaHost   string
	OpenAIAPIKey string
	AWSRegion    string
}

// New creates an Embedder based on the provided configuration.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}

	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderLocal, "":
		e = Shared(LocalConfig{
			Repo:           cfg.Model,
			CacheDir:       cfg.ModelCacheDir,
			OrtLibraryPath: cfg.OrtLibraryPath,
			Dimension:      cfg.Dimension,
			BatchSize:      cfg.BatchSize,
		}, logger)
	case ProviderOllama, ProviderOpenAI:
		e, err = NewLangchainEmbedder(cfg, logger)
	case ProviderBedrock:
		e, err = NewBedrockEmbedder(ctx, cfg, logger)
	case ProviderHash:
		e = NewHashEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize)
	}
	return e, nil
}

// checkBatch validates count and dimension of a provider response.
func checkBatch(vectors [][]float32, want, dim int) error {
	if len(vectors) != want {
		return fmt.Errorf("count mismatch: got %d, want %d", len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("embedding %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(v), dim)
		}
	}
	return nil
}

// chunks splits texts into consecutive slices of at most size elements.
func chunks(texts []string, size int) [][]string {
	if size <= 0 || size >= len(texts) {
		return [][]string{texts}
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}
