package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultBedrockModel is the Titan text embedding model.
const DefaultBedrockModel = "amazon.titan-embed-text-v2:0"

// bedrockInvoker is the subset of the Bedrock runtime client we call.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder calls Amazon Titan text embeddings, one text per request.
type BedrockEmbedder struct {
	client    bedrockInvoker
	model     string
	dimension int
	logger    *slog.Logger
}

var _ Embedder = (*BedrockEmbedder)(nil)

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewBedrockEmbedder loads AWS credentials from the default chain.
func NewBedrockEmbedder(ctx context.Context, cfg Config, logger *slog.Logger) (*BedrockEmbedder, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultBedrockModel
	}
	return newBedrockEmbedder(bedrockruntime.NewFromConfig(awsCfg), model, cfg.Dimension, logger), nil
}

func newBedrockEmbedder(client bedrockInvoker, model string, dim int, logger *slog.Logger) *BedrockEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &BedrockEmbedder{client: client, model: model, dimension: dim, logger: logger}
}

func (b *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: b.dimension, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("encode bedrock request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke bedrock model: %w", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode bedrock response: %w", err)
	}
	if len(resp.Embedding) != b.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(resp.Embedding), b.dimension)
	}
	return resp.Embedding, nil
}

func (b *BedrockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := b.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = v
	}
	b.logger.Debug("bedrock batch complete", "model", b.model, "texts", len(texts))
	return out, nil
}

func (b *BedrockEmbedder) Model() string  { return b.model }
func (b *BedrockEmbedder) Dimension() int { return b.dimension }
