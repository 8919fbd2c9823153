package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Feature weights. Whole tokens dominate so exact term overlap ranks first.
const (
	tokenWeight   = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.35
)

// HashEmbedder maps text to a fixed-size vector by hashing token, token-bigram
// and character-trigram features. Output is deterministic and L2-normalised.
type HashEmbedder struct {
	dim int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a HashEmbedder of the given dimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(text), nil
}

func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-%d", h.dim)
}

func (h *HashEmbedder) Dimension() int {
	return h.dim
}

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dim)
	tokens := tokenize(text)

	for i, tok := range tokens {
		h.add(v, "w:"+tok, tokenWeight)
		if i+1 < len(tokens) {
			h.add(v, "b:"+tok+" "+tokens[i+1], bigramWeight)
		}
		r := []rune("#" + tok + "#")
		for j := 0; j+3 <= len(r); j++ {
			h.add(v, "g:"+string(r[j:j+3]), trigramWeight)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// add hashes a feature into a signed bucket.
func (h *HashEmbedder) add(v []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	if sum>>63 == 1 {
		weight = -weight
	}
	v[sum%uint64(len(v))] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
