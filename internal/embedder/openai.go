package embedder

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIName identifies the primary embedder in index artifacts.
const OpenAIName = "openai-text-embedding-3-small"

// OpenAIDimension is text-embedding-3-small's native output size.
const OpenAIDimension = 1536

// OpenAI embeds text through the OpenAI embeddings endpoint.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI builds the primary embedder from an API key.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

func (o *OpenAI) Name() string   { return OpenAIName }
func (o *OpenAI) Dimension() int { return OpenAIDimension }

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModelTextEmbedding3Small,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		if int(d.Index) < len(out) {
			out[d.Index] = v
		}
	}
	return out, nil
}
