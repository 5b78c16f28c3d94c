// Package embedding строит векторы описаний материалов через модель эмбеддингов.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Embedder - модель эмбеддингов: один запрос или пачка документов.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Ollama - эмбеддинги через локальный сервер ollama.
type Ollama struct {
	model     embeddings.Embedder
	modelName string
	logger    zerolog.Logger
}

func NewOllama(model, host string, logger zerolog.Logger) (*Ollama, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return &Ollama{model: emb, modelName: model, logger: logger}, nil
}

func (o *Ollama) Model() string { return o.modelName }

func (o *Ollama) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := o.model.EmbedQuery(ctx, text)
	if err != nil {
		o.logger.Warn().Err(err).Str("model", o.modelName).Dur("elapsed", time.Since(start)).Msg("embed query failed")
		return nil, fmt.Errorf("embed query: %w", err)
	}
	o.logger.Debug().Str("model", o.modelName).Int("text_len", len(text)).Dur("elapsed", time.Since(start)).Msg("embed query")
	return v, nil
}

func (o *Ollama) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vs, err := o.model.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vs) != len(texts) {
		return nil, fmt.Errorf("count mismatch: got %d, want %d", len(vs), len(texts))
	}
	return vs, nil
}
