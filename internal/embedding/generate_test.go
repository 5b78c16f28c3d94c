package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder кодирует текст его длиной и первым байтом.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches []int
	failOn  string
	badDim  string
}

func (f *fakeEmbedder) vec(s string) []float32 {
	if s == f.badDim {
		return []float32{1}
	}
	first := float32(0)
	if s != "" {
		first = float32(s[0])
	}
	return []float32{float32(len(s)), first}
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return f.vec(text), nil
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batches = append(f.batches, len(texts))
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == f.failOn {
			return nil, errors.New("model error")
		}
		out[i] = f.vec(t)
	}
	return out, nil
}

func TestGenerateKeepsOrder(t *testing.T) {
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("%c%s", 'a'+i, string(make([]byte, i)))
	}
	emb := &fakeEmbedder{}
	rows, dim, data, err := Generate(context.Background(), emb, texts, GenerateOptions{
		Batch: 3, Parallel: 4, Limiter: NewLimiter(1000), Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, rows)
	assert.Equal(t, 2, dim)
	for i := range texts {
		assert.Equal(t, float32(len(texts[i])), data[i*dim])
		assert.Equal(t, float32('a'+i), data[i*dim+1])
	}
	assert.ElementsMatch(t, []int{3, 3, 3, 1}, emb.batches)
}

func TestGenerateEmpty(t *testing.T) {
	rows, dim, data, err := Generate(context.Background(), &fakeEmbedder{}, nil, GenerateOptions{})
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Zero(t, dim)
	assert.Empty(t, data)
}

func TestGenerateErrors(t *testing.T) {
	_, _, _, err := Generate(context.Background(), &fakeEmbedder{failOn: "b"}, []string{"a", "b"}, GenerateOptions{Batch: 1})
	assert.Error(t, err)

	_, _, _, err = Generate(context.Background(), &fakeEmbedder{badDim: "b"}, []string{"a", "b"}, GenerateOptions{})
	assert.ErrorContains(t, err, "dimension")
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err := Generate(ctx, &fakeEmbedder{}, []string{"a"}, GenerateOptions{Limiter: NewLimiter(1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	assert.NotNil(t, NewLimiter(5))
}
