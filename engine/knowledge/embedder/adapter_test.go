package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	queries int
	vector  []float32
	err     error
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	s.queries++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func testConfig() *Config {
	return &Config{Model: "text-embedding-3-small", Dimension: 3, BatchSize: 8, CacheSize: 4}
}

func TestAdapter_EmbedQuery(t *testing.T) {
	t.Run("Should serve repeated queries from the cache", func(t *testing.T) {
		stub := &stubEmbedder{vector: []float32{1, 2, 3}}
		a, err := Wrap(testConfig(), stub)
		require.NoError(t, err)

		first, err := a.EmbedQuery(t.Context(), "what is at 1:35?")
		require.NoError(t, err)
		first[0] = 99
		second, err := a.EmbedQuery(t.Context(), "what is at 1:35?")
		require.NoError(t, err)

		assert.Equal(t, 1, stub.queries)
		assert.Equal(t, []float32{1, 2, 3}, second)
	})

	t.Run("Should wrap provider errors with the model", func(t *testing.T) {
		a, err := Wrap(testConfig(), &stubEmbedder{err: errors.New("rate limited")})
		require.NoError(t, err)

		_, err = a.EmbedQuery(t.Context(), "q")

		assert.ErrorContains(t, err, `embedder "text-embedding-3-small": rate limited`)
	})

	t.Run("Should reject vectors of the wrong dimension", func(t *testing.T) {
		a, err := Wrap(testConfig(), &stubEmbedder{vector: []float32{1}})
		require.NoError(t, err)

		_, err = a.EmbedQuery(t.Context(), "q")

		assert.ErrorContains(t, err, "dimension mismatch")
	})
}

func TestAdapter_EmbedDocuments(t *testing.T) {
	t.Run("Should return one vector per text", func(t *testing.T) {
		a, err := Wrap(testConfig(), &stubEmbedder{vector: []float32{0, 1, 0}})
		require.NoError(t, err)

		vectors, err := a.EmbedDocuments(t.Context(), []string{"a", "b"})

		require.NoError(t, err)
		assert.Len(t, vectors, 2)
		empty, err := a.EmbedDocuments(t.Context(), nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestWrap(t *testing.T) {
	t.Run("Should validate configuration", func(t *testing.T) {
		stub := &stubEmbedder{}

		_, err := Wrap(&Config{Dimension: 3, BatchSize: 1}, stub)
		assert.ErrorIs(t, err, errMissingModel)
		_, err = Wrap(&Config{Model: "m", BatchSize: 1}, stub)
		assert.ErrorIs(t, err, errInvalidDimension)
		_, err = Wrap(&Config{Model: "m", Dimension: 3}, stub)
		assert.ErrorIs(t, err, errInvalidBatchSize)
		_, err = Wrap(testConfig(), nil)
		assert.Error(t, err)
	})
}
