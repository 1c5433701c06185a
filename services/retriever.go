package services

import (
	"context"
	"fmt"

	"github/itish2003/legalrag/models"

	"go.uber.org/zap"
)

// DefaultTopK is the number of chunks fetched per chatbot query.
const DefaultTopK = 3

// Retriever fetches the passages most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

type retrieverImpl struct {
	embedder Embedder
	index    VectorIndex
	logger   *zap.Logger
}

func NewRetriever(embedder Embedder, index VectorIndex, logger *zap.Logger) Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retrieverImpl{embedder: embedder, index: index, logger: logger}
}

// Retrieve embeds the query once and returns up to k chunks in ascending
// distance order. Failures are not retried: the index is static, so a
// failing lookup is a deployment problem rather than a transient one.
func (r *retrieverImpl) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if r.embedder == nil || r.index == nil {
		return nil, fmt.Errorf("%w: retriever is not configured", ErrRetrievalUnavailable)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrRetrievalUnavailable, err)
	}

	chunks, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search index: %v", ErrRetrievalUnavailable, err)
	}

	r.logger.Debug("retrieved chunks", zap.Int("k", k), zap.Int("count", len(chunks)))
	return chunks, nil
}
