package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github/itish2003/legalrag/models"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"go.uber.org/zap"
)

const (
	metaSourceFile = "source_file"
	metaFileHash   = "file_hash"
	metaChunkNum   = "chunk_num"
	metaChunkID    = "chunk_id"
)

// ChromaIndex serves lookups from a Chroma collection. Distances are the
// collection's configured space (l2 by default).
type ChromaIndex struct {
	collection chromago.Collection
	logger     *zap.Logger
}

func NewChromaIndex(collection chromago.Collection, logger *zap.Logger) *ChromaIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromaIndex{collection: collection, logger: logger}
}

// OpenChromaCollection gets or creates the named collection.
func OpenChromaCollection(ctx context.Context, client chromago.Client, collectionName string) (chromago.Collection, error) {
	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Legal reference corpus"),
				chromago.NewStringAttribute("created_by", "legalrag"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", collectionName, err)
	}
	return collection, nil
}

func (c *ChromaIndex) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	results, err := c.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	scored := make([]models.ScoredChunk, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		chunk := models.DocumentChunk{Text: doc.ContentString(), Index: i}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			meta := metadataToMap(metadataGroups[0][i])
			if v, ok := meta[metaSourceFile].(string); ok {
				chunk.Source = v
			}
			if v, ok := meta[metaChunkID].(string); ok {
				chunk.ID = v
			}
			if v, ok := meta[metaChunkNum].(float64); ok {
				chunk.Index = int(v)
			}
		}
		var distance float64
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			distance = float64(distanceGroups[0][i])
		}
		scored = append(scored, models.ScoredChunk{Chunk: chunk, Distance: distance})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	c.logger.Debug("chroma query finished", zap.Int("requested", k), zap.Int("returned", len(scored)))
	return scored, nil
}

func (c *ChromaIndex) AddChunks(ctx context.Context, chunks []models.DocumentChunk, vectors [][]float32, fileHash string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	for i, chunk := range chunks {
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(metaSourceFile, chunk.Source),
			chromago.NewStringAttribute(metaFileHash, fileHash),
			chromago.NewStringAttribute(metaChunkID, chunk.ID),
			chromago.NewIntAttribute(metaChunkNum, int64(chunk.Index)),
		)
		err := c.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(chunk.ID)),
			chromago.WithTexts(chunk.Text),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vectors[i])),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("failed to add chunk %d of %s to chromadb: %w", chunk.Index, chunk.Source, err)
		}
	}
	return nil
}

func (c *ChromaIndex) DeleteSource(ctx context.Context, source string) error {
	return c.collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(metaSourceFile, source)))
}

func (c *ChromaIndex) SourceHashes(ctx context.Context) (map[string]string, error) {
	state := make(map[string]string)
	results, err := c.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chromadb: %w", err)
	}
	for _, meta := range results.GetMetadatas() {
		if meta == nil {
			continue
		}
		m := metadataToMap(meta)
		path, ok := m[metaSourceFile].(string)
		if !ok {
			continue
		}
		hash, ok := m[metaFileHash].(string)
		if !ok {
			continue
		}
		if _, exists := state[path]; !exists {
			state[path] = hash
		}
	}
	return state, nil
}

// metadataToMap converts chroma document metadata into a plain map. The
// metadata type exposes no accessor for all values, so it round-trips
// through JSON.
func metadataToMap(metadata any) map[string]interface{} {
	var metadataMap map[string]interface{}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return map[string]interface{}{}
	}
	if err := json.Unmarshal(jsonBytes, &metadataMap); err != nil {
		return map[string]interface{}{}
	}
	return metadataMap
}

var (
	_ VectorIndex = (*ChromaIndex)(nil)
	_ IndexWriter = (*ChromaIndex)(nil)
)
