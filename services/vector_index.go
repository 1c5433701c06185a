package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github/itish2003/legalrag/models"
)

// VectorIndex answers nearest-neighbour lookups over precomputed chunk
// embeddings. Results are ordered by non-decreasing distance.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
}

// IndexWriter is implemented by indexes that can be (re)built from a corpus.
type IndexWriter interface {
	AddChunks(ctx context.Context, chunks []models.DocumentChunk, vectors [][]float32, fileHash string) error
	DeleteSource(ctx context.Context, source string) error
	// SourceHashes maps every indexed source file to the hash it was indexed at.
	SourceHashes(ctx context.Context) (map[string]string, error)
}

type flatEntry struct {
	Chunk  models.DocumentChunk `json:"chunk"`
	Vector []float32            `json:"vector"`
	Hash   string               `json:"hash,omitempty"`
}

type flatSnapshot struct {
	Dimension int         `json:"dimension"`
	Entries   []flatEntry `json:"entries"`
}

// FlatIndex is an exact squared-L2 index held in memory and persisted as a
// JSON snapshot.
type FlatIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []flatEntry
}

func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// LoadFlatIndex reads a snapshot written by Save.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index snapshot: %w", err)
	}
	var snap flatSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode index snapshot: %w", err)
	}
	for i, e := range snap.Entries {
		if len(e.Vector) != snap.Dimension {
			return nil, fmt.Errorf("entry %d has dimension %d, index dimension is %d", i, len(e.Vector), snap.Dimension)
		}
	}
	return &FlatIndex{dimension: snap.Dimension, entries: snap.Entries}, nil
}

// Save writes the index to path, creating parent directories as needed.
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	snap := flatSnapshot{Dimension: f.dimension, Entries: f.entries}
	data, err := json.Marshal(snap)
	f.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

func (f *FlatIndex) Search(_ context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	// an empty index answers with no chunks, like an empty chroma collection
	if len(f.entries) == 0 {
		return nil, nil
	}
	if len(vector) != f.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), f.dimension)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	scored := make([]models.ScoredChunk, len(f.entries))
	for i, e := range f.entries {
		scored[i] = models.ScoredChunk{Chunk: e.Chunk, Distance: squaredL2(vector, e.Vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (f *FlatIndex) AddChunks(_ context.Context, chunks []models.DocumentChunk, vectors [][]float32, fileHash string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, v := range vectors {
		if f.dimension == 0 && len(f.entries) == 0 {
			f.dimension = len(v)
		}
		if len(v) != f.dimension {
			return fmt.Errorf("chunk %d has dimension %d, index dimension is %d", i, len(v), f.dimension)
		}
	}
	for i := range chunks {
		f.entries = append(f.entries, flatEntry{Chunk: chunks[i], Vector: vectors[i], Hash: fileHash})
	}
	return nil
}

func (f *FlatIndex) DeleteSource(_ context.Context, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.Chunk.Source != source {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	if len(f.entries) == 0 {
		f.dimension = 0
	}
	return nil
}

func (f *FlatIndex) SourceHashes(_ context.Context) (map[string]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	state := make(map[string]string)
	for _, e := range f.entries {
		if _, ok := state[e.Chunk.Source]; !ok && e.Chunk.Source != "" {
			state[e.Chunk.Source] = e.Hash
		}
	}
	return state, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

var (
	_ VectorIndex = (*FlatIndex)(nil)
	_ IndexWriter = (*FlatIndex)(nil)
)
