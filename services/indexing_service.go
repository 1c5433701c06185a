package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github/itish2003/legalrag/models"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
)

// FileIndexingService builds the vector index from a corpus directory: it
// splits files into chunks, embeds them and writes them to the index.
type FileIndexingService struct {
	index    IndexWriter
	embedder Embedder
	splitter textsplitter.TextSplitter
	persist  func() error
	logger   *zap.Logger
}

// IndexingOption configures a FileIndexingService.
type IndexingOption func(*FileIndexingService)

// WithPersist registers a hook run after every change to the index, e.g. to
// write a flat index snapshot back to disk.
func WithPersist(fn func() error) IndexingOption {
	return func(s *FileIndexingService) {
		s.persist = fn
	}
}

// WithIndexingLogger sets the logger.
func WithIndexingLogger(logger *zap.Logger) IndexingOption {
	return func(s *FileIndexingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileIndexingService creates a new indexing service.
func NewFileIndexingService(index IndexWriter, embedder Embedder, chunkSize, chunkOverlap int, opts ...IndexingOption) *FileIndexingService {
	s := &FileIndexingService{
		index:    index,
		embedder: embedder,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncStats summarizes a directory scan.
type SyncStats struct {
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
}

// ScanAndIndexDirectory syncs the index with the files under dirPath:
// new or changed files are (re)indexed and vanished files removed.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string) (SyncStats, error) {
	var stats SyncStats
	s.logger.Info("starting directory scan", zap.String("dir", dirPath))

	indexedFiles, err := s.index.SourceHashes(ctx)
	if err != nil {
		return stats, fmt.Errorf("could not get current index state: %w", err)
	}

	localFiles := make(map[string]bool)
	err = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		localFiles[path] = true

		hash, err := calculateFileHash(path)
		if err != nil {
			s.logger.Warn("could not hash file", zap.String("path", path), zap.Error(err))
			stats.Failed++
			return nil
		}
		if indexedHash, ok := indexedFiles[path]; ok {
			if indexedHash == hash {
				stats.Unchanged++
				return nil
			}
			if err := s.index.DeleteSource(ctx, path); err != nil {
				s.logger.Error("failed to delete old version", zap.String("path", path), zap.Error(err))
				stats.Failed++
				return nil
			}
		}
		if err := s.processAndEmbedFile(ctx, path, hash); err != nil {
			s.logger.Error("failed to process file", zap.String("path", path), zap.Error(err))
			stats.Failed++
			return nil
		}
		stats.Indexed++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", dirPath, err)
	}

	for path := range indexedFiles {
		if localFiles[path] {
			continue
		}
		if err := s.index.DeleteSource(ctx, path); err != nil {
			s.logger.Error("failed to delete records", zap.String("path", path), zap.Error(err))
			stats.Failed++
			continue
		}
		stats.Removed++
	}

	if stats.Indexed > 0 || stats.Removed > 0 {
		if err := s.runPersist(); err != nil {
			return stats, err
		}
	}
	s.logger.Info("directory scan finished",
		zap.Int("indexed", stats.Indexed),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("removed", stats.Removed),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// WatchDirectory re-indexes files under dirPath as they change until ctx is
// cancelled.
func (s *FileIndexingService) WatchDirectory(ctx context.Context, dirPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dirPath, err)
	}
	s.logger.Info("watching corpus directory", zap.String("dir", dirPath))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", zap.Error(err))
		case <-ctx.Done():
			s.logger.Info("context cancelled, stopping watcher")
			return nil
		}
	}
}

func (s *FileIndexingService) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !isSupportedFile(event.Name) {
		return
	}
	s.logger.Debug("watcher event", zap.String("event", event.String()))

	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		// editors often write via create+rename, so both are treated as a rewrite
		hash, err := calculateFileHash(event.Name)
		if err != nil {
			s.logger.Warn("could not hash file", zap.String("path", event.Name), zap.Error(err))
			return
		}
		if err := s.index.DeleteSource(ctx, event.Name); err != nil {
			s.logger.Error("failed to delete old version", zap.String("path", event.Name), zap.Error(err))
			return
		}
		if err := s.processAndEmbedFile(ctx, event.Name, hash); err != nil {
			s.logger.Error("failed to process file", zap.String("path", event.Name), zap.Error(err))
			return
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if err := s.index.DeleteSource(ctx, event.Name); err != nil {
			s.logger.Error("failed to delete records", zap.String("path", event.Name), zap.Error(err))
			return
		}
	default:
		return
	}

	if err := s.runPersist(); err != nil {
		s.logger.Error("failed to persist index", zap.Error(err))
	}
}

func (s *FileIndexingService) processAndEmbedFile(ctx context.Context, path, hash string) error {
	content, err := ExtractTextFromFile(path)
	if err != nil {
		return err
	}

	texts, err := s.splitter.SplitText(content)
	if err != nil {
		return err
	}
	s.logger.Info("split file into chunks", zap.String("path", path), zap.Int("chunks", len(texts)))

	fileID := uuid.New().String()
	chunks := make([]models.DocumentChunk, 0, len(texts))
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vector, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("could not embed chunk %d of %s: %w", i, path, err)
		}
		chunks = append(chunks, models.DocumentChunk{
			ID:     fmt.Sprintf("%s-chunk%d", fileID, i),
			Text:   text,
			Index:  i,
			Source: path,
		})
		vectors = append(vectors, vector)
	}
	return s.index.AddChunks(ctx, chunks, vectors, hash)
}

func (s *FileIndexingService) runPersist() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
