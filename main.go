package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github/itish2003/legalrag/config"
	"github/itish2003/legalrag/controller"
	"github/itish2003/legalrag/logger"
	"github/itish2003/legalrag/repository"
	"github/itish2003/legalrag/services"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func main() {
	app := &cli.App{
		Name:  "legalrag",
		Usage: "Legal query answering over a local knowledge base with web research",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "config.yaml",
				EnvVars: []string{"LEGALRAG_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Re-index the corpus directory as files change",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Build or refresh the vector index from the corpus directory",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Corpus directory (defaults to corpus.dir from the config)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

type runtime struct {
	cfg        *config.AppConfig
	logger     *zap.Logger
	httpClient *http.Client
	embedder   services.Embedder
	index      services.VectorIndex
	writer     services.IndexWriter
	persist    func() error
	closeIndex func()
}

func setup(c *cli.Context, createFlatIndex bool) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	zl, err := logger.New(logger.Options{File: cfg.Log.File, Level: cfg.Log.Level, Production: cfg.Log.Production})
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:        cfg,
		logger:     zl,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Embedder.TimeoutSecs) * time.Second},
		closeIndex: func() {},
	}
	rt.embedder = services.NewOllamaEmbedder(rt.httpClient, cfg.Embedder.Host, cfg.Embedder.Model)

	switch cfg.Index.Backend {
	case config.IndexBackendChroma:
		chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.Index.ChromaURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create chroma client: %w", err)
		}
		rt.closeIndex = func() {
			if err := chromaClient.Close(); err != nil {
				zl.Warn("failed to close chroma client", zap.Error(err))
			}
		}
		collection, err := services.OpenChromaCollection(c.Context, chromaClient, cfg.Index.Collection)
		if err != nil {
			rt.closeIndex()
			return nil, err
		}
		idx := services.NewChromaIndex(collection, logger.Component(zl, "chroma"))
		rt.index, rt.writer = idx, idx
	case config.IndexBackendFlat:
		idx, err := services.LoadFlatIndex(cfg.Index.Path)
		if err != nil {
			if !createFlatIndex || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load index %s: %w", cfg.Index.Path, err)
			}
			idx = services.NewFlatIndex()
		}
		rt.index, rt.writer = idx, idx
		rt.persist = func() error { return idx.Save(cfg.Index.Path) }
	}
	return rt, nil
}

func (rt *runtime) indexingService() *services.FileIndexingService {
	return services.NewFileIndexingService(rt.writer, rt.embedder,
		rt.cfg.Corpus.ChunkSize, rt.cfg.Corpus.ChunkOverlap,
		services.WithPersist(rt.persist),
		services.WithIndexingLogger(logger.Component(rt.logger, "indexer")),
	)
}

func configurePDF(zl *zap.Logger) {
	if err := services.SetPDFLicense(os.Getenv("UNIDOC_LICENSE_KEY")); err != nil {
		zl.Warn("PDF extraction unavailable", zap.Error(err))
	}
}

func indexCommand(c *cli.Context) error {
	rt, err := setup(c, true)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()
	defer rt.closeIndex()
	configurePDF(rt.logger)

	dir := c.String("dir")
	if dir == "" {
		dir = rt.cfg.Corpus.Dir
	}
	stats, err := rt.indexingService().ScanAndIndexDirectory(c.Context, dir)
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d, unchanged %d, removed %d, failed %d\n", stats.Indexed, stats.Unchanged, stats.Removed, stats.Failed)
	return nil
}

func serveCommand(c *cli.Context) error {
	rt, err := setup(c, c.Bool("watch"))
	if err != nil {
		return err
	}
	defer rt.logger.Sync()
	defer rt.closeIndex()
	configurePDF(rt.logger)
	cfg, zl := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w. Make sure %s is set", err, cfg.Gemini.APIKeyEnv)
	}
	zl.Info("connected to Google Gemini")

	sessions := services.NewSessionRegistry(
		services.NewGeminiChatFactory(geminiClient, map[services.Mode]string{
			services.ModeChatbot:  cfg.Gemini.ChatModel,
			services.ModeResearch: cfg.Gemini.ResearchModel,
			services.ModeDraft:    cfg.Gemini.DraftModel,
		}),
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
		time.Duration(cfg.Session.CleanupMinutes)*time.Minute,
		logger.Component(zl, "sessions"),
	)

	searchClient := &http.Client{Timeout: time.Duration(cfg.Search.TimeoutSecs) * time.Second}
	executor := services.NewSearchExecutor(
		services.NewSerpAPIProvider(searchClient, cfg.SearchAPIKey()),
		services.SearchOptions{Language: cfg.Search.Language, Region: cfg.Search.Region, NumResults: cfg.Search.NumResults},
		logger.Component(zl, "search"),
	)

	synthesizer := services.NewAnswerSynthesizer(services.SynthesizerDeps{
		Retriever: services.NewRetriever(rt.embedder, rt.index, logger.Component(zl, "retriever")),
		Planner:   services.NewSearchPlanner(sessions, logger.Component(zl, "planner")),
		Executor:  executor,
		Sessions:  sessions,
		TopK:      cfg.Index.TopK,
		Logger:    logger.Component(zl, "synthesizer"),
	})
	orchestrator := services.NewModeOrchestrator(
		services.NewDomainClassifier(services.NewGeminiCompleter(geminiClient, cfg.Gemini.ClassifierModel), logger.Component(zl, "classifier")),
		synthesizer,
		logger.Component(zl, "orchestrator"),
	)

	legalController := controller.NewLegalController(
		orchestrator,
		services.NewFileExtractor(services.NewGeminiCompleter(geminiClient, cfg.Gemini.OCRModel)),
		repository.NewMemoryCaseRepository(),
		sessions,
		logger.Component(zl, "http"),
	)

	if c.Bool("watch") {
		indexer := rt.indexingService()
		go func() {
			if _, err := indexer.ScanAndIndexDirectory(ctx, cfg.Corpus.Dir); err != nil {
				zl.Error("initial corpus scan failed", zap.Error(err))
			}
			if err := indexer.WatchDirectory(ctx, cfg.Corpus.Dir); err != nil {
				zl.Error("corpus watcher stopped", zap.Error(err))
			}
		}()
	}

	router := controller.NewRouter(legalController)
	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Error("server shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("server starting", zap.String("addr", "http://localhost:"+cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func init() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
