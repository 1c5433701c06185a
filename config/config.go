package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	IndexBackendChroma = "chroma"
	IndexBackendFlat   = "flat"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// GeminiConfig selects the models behind each generator responsibility.
type GeminiConfig struct {
	APIKeyEnv       string `yaml:"api_key_env"`
	ChatModel       string `yaml:"chat_model"`
	ResearchModel   string `yaml:"research_model"`
	DraftModel      string `yaml:"draft_model"`
	ClassifierModel string `yaml:"classifier_model"`
	OCRModel        string `yaml:"ocr_model"`
}

// EmbedderConfig points at the Ollama embedding endpoint.
type EmbedderConfig struct {
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend    string `yaml:"backend"`
	ChromaURL  string `yaml:"chroma_url"`
	Collection string `yaml:"collection"`
	Path       string `yaml:"path"`
	TopK       int    `yaml:"top_k"`
}

// CorpusConfig controls how source documents are split at index-build time.
type CorpusConfig struct {
	Dir          string `yaml:"dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	Language    string `yaml:"language"`
	Region      string `yaml:"region"`
	NumResults  int    `yaml:"num_results"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SessionConfig bounds how long an idle conversation keeps its generator history.
type SessionConfig struct {
	TTLMinutes     int `yaml:"ttl_minutes"`
	CleanupMinutes int `yaml:"cleanup_minutes"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Index    IndexConfig    `yaml:"index"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Search   SearchConfig   `yaml:"search"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads the YAML config at path. A missing file yields the defaults.
// A .env file in the working directory is loaded first so that the API key
// variables named in the config are available.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Validate rejects configurations that cannot be started.
func (c *AppConfig) Validate() error {
	switch c.Index.Backend {
	case IndexBackendChroma, IndexBackendFlat:
	default:
		return fmt.Errorf("unknown index backend: %s", c.Index.Backend)
	}
	if c.Corpus.ChunkOverlap >= c.Corpus.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Corpus.ChunkOverlap, c.Corpus.ChunkSize)
	}
	return nil
}

// GeminiAPIKey resolves the Gemini key from the configured environment variable.
func (c *AppConfig) GeminiAPIKey() string {
	return os.Getenv(c.Gemini.APIKeyEnv)
}

// SearchAPIKey resolves the search provider key from the configured environment variable.
func (c *AppConfig) SearchAPIKey() string {
	return os.Getenv(c.Search.APIKeyEnv)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = getEnv("PORT", "8080")
	}

	if cfg.Gemini.APIKeyEnv == "" {
		cfg.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Gemini.ChatModel == "" {
		cfg.Gemini.ChatModel = "gemini-2.5-flash"
	}
	if cfg.Gemini.ResearchModel == "" {
		cfg.Gemini.ResearchModel = cfg.Gemini.ChatModel
	}
	if cfg.Gemini.DraftModel == "" {
		cfg.Gemini.DraftModel = cfg.Gemini.ChatModel
	}
	if cfg.Gemini.ClassifierModel == "" {
		cfg.Gemini.ClassifierModel = "gemini-2.5-flash-lite"
	}
	if cfg.Gemini.OCRModel == "" {
		cfg.Gemini.OCRModel = cfg.Gemini.ChatModel
	}

	if cfg.Embedder.Host == "" {
		cfg.Embedder.Host = getEnv("OLLAMA_HOST", "http://localhost:11434")
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "nomic-embed-text:v1.5"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = IndexBackendChroma
	}
	if cfg.Index.ChromaURL == "" {
		cfg.Index.ChromaURL = getEnv("CHROMA_URL", "http://localhost:8000")
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "legal-corpus"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "rag_components/index.json"
	}
	if cfg.Index.TopK <= 0 {
		cfg.Index.TopK = 3
	}

	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = getEnv("CORPUS_DIR", "corpus")
	}
	if cfg.Corpus.ChunkSize <= 0 {
		cfg.Corpus.ChunkSize = 1000
	}
	if cfg.Corpus.ChunkOverlap <= 0 {
		cfg.Corpus.ChunkOverlap = cfg.Corpus.ChunkSize / 10
	}

	if cfg.Search.APIKeyEnv == "" {
		cfg.Search.APIKeyEnv = "SERPAPI_API_KEY"
	}
	if cfg.Search.Language == "" {
		cfg.Search.Language = "en"
	}
	if cfg.Search.Region == "" {
		cfg.Search.Region = "us"
	}
	if cfg.Search.NumResults <= 0 {
		cfg.Search.NumResults = 3
	}
	if cfg.Search.TimeoutSecs == 0 {
		cfg.Search.TimeoutSecs = 30
	}

	if cfg.Session.TTLMinutes <= 0 {
		cfg.Session.TTLMinutes = 60
	}
	if cfg.Session.CleanupMinutes <= 0 {
		cfg.Session.CleanupMinutes = 10
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
