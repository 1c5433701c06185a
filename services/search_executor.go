package services

import (
	"context"
	"strings"

	"github/itish2003/legalrag/models"

	"go.uber.org/zap"
)

// SubQueryStatus describes how a single sub-query search ended.
type SubQueryStatus string

const (
	SubQueryOK    SubQueryStatus = "ok"
	SubQueryEmpty SubQueryStatus = "empty"
	SubQueryError SubQueryStatus = "error"
)

// SubQueryOutcome is the result of searching one sub-query.
type SubQueryOutcome struct {
	Query   string
	Status  SubQueryStatus
	Sources []models.SearchResult
	Err     error
}

// SearchBatch aggregates every sub-query of a research request. Context
// holds one block per sub-query that produced sources; Sources is the flat
// list in the same order.
type SearchBatch struct {
	Context  []string
	Sources  []models.SearchResult
	Outcomes []SubQueryOutcome
}

// SearchExecutor runs sub-queries against the search provider.
type SearchExecutor interface {
	Execute(ctx context.Context, subQueries []string) SearchBatch
}

// SearchOptions are fixed per deployment.
type SearchOptions struct {
	Language   string
	Region     string
	NumResults int
}

type searchExecutorImpl struct {
	provider SearchProvider
	opts     SearchOptions
	logger   *zap.Logger
}

func NewSearchExecutor(provider SearchProvider, opts SearchOptions, logger *zap.Logger) SearchExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Region == "" {
		opts.Region = "us"
	}
	if opts.NumResults <= 0 {
		opts.NumResults = 3
	}
	return &searchExecutorImpl{provider: provider, opts: opts, logger: logger}
}

// Execute searches each sub-query in order, one at a time. A failing or
// empty sub-query is recorded in Outcomes and contributes nothing; it never
// aborts the batch.
func (e *searchExecutorImpl) Execute(ctx context.Context, subQueries []string) SearchBatch {
	batch := SearchBatch{
		Context:  []string{},
		Sources:  []models.SearchResult{},
		Outcomes: make([]SubQueryOutcome, 0, len(subQueries)),
	}

	for _, q := range subQueries {
		outcome := e.searchOne(ctx, q)
		batch.Outcomes = append(batch.Outcomes, outcome)
		if outcome.Status != SubQueryOK {
			continue
		}
		lines := make([]string, len(outcome.Sources))
		for i, s := range outcome.Sources {
			lines[i] = "- " + s.Text
		}
		batch.Context = append(batch.Context, strings.Join(lines, "\n"))
		batch.Sources = append(batch.Sources, outcome.Sources...)
	}

	e.logger.Info("search batch finished",
		zap.Int("sub_queries", len(subQueries)),
		zap.Int("blocks", len(batch.Context)),
		zap.Int("sources", len(batch.Sources)))
	return batch
}

func (e *searchExecutorImpl) searchOne(ctx context.Context, query string) SubQueryOutcome {
	resp, err := e.provider.Search(ctx, SearchRequest{
		Query:      query,
		Language:   e.opts.Language,
		Region:     e.opts.Region,
		NumResults: e.opts.NumResults,
	})
	if err != nil {
		e.logger.Warn("sub-query search failed, skipping", zap.String("query", query), zap.Error(err))
		return SubQueryOutcome{Query: query, Status: SubQueryError, Err: err}
	}
	if resp == nil {
		return SubQueryOutcome{Query: query, Status: SubQueryEmpty}
	}

	var sources []models.SearchResult
	if box := resp.AnswerBox; box != nil && box.Snippet != "" && box.Link != "" {
		sources = append(sources, models.SearchResult{Text: box.Snippet, URL: box.Link, Query: query})
	}
	for _, r := range resp.OrganicResults {
		if r.Snippet != "" && r.Link != "" {
			sources = append(sources, models.SearchResult{Text: r.Snippet, URL: r.Link, Query: query})
		}
	}
	if len(sources) == 0 {
		return SubQueryOutcome{Query: query, Status: SubQueryEmpty}
	}
	return SubQueryOutcome{Query: query, Status: SubQueryOK, Sources: sources}
}
