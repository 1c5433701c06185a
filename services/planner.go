package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github/itish2003/legalrag/models"

	"go.uber.org/zap"
)

const (
	MinSubQueries = 3
	MaxSubQueries = 5

	// history windows shown to each planning prompt
	needsSearchHistoryTurns = 3
	decomposeHistoryTurns   = 2

	// FallbackRecencySuffix and FallbackChangesPrefix build the sub-queries
	// used when decomposition fails.
	FallbackRecencySuffix = " 2023 OR 2024"
	FallbackChangesPrefix = "Recent changes to "
)

// FallbackSubQueries is the deterministic decomposition used when the
// generator cannot produce one.
func FallbackSubQueries(query string) []string {
	return []string{query + FallbackRecencySuffix, FallbackChangesPrefix + query}
}

// SearchPlanner decides whether a query needs live search and splits it into
// searchable sub-queries. Both steps run inside the session's research
// conversation, so earlier requests of the session inform the decision.
// Neither step fails: errors resolve to a search (fail-open) and to
// FallbackSubQueries respectively.
type SearchPlanner interface {
	NeedsSearch(ctx context.Context, sessionID, query string, history []models.ConversationTurn) bool
	Decompose(ctx context.Context, sessionID, query string, history []models.ConversationTurn) []string
}

type plannerImpl struct {
	sessions SessionSender
	logger   *zap.Logger
}

func NewSearchPlanner(sessions SessionSender, logger *zap.Logger) SearchPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &plannerImpl{sessions: sessions, logger: logger}
}

type searchDecision struct {
	NeedsSearch *bool `json:"needs_search"`
}

func (p *plannerImpl) NeedsSearch(ctx context.Context, sessionID, query string, history []models.ConversationTurn) bool {
	out, err := p.sessions.Send(ctx, ModeResearch, sessionID, needsSearchPrompt(query, lastTurns(history, needsSearchHistoryTurns)))
	if err != nil {
		p.logger.Warn("search decision failed, searching anyway", zap.String("session_id", sessionID), zap.Error(err))
		return true
	}
	needed, err := parseSearchDecision(out)
	if err != nil {
		p.logger.Warn("unparseable search decision, searching anyway", zap.String("output", out), zap.Error(err))
		return true
	}
	return needed
}

func (p *plannerImpl) Decompose(ctx context.Context, sessionID, query string, history []models.ConversationTurn) []string {
	out, err := p.sessions.Send(ctx, ModeResearch, sessionID, decomposePrompt(query, lastTurns(history, decomposeHistoryTurns)))
	if err != nil {
		p.logger.Warn("query decomposition failed, using fallback queries", zap.String("session_id", sessionID), zap.Error(err))
		return FallbackSubQueries(query)
	}
	queries, err := parseSubQueries(out)
	if err != nil {
		p.logger.Warn("unparseable decomposition, using fallback queries", zap.String("output", out), zap.Error(err))
		return FallbackSubQueries(query)
	}
	return queries
}

// parseSearchDecision accepts a bare true/false answer and also a
// {"needs_search": bool} object.
func parseSearchDecision(out string) (bool, error) {
	cleaned := strings.ToLower(stripCodeFence(out))
	switch cleaned {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	var d searchDecision
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return false, err
	}
	if d.NeedsSearch == nil {
		return false, fmt.Errorf("needs_search missing")
	}
	return *d.NeedsSearch, nil
}

func parseSubQueries(out string) ([]string, error) {
	var raw []string
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &raw); err != nil {
		return nil, err
	}
	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no sub-queries returned")
	}
	if len(queries) > MaxSubQueries {
		queries = queries[:MaxSubQueries]
	}
	return queries, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
