package services

import (
	"context"
	"fmt"
	"strings"

	"github/itish2003/legalrag/models"

	"go.uber.org/zap"
)

const (
	// MaxCitations is the number of sources listed under a research answer.
	MaxCitations = 3
	// ExcerptLength is the maximum number of characters quoted per source.
	ExcerptLength = 100
)

// AnswerSynthesizer turns evidence and a query into the final answer for
// each mode. Every call names the conversation it belongs to.
type AnswerSynthesizer interface {
	Chat(ctx context.Context, sessionID, query string) (string, error)
	Research(ctx context.Context, sessionID, query string) (string, error)
	Draft(ctx context.Context, sessionID, query string) (string, error)
}

type synthesizerImpl struct {
	retriever Retriever
	planner   SearchPlanner
	executor  SearchExecutor
	sessions  SessionSender
	topK      int
	logger    *zap.Logger
}

// SynthesizerDeps are the collaborators of NewAnswerSynthesizer.
type SynthesizerDeps struct {
	Retriever Retriever
	Planner   SearchPlanner
	Executor  SearchExecutor
	Sessions  SessionSender
	TopK      int
	Logger    *zap.Logger
}

func NewAnswerSynthesizer(deps SynthesizerDeps) AnswerSynthesizer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.TopK <= 0 {
		deps.TopK = DefaultTopK
	}
	return &synthesizerImpl{
		retriever: deps.Retriever,
		planner:   deps.Planner,
		executor:  deps.Executor,
		sessions:  deps.Sessions,
		topK:      deps.TopK,
		logger:    deps.Logger,
	}
}

// Chat answers from the local knowledge base.
func (s *synthesizerImpl) Chat(ctx context.Context, sessionID, query string) (string, error) {
	chunks, err := s.retriever.Retrieve(ctx, query, s.topK)
	if err != nil {
		return "", err
	}
	return s.send(ctx, ModeChatbot, sessionID, chatbotPrompt(query, chunks))
}

// Research escalates to web search when the planner asks for it. Without
// usable sources the bare query is answered from the model's own knowledge.
func (s *synthesizerImpl) Research(ctx context.Context, sessionID, query string) (string, error) {
	// The explicit history starts empty on every request. Earlier requests
	// reach the planner and the answer through the session's conversation.
	history := []models.ConversationTurn{{Role: models.RoleUser, Content: query}}

	if !s.planner.NeedsSearch(ctx, sessionID, query, history) {
		s.logger.Debug("search not needed", zap.String("session_id", sessionID))
		return s.send(ctx, ModeResearch, sessionID, query)
	}

	subQueries := s.planner.Decompose(ctx, sessionID, query, history)
	batch := s.executor.Execute(ctx, subQueries)
	if len(batch.Sources) == 0 {
		s.logger.Info("search produced no sources, answering directly",
			zap.String("session_id", sessionID), zap.Int("sub_queries", len(subQueries)))
		return s.send(ctx, ModeResearch, sessionID, query)
	}

	answer, err := s.send(ctx, ModeResearch, sessionID, researchPrompt(query, batch.Context, lastTurns(history, needsSearchHistoryTurns)))
	if err != nil {
		return "", err
	}
	return FormatCitations(answer, batch.Sources), nil
}

// Draft produces a legal notice from the requirements in query.
func (s *synthesizerImpl) Draft(ctx context.Context, sessionID, query string) (string, error) {
	return s.send(ctx, ModeDraft, sessionID, draftPrompt(query))
}

func (s *synthesizerImpl) send(ctx context.Context, mode Mode, sessionID, prompt string) (string, error) {
	text, err := s.sessions.Send(ctx, mode, sessionID, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return text, nil
}

// FormatCitations appends the first MaxCitations sources to answer, each with
// its URL and a short excerpt.
func FormatCitations(answer string, sources []models.SearchResult) string {
	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nSources:\n")
	for i, src := range sources {
		if i == MaxCitations {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, src.URL)
		fmt.Fprintf(&b, "   Excerpt: %s...\n\n", truncateRunes(src.Text, ExcerptLength))
	}
	return strings.TrimRight(b.String(), " \t\r\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
