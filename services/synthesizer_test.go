package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github/itish2003/legalrag/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSynthesizer(retriever Retriever, planner SearchPlanner, executor SearchExecutor, sender SessionSender) AnswerSynthesizer {
	return NewAnswerSynthesizer(SynthesizerDeps{
		Retriever: retriever,
		Planner:   planner,
		Executor:  executor,
		Sessions:  sender,
	})
}

func sourcesOf(n int, textLen int) []models.SearchResult {
	out := make([]models.SearchResult, n)
	for i := range out {
		out[i] = models.SearchResult{
			Text:  strings.Repeat(string(rune('a'+i)), textLen),
			URL:   fmt.Sprintf("https://example.com/%d", i+1),
			Query: "q",
		}
	}
	return out
}

func TestChatUsesRetrievedContext(t *testing.T) {
	retriever := &fakeRetriever{chunks: []models.ScoredChunk{
		{Chunk: models.DocumentChunk{Text: "Section 420 covers cheating."}},
		{Chunk: models.DocumentChunk{Text: "Punishment up to seven years."}},
	}}
	sender := &fakeSender{}
	synth := newTestSynthesizer(retriever, &fakePlanner{}, &fakeExecutor{}, sender)

	answer, err := synth.Chat(context.Background(), "s1", "What is section 420?")
	require.NoError(t, err)

	assert.Equal(t, "answer", answer)
	assert.NotContains(t, answer, "Sources:")
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, ModeChatbot, msg.mode)
	assert.Equal(t, "s1", msg.sessionID)
	assert.Contains(t, msg.prompt, "What is section 420?")
	assert.Contains(t, msg.prompt, "Section 420 covers cheating.\nPunishment up to seven years.")
}

func TestChatPropagatesRetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("%w: index down", ErrRetrievalUnavailable)}
	sender := &fakeSender{}
	synth := newTestSynthesizer(retriever, &fakePlanner{}, &fakeExecutor{}, sender)

	_, err := synth.Chat(context.Background(), "s1", "q")
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.Empty(t, sender.sent)
}

func TestResearchWithoutSearch(t *testing.T) {
	planner := &fakePlanner{needs: false}
	executor := &fakeExecutor{}
	sender := &fakeSender{}
	synth := newTestSynthesizer(&fakeRetriever{}, planner, executor, sender)

	answer, err := synth.Research(context.Background(), "s1", "What is a tort?")
	require.NoError(t, err)

	assert.Equal(t, "answer", answer)
	assert.False(t, planner.decomposed)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, ModeResearch, sender.sent[0].mode)
	assert.Equal(t, "What is a tort?", sender.sent[0].prompt)
}

func TestResearchWithNoSourcesAnswersDirectly(t *testing.T) {
	planner := &fakePlanner{needs: true, subQueries: []string{"a", "b", "c"}}
	executor := &fakeExecutor{batch: SearchBatch{Context: []string{}, Sources: []models.SearchResult{}}}
	sender := &fakeSender{}
	synth := newTestSynthesizer(&fakeRetriever{}, planner, executor, sender)

	answer, err := synth.Research(context.Background(), "s1", "latest GST changes")
	require.NoError(t, err)

	assert.Equal(t, "answer", answer)
	assert.NotContains(t, answer, "Sources:")
	assert.Equal(t, []string{"a", "b", "c"}, executor.got)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "latest GST changes", sender.sent[0].prompt)
}

func TestResearchWithSourcesCitesThree(t *testing.T) {
	planner := &fakePlanner{needs: true, subQueries: []string{"a", "b", "c"}}
	executor := &fakeExecutor{batch: SearchBatch{
		Context: []string{"- first block", "- second block"},
		Sources: sourcesOf(5, 150),
	}}
	sender := &fakeSender{}
	synth := newTestSynthesizer(&fakeRetriever{}, planner, executor, sender)

	answer, err := synth.Research(context.Background(), "s1", "latest GST changes")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	prompt := sender.sent[0].prompt
	assert.Contains(t, prompt, "- first block\n- second block")
	assert.Contains(t, prompt, `"latest GST changes"`)

	assert.True(t, strings.HasPrefix(answer, "answer\n\nSources:\n"))
	numbered := regexp.MustCompile(`(?m)^\d+\. `).FindAllString(answer, -1)
	assert.Len(t, numbered, MaxCitations)
	assert.Contains(t, answer, "1. https://example.com/1\n")
	assert.Contains(t, answer, "3. https://example.com/3\n")
	assert.NotContains(t, answer, "https://example.com/4")

	for _, m := range regexp.MustCompile(`Excerpt: (.*)\.\.\.`).FindAllStringSubmatch(answer, -1) {
		assert.LessOrEqual(t, len([]rune(m[1])), ExcerptLength)
	}
}

func TestResearchFollowUpSharesSessionConversation(t *testing.T) {
	const (
		first    = "What is the limitation period for breach of contract in California?"
		followUp = "And in Texas?"
	)
	factory := &fakeChatFactory{reply: func(_ Mode, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Should we search online?"):
			return "true", nil
		case strings.Contains(prompt, "Google search queries"):
			return `["limitation period breach of contract"]`, nil
		default:
			return "four years", nil
		}
	}}
	sessions := NewSessionRegistry(factory, time.Minute, time.Minute, nil)
	executor := &fakeExecutor{batch: SearchBatch{Context: []string{"- block"}, Sources: sourcesOf(1, 20)}}
	synth := newTestSynthesizer(&fakeRetriever{}, NewSearchPlanner(sessions, nil), executor, sessions)

	_, err := synth.Research(context.Background(), "s1", first)
	require.NoError(t, err)
	_, err = synth.Research(context.Background(), "s1", followUp)
	require.NoError(t, err)

	require.Len(t, factory.created, 1)
	prompts := factory.created[0].prompts
	require.Len(t, prompts, 6)

	// planning for the follow-up happens in the conversation that already
	// holds the first question and its answer
	assert.Contains(t, prompts[0], first)
	assert.Contains(t, prompts[1], first)
	assert.Contains(t, prompts[2], first)
	assert.Contains(t, prompts[3], "Should we search online?")
	assert.Contains(t, prompts[3], followUp)
	assert.Contains(t, prompts[4], followUp)
	assert.Contains(t, prompts[5], followUp)
}

func TestResearchSynthesisFailure(t *testing.T) {
	planner := &fakePlanner{needs: false}
	sender := &fakeSender{reply: func(Mode, string) (string, error) { return "", errBoom }}
	synth := newTestSynthesizer(&fakeRetriever{}, planner, &fakeExecutor{}, sender)

	_, err := synth.Research(context.Background(), "s1", "q")
	assert.ErrorIs(t, err, ErrSynthesis)
}

func TestDraft(t *testing.T) {
	sender := &fakeSender{}
	synth := newTestSynthesizer(&fakeRetriever{}, &fakePlanner{}, &fakeExecutor{}, sender)

	answer, err := synth.Draft(context.Background(), "s9", "eviction notice for unpaid rent")
	require.NoError(t, err)

	assert.Equal(t, "answer", answer)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, ModeDraft, sender.sent[0].mode)
	assert.Equal(t, "s9", sender.sent[0].sessionID)
	assert.Contains(t, sender.sent[0].prompt, "eviction notice for unpaid rent")
	assert.Contains(t, sender.sent[0].prompt, "without any other text")
}

func TestFormatCitations(t *testing.T) {
	t.Run("short excerpts kept whole", func(t *testing.T) {
		got := FormatCitations("Answer.", []models.SearchResult{{Text: "short", URL: "https://a"}})
		assert.Equal(t, "Answer.\n\nSources:\n1. https://a\n   Excerpt: short...", got)
	})

	t.Run("truncates on rune boundaries", func(t *testing.T) {
		text := strings.Repeat("é", ExcerptLength+20)
		got := FormatCitations("A", []models.SearchResult{{Text: text, URL: "https://a"}})
		assert.Contains(t, got, "Excerpt: "+strings.Repeat("é", ExcerptLength)+"...")
	})
}
