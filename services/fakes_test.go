package services

import (
	"context"
	"errors"
	"sync"

	"github/itish2003/legalrag/models"
)

var errBoom = errors.New("boom")

type fakeCompleter struct {
	mu    sync.Mutex
	fn    func(req CompletionRequest) (string, error)
	calls []CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fn == nil {
		return "", errBoom
	}
	return f.fn(req)
}

func replying(text string) *fakeCompleter {
	return &fakeCompleter{fn: func(CompletionRequest) (string, error) { return text, nil }}
}

func failing() *fakeCompleter {
	return &fakeCompleter{fn: func(CompletionRequest) (string, error) { return "", errBoom }}
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// textEmbedder maps known texts to vectors and everything else to fallback.
type textEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (t *textEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := t.vectors[text]; ok {
		return v, nil
	}
	return t.fallback, nil
}

type fakeIndex struct {
	results []models.ScoredChunk
	err     error
	gotK    int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]models.ScoredChunk, error) {
	f.gotK = k
	return f.results, f.err
}

type fakeSearchProvider struct {
	responses map[string]*SearchResponse
	errs      map[string]error
	calls     []SearchRequest
}

func (f *fakeSearchProvider) Search(_ context.Context, req SearchRequest) (*SearchResponse, error) {
	f.calls = append(f.calls, req)
	if err, ok := f.errs[req.Query]; ok {
		return nil, err
	}
	if resp, ok := f.responses[req.Query]; ok {
		return resp, nil
	}
	return &SearchResponse{}, nil
}

type fakeChat struct {
	mu      sync.Mutex
	reply   func(prompt string) (string, error)
	prompts []string
}

func (f *fakeChat) SendMessage(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.reply == nil {
		return "ok", nil
	}
	return f.reply(prompt)
}

type fakeChatFactory struct {
	mu      sync.Mutex
	err     error
	reply   func(mode Mode, prompt string) (string, error)
	created []*fakeChat
	modes   []Mode
}

func (f *fakeChatFactory) NewChat(_ context.Context, mode Mode) (ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	chat := &fakeChat{}
	if f.reply != nil {
		chat.reply = func(prompt string) (string, error) { return f.reply(mode, prompt) }
	}
	f.created = append(f.created, chat)
	f.modes = append(f.modes, mode)
	return chat, nil
}

type sentMessage struct {
	mode      Mode
	sessionID string
	prompt    string
}

type fakeSender struct {
	reply func(mode Mode, prompt string) (string, error)
	sent  []sentMessage
}

func (f *fakeSender) Send(_ context.Context, mode Mode, sessionID, prompt string) (string, error) {
	f.sent = append(f.sent, sentMessage{mode: mode, sessionID: sessionID, prompt: prompt})
	if f.reply == nil {
		return "answer", nil
	}
	return f.reply(mode, prompt)
}

func senderReplying(text string) *fakeSender {
	return &fakeSender{reply: func(Mode, string) (string, error) { return text, nil }}
}

func senderFailing() *fakeSender {
	return &fakeSender{reply: func(Mode, string) (string, error) { return "", errBoom }}
}

type fakePlanner struct {
	needs      bool
	subQueries []string
	decomposed bool
	sessionID  string
}

func (f *fakePlanner) NeedsSearch(_ context.Context, sessionID, _ string, _ []models.ConversationTurn) bool {
	f.sessionID = sessionID
	return f.needs
}

func (f *fakePlanner) Decompose(_ context.Context, sessionID, _ string, _ []models.ConversationTurn) []string {
	f.decomposed = true
	f.sessionID = sessionID
	return f.subQueries
}

type fakeExecutor struct {
	batch SearchBatch
	got   []string
}

func (f *fakeExecutor) Execute(_ context.Context, subQueries []string) SearchBatch {
	f.got = subQueries
	return f.batch
}

type fakeRetriever struct {
	chunks []models.ScoredChunk
	err    error
}

func (f *fakeRetriever) Retrieve(context.Context, string, int) ([]models.ScoredChunk, error) {
	return f.chunks, f.err
}

type fakeClassifier struct {
	label string
	calls []string
}

func (f *fakeClassifier) Classify(_ context.Context, query string) string {
	f.calls = append(f.calls, query)
	return f.label
}

type fakeSynthesizer struct {
	err   error
	calls []string
	query string
	sid   string
}

func (f *fakeSynthesizer) record(kind, sessionID, query string) (string, error) {
	f.calls = append(f.calls, kind)
	f.query, f.sid = query, sessionID
	if f.err != nil {
		return "", f.err
	}
	return kind + " answer", nil
}

func (f *fakeSynthesizer) Chat(_ context.Context, sessionID, query string) (string, error) {
	return f.record("chat", sessionID, query)
}

func (f *fakeSynthesizer) Research(_ context.Context, sessionID, query string) (string, error) {
	return f.record("research", sessionID, query)
}

func (f *fakeSynthesizer) Draft(_ context.Context, sessionID, query string) (string, error) {
	return f.record("draft", sessionID, query)
}

type fakeTranscriber struct {
	text     string
	mimeType string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, mimeType string) (string, error) {
	f.mimeType = mimeType
	return f.text, nil
}
