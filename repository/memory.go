package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github/itish2003/legalrag/models"

	"github.com/google/uuid"
)

type memoryCaseRepository struct {
	mu    sync.RWMutex
	cases []*models.Case
}

// NewMemoryCaseRepository returns a process-local CaseRepository.
func NewMemoryCaseRepository() CaseRepository {
	return &memoryCaseRepository{}
}

func (r *memoryCaseRepository) CreateCase(_ context.Context) (*models.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &models.Case{
		ID:    uuid.New().String(),
		Name:  fmt.Sprintf("Case #%d", len(r.cases)+1),
		Chats: []models.Chat{},
	}
	r.cases = append(r.cases, c)
	return copyCase(c), nil
}

func (r *memoryCaseRepository) ListCases(_ context.Context) ([]models.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Case, 0, len(r.cases))
	for _, c := range r.cases {
		out = append(out, *copyCase(c))
	}
	return out, nil
}

func (r *memoryCaseRepository) GetCase(_ context.Context, caseID string) (*models.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.find(caseID)
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return copyCase(c), nil
}

func (r *memoryCaseRepository) CreateChat(_ context.Context, caseID, chatType string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.find(caseID)
	if c == nil {
		return nil, ErrCaseNotFound
	}
	if chatType == "" {
		chatType = "chat"
	}
	chat := models.Chat{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("%s %d", capitalize(chatType), len(c.Chats)+1),
		Type:     chatType,
		Messages: []models.Message{},
	}
	c.Chats = append(c.Chats, chat)
	return &chat, nil
}

func (r *memoryCaseRepository) ClearCase(_ context.Context, caseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.find(caseID)
	if c == nil {
		return ErrCaseNotFound
	}
	c.Chats = []models.Chat{}
	return nil
}

func (r *memoryCaseRepository) AppendMessages(_ context.Context, caseID, chatID string, msgs ...models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.find(caseID)
	if c == nil {
		return ErrCaseNotFound
	}
	for i := range c.Chats {
		if c.Chats[i].ID == chatID {
			c.Chats[i].Messages = append(c.Chats[i].Messages, msgs...)
			return nil
		}
	}
	return ErrChatNotFound
}

// find must be called with r.mu held.
func (r *memoryCaseRepository) find(caseID string) *models.Case {
	for _, c := range r.cases {
		if c.ID == caseID {
			return c
		}
	}
	return nil
}

func copyCase(c *models.Case) *models.Case {
	out := &models.Case{ID: c.ID, Name: c.Name, Chats: make([]models.Chat, len(c.Chats))}
	for i, chat := range c.Chats {
		chat.Messages = append([]models.Message(nil), chat.Messages...)
		if chat.Messages == nil {
			chat.Messages = []models.Message{}
		}
		out.Chats[i] = chat
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
