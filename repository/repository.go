package repository

import (
	"context"
	"errors"

	"github/itish2003/legalrag/models"
)

var (
	ErrCaseNotFound = errors.New("case not found")
	ErrChatNotFound = errors.New("chat not found")
)

// CaseRepository stores cases and their chats. The answering pipeline never
// touches it; only the HTTP layer records bookkeeping through it.
type CaseRepository interface {
	CreateCase(ctx context.Context) (*models.Case, error)
	ListCases(ctx context.Context) ([]models.Case, error)
	GetCase(ctx context.Context, caseID string) (*models.Case, error)
	CreateChat(ctx context.Context, caseID, chatType string) (*models.Chat, error)
	ClearCase(ctx context.Context, caseID string) error
	AppendMessages(ctx context.Context, caseID, chatID string, msgs ...models.Message) error
}
