package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// SessionSender routes a prompt to the conversation identified by mode and
// session ID.
type SessionSender interface {
	Send(ctx context.Context, mode Mode, sessionID, prompt string) (string, error)
}

type lockedSession struct {
	mu   sync.Mutex
	chat ChatSession
}

// SessionRegistry keeps one generator conversation per (mode, session ID).
// Conversations idle for longer than the TTL are dropped. Messages sent to
// the same conversation are serialized.
type SessionRegistry struct {
	factory ChatFactory
	cache   *cache.Cache
	mu      sync.Mutex
	logger  *zap.Logger
}

func NewSessionRegistry(factory ChatFactory, ttl, cleanupInterval time.Duration, logger *zap.Logger) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		factory: factory,
		cache:   cache.New(ttl, cleanupInterval),
		logger:  logger,
	}
}

func (r *SessionRegistry) Send(ctx context.Context, mode Mode, sessionID, prompt string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	s, err := r.session(ctx, mode, sessionID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.SendMessage(ctx, prompt)
}

// Forget drops the conversation so the next message starts a new one.
func (r *SessionRegistry) Forget(mode Mode, sessionID string) {
	r.cache.Delete(sessionKey(mode, sessionID))
}

// Len reports the number of live conversations.
func (r *SessionRegistry) Len() int {
	return r.cache.ItemCount()
}

func (r *SessionRegistry) session(ctx context.Context, mode Mode, sessionID string) (*lockedSession, error) {
	key := sessionKey(mode, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(key); found {
		s := x.(*lockedSession)
		// refresh the idle timer
		r.cache.Set(key, s, cache.DefaultExpiration)
		return s, nil
	}

	chat, err := r.factory.NewChat(ctx, mode)
	if err != nil {
		return nil, err
	}
	s := &lockedSession{chat: chat}
	r.cache.Set(key, s, cache.DefaultExpiration)
	r.logger.Info("started generator session", zap.String("mode", string(mode)), zap.String("session_id", sessionID))
	return s, nil
}

func sessionKey(mode Mode, sessionID string) string {
	return string(mode) + ":" + sessionID
}

var _ SessionSender = (*SessionRegistry)(nil)
