package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("reuses the conversation of a session", func(t *testing.T) {
		factory := &fakeChatFactory{}
		r := NewSessionRegistry(factory, time.Minute, time.Minute, nil)

		_, err := r.Send(ctx, ModeResearch, "a", "one")
		require.NoError(t, err)
		_, err = r.Send(ctx, ModeResearch, "a", "two")
		require.NoError(t, err)

		require.Len(t, factory.created, 1)
		assert.Equal(t, []string{"one", "two"}, factory.created[0].prompts)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("isolates sessions and modes", func(t *testing.T) {
		factory := &fakeChatFactory{}
		r := NewSessionRegistry(factory, time.Minute, time.Minute, nil)

		for _, call := range []struct {
			mode Mode
			id   string
		}{{ModeChatbot, "a"}, {ModeChatbot, "b"}, {ModeDraft, "a"}} {
			_, err := r.Send(ctx, call.mode, call.id, "hi")
			require.NoError(t, err)
		}

		assert.Len(t, factory.created, 3)
		assert.Equal(t, []Mode{ModeChatbot, ModeChatbot, ModeDraft}, factory.modes)
		assert.Equal(t, 3, r.Len())
	})

	t.Run("forget starts over", func(t *testing.T) {
		factory := &fakeChatFactory{}
		r := NewSessionRegistry(factory, time.Minute, time.Minute, nil)

		_, err := r.Send(ctx, ModeChatbot, "a", "one")
		require.NoError(t, err)
		r.Forget(ModeChatbot, "a")
		assert.Equal(t, 0, r.Len())

		_, err = r.Send(ctx, ModeChatbot, "a", "two")
		require.NoError(t, err)
		assert.Len(t, factory.created, 2)
	})

	t.Run("expired sessions are dropped", func(t *testing.T) {
		factory := &fakeChatFactory{}
		r := NewSessionRegistry(factory, 20*time.Millisecond, time.Hour, nil)

		_, err := r.Send(ctx, ModeChatbot, "a", "one")
		require.NoError(t, err)
		time.Sleep(40 * time.Millisecond)
		_, err = r.Send(ctx, ModeChatbot, "a", "two")
		require.NoError(t, err)

		assert.Len(t, factory.created, 2)
	})

	t.Run("activity keeps a session alive", func(t *testing.T) {
		factory := &fakeChatFactory{}
		r := NewSessionRegistry(factory, 300*time.Millisecond, time.Hour, nil)

		for i := 0; i < 4; i++ {
			_, err := r.Send(ctx, ModeResearch, "busy", "turn")
			require.NoError(t, err)
			time.Sleep(150 * time.Millisecond)
		}

		_, err := r.Send(ctx, ModeResearch, "idle", "one")
		require.NoError(t, err)
		time.Sleep(450 * time.Millisecond)
		_, err = r.Send(ctx, ModeResearch, "idle", "two")
		require.NoError(t, err)

		require.Len(t, factory.created, 3)
		assert.Len(t, factory.created[0].prompts, 4)
		assert.Equal(t, []string{"one"}, factory.created[1].prompts)
		assert.Equal(t, []string{"two"}, factory.created[2].prompts)
	})

	t.Run("factory failure", func(t *testing.T) {
		r := NewSessionRegistry(&fakeChatFactory{err: errBoom}, time.Minute, time.Minute, nil)

		_, err := r.Send(ctx, ModeChatbot, "a", "hi")
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("requires a session id", func(t *testing.T) {
		r := NewSessionRegistry(&fakeChatFactory{}, time.Minute, time.Minute, nil)

		_, err := r.Send(ctx, ModeChatbot, "", "hi")
		assert.Error(t, err)
	})

	t.Run("concurrent sends share one conversation", func(t *testing.T) {
		factory := &fakeChatFactory{}
		r := NewSessionRegistry(factory, time.Minute, time.Minute, nil)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = r.Send(ctx, ModeResearch, "shared", "hi")
			}()
		}
		wg.Wait()

		require.Len(t, factory.created, 1)
		assert.Len(t, factory.created[0].prompts, 20)
	})
}
