package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("returns trimmed raw label", func(t *testing.T) {
		completer := replying("  Civil Law, Corporate Law\n")
		got := NewDomainClassifier(completer, nil).Classify(ctx, "breach of contract")

		assert.Equal(t, "Civil Law, Corporate Law", got)
		require.Len(t, completer.calls, 1)
		assert.Contains(t, completer.calls[0].Prompt, "breach of contract")
		assert.Contains(t, completer.calls[0].Prompt, "Cyber Law")
		assert.NotNil(t, completer.calls[0].Schema)
	})

	t.Run("joins schema labels", func(t *testing.T) {
		got := NewDomainClassifier(replying(`["Civil Law", " Environmental Law "]`), nil).Classify(ctx, "q")
		assert.Equal(t, "Civil Law, Environmental Law", got)
	})

	t.Run("falls back on empty label list", func(t *testing.T) {
		assert.Equal(t, FallbackDomain, NewDomainClassifier(replying("[]"), nil).Classify(ctx, "q"))
	})

	t.Run("falls back on error", func(t *testing.T) {
		assert.Equal(t, FallbackDomain, NewDomainClassifier(failing(), nil).Classify(ctx, "q"))
	})

	t.Run("falls back on blank output", func(t *testing.T) {
		assert.Equal(t, FallbackDomain, NewDomainClassifier(replying("   "), nil).Classify(ctx, "q"))
	})
}
