package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubbedSerpAPI(t *testing.T, query func(params map[string]string) (map[string]interface{}, error)) SearchProvider {
	t.Helper()
	p, ok := NewSerpAPIProvider(nil, "secret").(*serpAPIProvider)
	require.True(t, ok)
	p.query = query
	return p
}

func TestSerpAPIProvider(t *testing.T) {
	var got map[string]string
	p := stubbedSerpAPI(t, func(params map[string]string) (map[string]interface{}, error) {
		got = params
		return map[string]interface{}{
			"search_metadata": map[string]interface{}{"status": "Success"},
			"answer_box":      map[string]interface{}{"snippet": "boxed", "link": "https://a", "type": "organic_result"},
			"organic_results": []interface{}{
				map[string]interface{}{"position": 1, "title": "T", "snippet": "s1", "link": "https://b"},
				map[string]interface{}{"position": 2, "title": "U", "link": "https://c"},
			},
		}, nil
	})

	resp, err := p.Search(context.Background(), SearchRequest{Query: "eviction law", Language: "en", Region: "us", NumResults: 3})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"q": "eviction law", "hl": "en", "gl": "us", "num": "3"}, got)
	require.NotNil(t, resp.AnswerBox)
	assert.Equal(t, SearchItem{Snippet: "boxed", Link: "https://a"}, *resp.AnswerBox)
	assert.Equal(t, []SearchItem{
		{Title: "T", Snippet: "s1", Link: "https://b"},
		{Title: "U", Link: "https://c"},
	}, resp.OrganicResults)
}

func TestSerpAPIProviderWithoutResults(t *testing.T) {
	p := stubbedSerpAPI(t, func(map[string]string) (map[string]interface{}, error) {
		return map[string]interface{}{"search_metadata": map[string]interface{}{}}, nil
	})

	resp, err := p.Search(context.Background(), SearchRequest{Query: "x"})
	require.NoError(t, err)
	assert.Nil(t, resp.AnswerBox)
	assert.Empty(t, resp.OrganicResults)
}

func TestSerpAPIProviderErrors(t *testing.T) {
	t.Run("error field", func(t *testing.T) {
		p := stubbedSerpAPI(t, func(map[string]string) (map[string]interface{}, error) {
			return map[string]interface{}{"error": "Invalid API key."}, nil
		})
		_, err := p.Search(context.Background(), SearchRequest{Query: "x"})
		assert.ErrorContains(t, err, "Invalid API key")
	})

	t.Run("client failure", func(t *testing.T) {
		p := stubbedSerpAPI(t, func(map[string]string) (map[string]interface{}, error) {
			return nil, errBoom
		})
		_, err := p.Search(context.Background(), SearchRequest{Query: "x"})
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		called := false
		p := stubbedSerpAPI(t, func(map[string]string) (map[string]interface{}, error) {
			called = true
			return nil, nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.Search(ctx, SearchRequest{Query: "x"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}
