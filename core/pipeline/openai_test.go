package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  OpenAIEmbeddingModel,
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{0.25, 0.5, 0.75}},
			},
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing api key", func(t *testing.T) {
		_, err := OpenAIEmbedder(OpenAIConfig{})
		assert.Error(t, err)
	})

	t.Run("Embeds through the api", func(t *testing.T) {
		server := newEmbeddingServer(t, http.StatusOK)

		embedder, err := OpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
		require.NoError(t, err)

		embedding, err := embedder(ctx, "ヘルドボール")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.25, 0.5, 0.75}, embedding)
	})

	t.Run("Api failure is returned", func(t *testing.T) {
		server := newEmbeddingServer(t, http.StatusInternalServerError)

		embedder, err := OpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = embedder(ctx, "ヘルドボール")
		assert.Error(t, err)
	})
}
