package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedBatch(t *testing.T) {
	var gotReq embedRequest
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := embedResponse{Embeddings: make([][]float32, len(gotReq.Input))}
		for i := range resp.Embeddings {
			resp.Embeddings[i] = []float32{float32(i), 1, 2}
		}
		json.NewEncoder(w).Encode(resp)
	})

	e := NewOllama(srv.URL, "nomic-embed-text", 3)
	vecs, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 1, 2}, vecs[0])
	assert.Equal(t, "nomic-embed-text", gotReq.Model)
	assert.Equal(t, []string{"alpha", "beta"}, gotReq.Input)
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewOllama("http://unused:1", "m", 3)
	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2, 3}}})
	})

	e := NewOllama(srv.URL, "m", 3)
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	var ee *Error
	assert.True(t, errors.As(err, &ee))
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2}}})
	})

	e := NewOllama(srv.URL, "m", 3)
	_, err := e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	var ee *Error
	assert.True(t, errors.As(err, &ee))
}

func TestEmbedServerError(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	e := NewOllama(srv.URL, "m", 3)
	_, err := e.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestEmbedSingle(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{7, 8, 9}}})
	})

	e := NewOllama(srv.URL, "m", 3)
	vec, err := e.EmbedSingle(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 8, 9}, vec)
}
