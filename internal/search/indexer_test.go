package search_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyfed/internal/config"
	"skyfed/internal/search"
)

func newIndexer(t *testing.T, handler http.HandlerFunc) *search.Indexer {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	indexer := &search.Indexer{
		Logger: slog.Default(),
		Config: &config.Config{SearchURL: srv.URL, SearchIndex: "posts"},
	}
	require.NoError(t, indexer.Init(context.Background()))
	t.Cleanup(func() { indexer.Shutdown(context.Background()) }) //nolint:errcheck

	return indexer
}

func TestIndexer_Upsert(t *testing.T) {
	t.Parallel()

	t.Run("puts the document", func(t *testing.T) {
		t.Parallel()

		var (
			method, path string
			doc          map[string]string
		)
		indexer := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
			method, path = r.Method, r.URL.Path
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &doc) //nolint:errcheck
			w.WriteHeader(http.StatusCreated)
		})

		require.NoError(t, indexer.Upsert(context.Background(), "p1", "hello #go"))

		assert.Equal(t, http.MethodPut, method)
		assert.Equal(t, "/posts/_doc/p1", path)
		assert.Equal(t, map[string]string{"text": "hello #go"}, doc)
	})

	t.Run("reports failures", func(t *testing.T) {
		t.Parallel()

		indexer := newIndexer(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "mapping conflict", http.StatusBadRequest)
		})

		err := indexer.Upsert(context.Background(), "p1", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
	})
}
