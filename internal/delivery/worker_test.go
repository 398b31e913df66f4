package delivery_test

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

	"skyfed/internal/delivery"
	"skyfed/internal/nats"
)

func newWorker(t *testing.T) *delivery.Worker {
	t.Helper()

	w := &delivery.Worker{Logger: slog.Default()}
	require.NoError(t, w.Init(context.Background()))
	t.Cleanup(func() { w.Shutdown(context.Background()) }) //nolint:errcheck

	return w
}

func TestWorker_Send(t *testing.T) {
	t.Parallel()

	t.Run("posts the activity", func(t *testing.T) {
		t.Parallel()

		var (
			contentType string
			body        map[string]any
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			data, _ := io.ReadAll(r.Body)
			json.Unmarshal(data, &body) //nolint:errcheck
			w.WriteHeader(http.StatusAccepted)
		}))
		t.Cleanup(srv.Close)

		retry, err := newWorker(t).Send(context.Background(), nats.Delivery{
			Inbox:    srv.URL + "/inbox",
			Activity: map[string]any{"type": "Create", "id": "https://local.example/posts/1/activity"},
		})
		require.NoError(t, err)
		assert.False(t, retry)

		assert.Equal(t, "application/activity+json", contentType)
		assert.Equal(t, "Create", body["type"])
	})

	statuses := map[string]struct {
		status int
		retry  bool
	}{
		"server error": {http.StatusBadGateway, true},
		"rate limited": {http.StatusTooManyRequests, true},
		"gone":         {http.StatusGone, false},
		"forbidden":    {http.StatusForbidden, false},
	}

	for name, tc := range statuses {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			t.Cleanup(srv.Close)

			retry, err := newWorker(t).Send(context.Background(), nats.Delivery{
				Inbox:    srv.URL,
				Activity: map[string]any{"type": "Create"},
			})
			require.Error(t, err)
			assert.Equal(t, tc.retry, retry)
		})
	}

	t.Run("unreachable inbox", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		retry, err := newWorker(t).Send(context.Background(), nats.Delivery{Inbox: url, Activity: map[string]any{}})
		require.Error(t, err)
		assert.True(t, retry)
	})
}
