package streaming_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyfed/internal/core"
	"skyfed/internal/memory"
	"skyfed/internal/streaming"
)

func TestHandler(t *testing.T) {
	t.Parallel()

	stream := &memory.Stream{}
	handler := &streaming.Handler{Logger: slog.Default(), Subscriber: stream}
	require.NoError(t, handler.Init(context.Background()))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conn, res, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(srv.URL, "http"),
		http.Header{"X-Actor-Id": []string{"alice"}},
	)
	require.NoError(t, err)
	defer res.Body.Close()
	defer conn.Close()

	require.NoError(t, stream.Publish(context.Background(), "bob", core.EventPost, "ignored"))
	require.NoError(t, stream.Publish(context.Background(), "alice", core.EventMention, map[string]string{"id": "p1"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))

	var event struct {
		ActorID string            `json:"actorId"`
		Kind    core.EventKind    `json:"kind"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, "alice", event.ActorID)
	assert.Equal(t, core.EventMention, event.Kind)
	assert.Equal(t, map[string]string{"id": "p1"}, event.Payload)
}
