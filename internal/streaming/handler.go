package streaming

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skyfed/internal/core"
)

const (
	actorIDHeader = "X-Actor-Id"

	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

var connections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "skyfed_stream_connections",
	Help: "The number of open live stream connections",
})

// Handler upgrades the request to a websocket and forwards the actor's events until
// either side goes away.
type Handler struct {
	Logger     *slog.Logger
	Subscriber core.StreamSubscriber

	upgrader websocket.Upgrader
}

func (h *Handler) Init(_ context.Context) error {
	h.Logger = h.Logger.With("component", "streaming.Handler")
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actorID := r.Header.Get(actorIDHeader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := h.Subscriber.Subscribe(ctx, actorID)
	if err != nil {
		h.Logger.Error("failed to subscribe", "actor", actorID, "error", err)
		http.Error(w, `{"error": "stream unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Debug("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connections.Inc()
	defer connections.Dec()

	// Reads only detect the peer closing; clients send nothing meaningful.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}

		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := conn.WriteJSON(event); err != nil {
				h.Logger.Debug("stream write failed", "actor", actorID, "error", err)
				return
			}
		}
	}
}
