package bluesky

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	bsky "github.com/bluesky-social/jetstream/pkg/client"
	"github.com/bluesky-social/jetstream/pkg/client/schedulers/sequential"
	"github.com/bluesky-social/jetstream/pkg/models"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/zhulik/pips"

	"skyfed/internal/config"
	"skyfed/internal/nats"
	"skyfed/pkg/retry"
)

const (
	defaultJetstreamURL = "wss://jetstream2.us-east.bsky.network/subscribe"
	cursorKey           = "bluesky_cursor"

	// CollectionPost is the only record collection the bridge consumes.
	CollectionPost = "app.bsky.feed.post"
)

// Subscriber reads Jetstream commits and resumes from the cursor kept in the state bucket.
type Subscriber struct {
	Logger *slog.Logger
	Config *config.Config
	NATS   *nats.NATS

	ch     chan pips.D[*models.Event]
	client *bsky.Client
	cursor atomic.Int64
}

func (s *Subscriber) Init(_ context.Context) error {
	var err error

	s.ch = make(chan pips.D[*models.Event])
	s.Logger = s.Logger.With("component", "bluesky.Subscriber")

	handler := sequential.NewScheduler("scheduler", s.Logger, func(ctx context.Context, event *models.Event) error {
		select {
		case s.ch <- pips.NewD(event):
			s.cursor.Store(event.TimeUS)
		case <-ctx.Done():
		}
		return nil
	})

	cfg := bsky.DefaultClientConfig()
	cfg.Compress = true
	cfg.WebsocketURL = defaultJetstreamURL
	if s.Config.BlueskyURL != "" {
		cfg.WebsocketURL = s.Config.BlueskyURL
	}
	cfg.WantedCollections = []string{CollectionPost}
	cfg.WantedDids = s.Config.BridgedDIDs()

	s.client, err = bsky.NewClient(cfg, s.Logger, handler)

	return err
}

func (s *Subscriber) Shutdown(_ context.Context) error {
	defer close(s.ch)
	return nil
}

func (s *Subscriber) Events() <-chan pips.D[*models.Event] {
	return s.ch
}

func (s *Subscriber) Run(ctx context.Context) error {
	if err := s.loadCursor(ctx); err != nil {
		return err
	}

	return retry.WrapWithRetry(func() error {
		cursor := s.cursor.Load()
		s.Logger.Info("connecting to Jetstream", "cursor", cursor)

		var err error
		if cursor > 0 {
			err = s.client.ConnectAndRead(ctx, &cursor)
		} else {
			err = s.client.ConnectAndRead(ctx, nil)
		}

		// A separate context because the original one will be canceled for shutdown.
		putCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err = errors.Join(err, s.saveCursor(putCtx))
		if ctx.Err() != nil {
			return nil
		}
		return err
	}, func(err error, _ int) bool {
		s.Logger.Warn("Jetstream connection lost", "error", err)
		return true
	}, 10, time.Second)()
}

func (s *Subscriber) loadCursor(ctx context.Context) error {
	entry, err := s.NATS.State.Get(ctx, cursorKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	cursor, err := DeserializeInt64(entry.Value())
	if err != nil {
		s.Logger.Warn("ignoring malformed cursor", "error", err)
		return nil
	}
	s.cursor.Store(cursor)
	return nil
}

func (s *Subscriber) saveCursor(ctx context.Context) error {
	cursor := s.cursor.Load()
	if cursor == 0 {
		return nil
	}
	_, err := s.NATS.State.Put(ctx, cursorKey, SerializeInt64(cursor))
	return err
}

func SerializeInt64(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

func DeserializeInt64(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}
