package nats

import (
	"context"
	"encoding/json"

	libnats "github.com/nats-io/nats.go"

	"skyfed/internal/core"
)

// Stream publishes actor events on per-actor core NATS subjects. Events are live only:
// subscribers see what is published while they are connected.
type Stream struct {
	NATS *NATS
}

func (s *Stream) Publish(_ context.Context, actorID string, kind core.EventKind, payload any) error {
	data, err := json.Marshal(core.StreamEvent{ActorID: actorID, Kind: kind, Payload: payload})
	if err != nil {
		return err
	}
	return s.NATS.Conn.Publish(subjectStream+actorID, data)
}

// Subscriptions delivers an actor's events to a live listener.
type Subscriptions struct {
	NATS *NATS
}

func (s *Subscriptions) Subscribe(ctx context.Context, actorID string) (<-chan core.StreamEvent, error) {
	msgs := make(chan *libnats.Msg, 64)

	sub, err := s.NATS.Conn.ChanSubscribe(subjectStream+actorID, msgs)
	if err != nil {
		return nil, err
	}

	events := make(chan core.StreamEvent)

	go func() {
		defer close(events)
		defer sub.Unsubscribe() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				var event core.StreamEvent
				if err := json.Unmarshal(msg.Data, &event); err != nil {
					s.NATS.Logger.Warn("dropping malformed stream event", "actor", actorID, "error", err)
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
