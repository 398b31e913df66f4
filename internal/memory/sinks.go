package memory

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"skyfed/internal/core"
)

// Stream records published events and fans them out to in-process subscribers.
type Stream struct {
	mu     sync.Mutex
	events []core.StreamEvent
	subs   map[string][]chan core.StreamEvent
}

func (s *Stream) Publish(_ context.Context, actorID string, kind core.EventKind, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := core.StreamEvent{ActorID: actorID, Kind: kind, Payload: payload}
	s.events = append(s.events, event)

	for _, ch := range s.subs[actorID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (s *Stream) Subscribe(ctx context.Context, actorID string) (<-chan core.StreamEvent, error) {
	ch := make(chan core.StreamEvent, 64)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = map[string][]chan core.StreamEvent{}
	}
	s.subs[actorID] = append(s.subs[actorID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs[actorID] = lo.Without(s.subs[actorID], ch)
		close(ch)
	}()

	return ch, nil
}

// Events returns the events published to actorID so far.
func (s *Stream) Events(actorID string) []core.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lo.Filter(s.events, func(e core.StreamEvent, _ int) bool { return e.ActorID == actorID })
}

type Delivery struct {
	Inbox    string
	Activity map[string]any
}

// Deliveries records outbound activities instead of sending them.
type Deliveries struct {
	mu    sync.Mutex
	items []Delivery
}

func (d *Deliveries) Enqueue(_ context.Context, inbox string, activity map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items = append(d.items, Delivery{Inbox: inbox, Activity: activity})
	return nil
}

func (d *Deliveries) All() []Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Delivery(nil), d.items...)
}

// SearchIndex keeps the latest indexed text per id.
type SearchIndex struct {
	mu   sync.Mutex
	docs map[string]string
}

func (s *SearchIndex) Upsert(_ context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs == nil {
		s.docs = map[string]string{}
	}
	s.docs[id] = text
	return nil
}

func (s *SearchIndex) Get(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, ok := s.docs[id]
	return text, ok
}

type Ledger struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func (l *Ledger) Claim(_ context.Context, postID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.claimed == nil {
		l.claimed = map[string]bool{}
	}
	if l.claimed[postID] {
		return false, nil
	}
	l.claimed[postID] = true
	return true, nil
}

func (l *Ledger) Release(_ context.Context, postID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.claimed, postID)
	return nil
}

// CounterQueue applies adjustments on a background goroutine, like the NATS-backed worker does.
type CounterQueue struct {
	Store core.Store

	wg sync.WaitGroup
}

func (q *CounterQueue) Enqueue(_ context.Context, adjustment core.CounterAdjustment) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.Store.Posts().AdjustReactionCounter(context.Background(), adjustment.PostID, adjustment.Label, adjustment.Delta) //nolint:errcheck
	}()
	return nil
}

// Wait blocks until all enqueued adjustments are applied.
func (q *CounterQueue) Wait() {
	q.wg.Wait()
}
