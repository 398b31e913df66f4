package reactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skyfed/internal/core"
)

const maxLabelLen = 64

var reactionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "skyfed_reactions_processed_total",
	Help: "The total number of reaction transitions by operation and outcome",
}, []string{"operation", "outcome"})

// Machine moves (post, actor) pairs between "no active reaction" and "one active reaction".
type Machine struct {
	Logger *slog.Logger

	Store    core.Store
	Counters core.CounterQueue
	Stream   core.StreamSink
	Clock    core.Clock
}

func (m *Machine) Init(_ context.Context) error {
	m.Logger = m.Logger.With("component", "reactions.Machine")
	return nil
}

// React records a reaction. The counter is incremented with the reaction itself.
func (m *Machine) React(ctx context.Context, actorID, postID, label string) (err error) {
	defer func() { track("react", err) }()

	if n := utf8.RuneCountInString(label); n < 1 || n > maxLabelLen {
		return core.ErrInvalidReaction
	}

	if err := m.findActor(ctx, actorID); err != nil {
		return err
	}

	post, err := m.findPost(ctx, postID)
	if err != nil {
		return err
	}

	reaction := &core.ReactionModel{
		ID:        core.NewID(),
		PostID:    post.ID,
		ActorID:   actorID,
		Label:     label,
		CreatedAt: m.Clock.Now(),
	}

	err = m.Store.Reactions().Insert(ctx, reaction)
	if errors.Is(err, core.ErrUniqueViolation) {
		return core.ErrAlreadyReacted
	}
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}

	if post.AuthorID != actorID {
		m.notify(ctx, post, reaction)
	}
	return nil
}

// Unreact tombstones the active reaction. The counter decrement is queued and applied later.
func (m *Machine) Unreact(ctx context.Context, actorID, postID string) (err error) {
	defer func() { track("unreact", err) }()

	post, err := m.findPost(ctx, postID)
	if err != nil {
		return err
	}

	reaction, err := m.Store.Reactions().Tombstone(ctx, post.ID, actorID, m.Clock.Now())
	if errors.Is(err, core.ErrRecordNotFound) {
		return core.ErrNeverReacted
	}
	if err != nil {
		return fmt.Errorf("tombstone reaction: %w", err)
	}

	adjustment := core.CounterAdjustment{PostID: post.ID, Label: reaction.Label, Delta: -1}
	if err := m.Counters.Enqueue(ctx, adjustment); err != nil {
		// The tombstone is committed; a lost decrement only skews the counter.
		m.Logger.Error("failed to enqueue counter adjustment", "post", post.ID, "label", reaction.Label, "error", err)
	}
	return nil
}

func (m *Machine) findActor(ctx context.Context, actorID string) error {
	actor, err := m.Store.Actors().Find(ctx, actorID)
	if errors.Is(err, core.ErrRecordNotFound) {
		return core.ErrActorNotFound
	}
	if err != nil {
		return fmt.Errorf("find actor: %w", err)
	}
	if actor.DeletedAt != nil {
		return core.ErrActorNotFound
	}
	return nil
}

func (m *Machine) findPost(ctx context.Context, postID string) (*core.PostModel, error) {
	post, err := m.Store.Posts().Find(ctx, postID)
	if errors.Is(err, core.ErrRecordNotFound) {
		return nil, core.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if post.DeletedAt != nil {
		return nil, core.ErrPostNotFound
	}
	return post, nil
}

func (m *Machine) notify(ctx context.Context, post *core.PostModel, reaction *core.ReactionModel) {
	author, err := m.Store.Actors().Find(ctx, post.AuthorID)
	if err != nil || !author.IsLocal() {
		return
	}

	payload := map[string]string{
		"postId":  post.ID,
		"actorId": reaction.ActorID,
		"label":   reaction.Label,
	}
	if err := m.Stream.Publish(ctx, author.ID, core.EventReaction, payload); err != nil {
		m.Logger.Warn("failed to publish reaction notification", "post", post.ID, "error", err)
	}
}

func track(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = core.ReasonOf(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	reactionsProcessed.WithLabelValues(operation, outcome).Inc()
}
