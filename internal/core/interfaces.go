package core

import (
	"context"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/zhulik/pips"
)

type PostRepository interface {
	Find(ctx context.Context, id string) (*PostModel, error)
	FindByURI(ctx context.Context, uri string) (*PostModel, error)
	// FindMostRecent returns nil without error when the author has no posts.
	FindMostRecent(ctx context.Context, authorID string) (*PostModel, error)
	// Insert stores the post only if the author's latest post is still predecessorID
	// ("" meaning none); otherwise it returns ErrPredecessorChanged.
	Insert(ctx context.Context, post *PostModel, predecessorID string) error
	// MarkDeleted reports false when the post was already deleted.
	MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error)
	AdjustReactionCounter(ctx context.Context, id, label string, delta int64) error
	ReactionCounts(ctx context.Context, id string) (map[string]int64, error)
}

type ActorRepository interface {
	Find(ctx context.Context, id string) (*ActorModel, error)
	FindByURI(ctx context.Context, uri string) (*ActorModel, error)
	FindByAcct(ctx context.Context, username, host string) (*ActorModel, error)
	// EnsureRemote returns the stored actor with the same URI or inserts the given one.
	EnsureRemote(ctx context.Context, actor *ActorModel) (*ActorModel, error)
	MarkDeleted(ctx context.Context, id string, at time.Time) (bool, error)
}

type ChannelRepository interface {
	Find(ctx context.Context, id string) (*ChannelModel, error)
}

type MediaRepository interface {
	// FindOwned returns the files among ids that belong to ownerID, in ids order.
	FindOwned(ctx context.Context, ownerID string, ids []string) ([]MediaModel, error)
	// Register stores files hosted elsewhere, such as the attachments of remote posts.
	Register(ctx context.Context, media []MediaModel) error
}

type FollowRepository interface {
	// Follow reports false when the edge already existed.
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	Request(ctx context.Context, req FollowRequestModel) (bool, error)
	CancelRequest(ctx context.Context, followerID, followeeID string) (bool, error)
	RemoteFollowers(ctx context.Context, followeeID string) ([]ActorModel, error)
}

type ReactionRepository interface {
	// Insert returns ErrUniqueViolation when an active reaction already exists.
	// The post's counter for the label is incremented in the same transaction.
	Insert(ctx context.Context, reaction *ReactionModel) error
	// Tombstone marks the active reaction deleted and returns it, or ErrRecordNotFound.
	Tombstone(ctx context.Context, postID, actorID string, at time.Time) (*ReactionModel, error)
}

// Store bundles every repository the core touches.
type Store interface {
	Posts() PostRepository
	Actors() ActorRepository
	Channels() ChannelRepository
	Media() MediaRepository
	Follows() FollowRepository
	Reactions() ReactionRepository
}

type StreamSink interface {
	Publish(ctx context.Context, actorID string, kind EventKind, payload any) error
}

type StreamSubscriber interface {
	// Subscribe delivers the actor's events until ctx is done.
	Subscribe(ctx context.Context, actorID string) (<-chan StreamEvent, error)
}

// DeliveryQueue hands activities to the outbound transport. Retries are the transport's concern.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, inbox string, activity map[string]any) error
}

type SearchIndex interface {
	Upsert(ctx context.Context, id, text string) error
}

type CounterQueue interface {
	Enqueue(ctx context.Context, adjustment CounterAdjustment) error
}

type DistributionLedger interface {
	// Claim reports true the first time it is called for postID.
	Claim(ctx context.Context, postID string) (bool, error)
	// Release drops a claim so that a failed distribution can be run again.
	Release(ctx context.Context, postID string) error
}

type FollowPolicy interface {
	RequiresApproval(ctx context.Context, followee *ActorModel) bool
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// LockedPolicy requires approval for actors flagged as locked.
type LockedPolicy struct{}

func (LockedPolicy) RequiresApproval(_ context.Context, followee *ActorModel) bool {
	return followee.Locked
}

// MessageConsumer feeds the messages of a durable queue consumer into a pipeline. The pipeline acks them.
type MessageConsumer interface {
	ConsumeToPipeline(ctx context.Context, consumer string, pipeline *pips.Pipeline[jetstream.Msg, any]) error
}
