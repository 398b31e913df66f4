package core

import (
	"time"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

// ActorModel is a local or remote identity. Host is empty for local actors.
type ActorModel struct {
	ID          string `gorm:"primaryKey"`
	Username    string `gorm:"uniqueIndex:idx_actor_acct"`
	Host        string `gorm:"uniqueIndex:idx_actor_acct"`
	URI         string `gorm:"uniqueIndex"`
	Inbox       string
	SharedInbox string
	Locked      bool

	// LatestPostID is the compare-and-swap anchor for publication.
	LatestPostID *string

	CreatedAt time.Time
	DeletedAt *time.Time
}

func (ActorModel) TableName() string {
	return "actors"
}

func (a *ActorModel) IsLocal() bool {
	return a.Host == ""
}

// Acct renders the handle the way mentions reference it: "alice" or "alice@example.com".
func (a *ActorModel) Acct() string {
	return Acct(a.Username, a.Host)
}

// DeliveryInbox prefers the shared inbox of the remote instance.
func (a *ActorModel) DeliveryInbox() string {
	if a.SharedInbox != "" {
		return a.SharedInbox
	}
	return a.Inbox
}

func Acct(username, host string) string {
	if host == "" {
		return username
	}
	return username + "@" + host
}

type PollChoice struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	Choices []PollChoice `json:"choices"`
}

// PostModel is a stored content node.
type PostModel struct {
	ID         string     `gorm:"primaryKey"`
	URI        *string    `gorm:"uniqueIndex"`
	AuthorID   string     `gorm:"index"`
	Visibility Visibility
	Text       *string
	CW         *string

	Tags              []string `gorm:"serializer:json"`
	MediaIDs          []string `gorm:"serializer:json"`
	Mentions          []string `gorm:"serializer:json"`
	MentionedActorIDs []string `gorm:"serializer:json"`
	Poll              *Poll    `gorm:"serializer:json"`

	ReplyID   *string `gorm:"index"`
	RepostID  *string `gorm:"index"`
	ChannelID *string `gorm:"index"`

	CreatedAt time.Time
	DeletedAt *time.Time
}

func (PostModel) TableName() string {
	return "posts"
}

func (p *PostModel) HasText() bool {
	return p.Text != nil && *p.Text != ""
}

// IsPlainRepost reports whether the post is a repost without text or media of its own.
func (p *PostModel) IsPlainRepost() bool {
	return p.RepostID != nil && !p.HasText() && len(p.MediaIDs) == 0
}

func (p *PostModel) IsQuote() bool {
	return p.RepostID != nil && !p.IsPlainRepost()
}

// ReactionModel is a reaction with an optional tombstone.
type ReactionModel struct {
	ID        string `gorm:"primaryKey"`
	PostID    string `gorm:"uniqueIndex:idx_active_reaction,where:deleted_at IS NULL"`
	ActorID   string `gorm:"uniqueIndex:idx_active_reaction,where:deleted_at IS NULL"`
	Label     string
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (ReactionModel) TableName() string {
	return "reactions"
}

type ReactionCounterModel struct {
	PostID string `gorm:"primaryKey"`
	Label  string `gorm:"primaryKey"`
	Count  int64
}

func (ReactionCounterModel) TableName() string {
	return "reaction_counters"
}

type FollowingModel struct {
	FollowerID string `gorm:"primaryKey"`
	FolloweeID string `gorm:"primaryKey;index"`
	CreatedAt  time.Time
}

func (FollowingModel) TableName() string {
	return "followings"
}

// FollowRequestModel is a follow held for approval by a locked followee.
type FollowRequestModel struct {
	FollowerID  string `gorm:"primaryKey"`
	FolloweeID  string `gorm:"primaryKey"`
	ActivityURI string
	CreatedAt   time.Time
}

func (FollowRequestModel) TableName() string {
	return "follow_requests"
}

type ChannelModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
}

func (ChannelModel) TableName() string {
	return "channels"
}

// MediaModel is an uploaded file attachable to posts by its owner.
type MediaModel struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"index"`
	URL       string
	Type      string
	CreatedAt time.Time
}

func (MediaModel) TableName() string {
	return "media"
}

// CounterAdjustment is a queued change of a post's reaction counter.
type CounterAdjustment struct {
	PostID string `cbor:"1,keyasint"`
	Label  string `cbor:"2,keyasint"`
	Delta  int64  `cbor:"3,keyasint"`
}

type EventKind string

const (
	EventPost     EventKind = "post"
	EventMention  EventKind = "mention"
	EventReply    EventKind = "reply"
	EventRepost   EventKind = "repost"
	EventQuote    EventKind = "quote"
	EventReaction EventKind = "reaction"
	EventFollowed EventKind = "followed"
)

// StreamEvent is the envelope published to an actor's live stream.
type StreamEvent struct {
	ActorID string    `json:"actorId"`
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload"`
}
