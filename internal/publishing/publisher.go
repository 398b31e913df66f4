package publishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"

	"skyfed/internal/core"
	"skyfed/internal/distribution"
)

// maxAttempts bounds re-evaluation when a concurrent publication by the same author wins the insert.
const maxAttempts = 3

var (
	postsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfed_posts_published_total",
		Help: "The total number of published posts",
	}, []string{"origin", "kind"})

	postsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfed_posts_rejected_total",
		Help: "The total number of rejected drafts by reason",
	}, []string{"kind", "reason"})
)

type Distributor interface {
	Distribute(ctx context.Context, author *core.ActorModel, post *core.PostModel) *distribution.PublicPost
}

type Publisher struct {
	Logger *slog.Logger

	Store       core.Store
	Distributor Distributor
	Clock       core.Clock
}

func (p *Publisher) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "publishing.Publisher")
	return nil
}

// Publish validates, stores and distributes a draft. Distribution continues after Publish returns.
func (p *Publisher) Publish(ctx context.Context, draft Draft) (*distribution.PublicPost, error) {
	post, author, err := p.store(ctx, draft)
	if err != nil {
		if kind, ok := core.KindOf(err); ok {
			postsRejected.WithLabelValues(string(kind), core.ReasonOf(err)).Inc()
		}
		return nil, err
	}

	postsPublished.WithLabelValues(origin(author), kindOf(post)).Inc()
	p.Logger.Debug("post published", "post", post.ID, "author", author.ID)

	return p.Distributor.Distribute(ctx, author, post), nil
}

func (p *Publisher) store(ctx context.Context, draft Draft) (*core.PostModel, *core.ActorModel, error) {
	resolver := &Resolver{Store: p.Store}

	for range maxAttempts {
		res, err := resolver.Resolve(ctx, draft)
		if err != nil {
			return nil, nil, err
		}

		content, err := Evaluate(draft, res)
		if err != nil {
			return nil, nil, err
		}

		mentioned, err := resolver.ResolveMentions(ctx, res.Author, content.Post.Mentions)
		if err != nil {
			return nil, nil, err
		}

		post := content.Post
		post.ID = core.NewID()
		post.CreatedAt = p.Clock.Now()
		post.MentionedActorIDs = lo.Map(mentioned, func(a core.ActorModel, _ int) string { return a.ID })

		err = p.Store.Posts().Insert(ctx, &post, res.predecessorID())
		if err == nil {
			return &post, res.Author, nil
		}
		if !errors.Is(err, core.ErrPredecessorChanged) {
			return nil, nil, fmt.Errorf("insert post: %w", err)
		}

		p.Logger.Debug("latest post changed during publication, retrying", "author", res.Author.ID)
	}

	return nil, nil, core.ErrConcurrentPublication
}

func origin(author *core.ActorModel) string {
	if author.IsLocal() {
		return "local"
	}
	return "remote"
}

func kindOf(post *core.PostModel) string {
	switch {
	case post.IsPlainRepost():
		return "repost"
	case post.IsQuote():
		return "quote"
	case post.ReplyID != nil:
		return "reply"
	case post.Poll != nil:
		return "poll"
	default:
		return "post"
	}
}
