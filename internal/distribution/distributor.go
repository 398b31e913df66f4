package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"skyfed/internal/config"
	"skyfed/internal/core"
	"skyfed/internal/federation"
	"skyfed/pkg/retry"
)

var (
	effectsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfed_distribution_effects_total",
		Help: "The total number of distribution side effects by outcome",
	}, []string{"effect", "status"})

	distributionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skyfed_distribution_skipped_total",
		Help: "The total number of distributions skipped because the post was already distributed",
	})

	distributionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skyfed_distribution_failed_total",
		Help: "The total number of distributions abandoned after the last attempt",
	})
)

const (
	maxAttempts = 3
	retryRate   = 10
	retryDelay  = 500 * time.Millisecond
)

// Distributor fans a stored post out to streams, notifications, search and remote peers.
// Effects run in the background; Distribute returns as soon as the post is packed.
type Distributor struct {
	Logger *slog.Logger
	Config *config.Config

	Store      core.Store
	Stream     core.StreamSink
	Deliveries core.DeliveryQueue
	Search     core.SearchIndex
	Ledger     core.DistributionLedger

	wg sync.WaitGroup
}

func (d *Distributor) Init(_ context.Context) error {
	d.Logger = d.Logger.With("component", "distribution.Distributor")
	return nil
}

func (d *Distributor) Shutdown(_ context.Context) error {
	d.Wait()
	return nil
}

// Wait blocks until every background distribution has finished.
func (d *Distributor) Wait() {
	d.wg.Wait()
}

// Distribute must only be called after the post is durably stored.
func (d *Distributor) Distribute(_ context.Context, author *core.ActorModel, post *core.PostModel) *PublicPost {
	packed := Pack(d.Config.BaseURL(), author, post)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// The caller's context ends with its request; distribution outlives it.
		d.runWithRetries(context.Background(), author, post, packed)
	}()

	return packed
}

func (d *Distributor) runWithRetries(ctx context.Context, author *core.ActorModel, post *core.PostModel, packed *PublicPost) {
	run := retry.WrapWithRetry(func() error {
		return d.Run(ctx, author, post, packed)
	}, func(err error, attempt int) bool {
		if attempt >= maxAttempts {
			return false
		}
		d.Logger.Warn("distribution attempt failed, retrying", "post", post.ID, "attempt", attempt, "error", err)
		return true
	}, retryRate, retryDelay)

	if err := run(); err != nil {
		distributionsFailed.Inc()
		d.Logger.Error("distribution failed", "post", post.ID, "error", err)
	}
}

// Run performs the side effects synchronously. Once a run succeeds, repeated calls for the same
// post are no-ops. A failed run releases its claim, so effects are applied at least once.
func (d *Distributor) Run(ctx context.Context, author *core.ActorModel, post *core.PostModel, packed *PublicPost) (err error) {
	first, err := d.Ledger.Claim(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("claim distribution: %w", err)
	}
	if !first {
		distributionsSkipped.Inc()
		d.Logger.Debug("post already distributed", "post", post.ID)
		return nil
	}

	defer func() {
		if err == nil {
			return
		}
		if releaseErr := d.Ledger.Release(ctx, post.ID); releaseErr != nil {
			err = errors.Join(err, fmt.Errorf("release distribution: %w", releaseErr))
		}
	}()

	refs, err := d.references(ctx, post)
	if err != nil {
		return err
	}

	// A failing effect must not cancel its siblings.
	var g errgroup.Group

	g.Go(func() error {
		return track("stream", d.Stream.Publish(ctx, author.ID, core.EventPost, packed))
	})

	g.Go(func() error {
		return track("notification", d.notify(ctx, author, post, refs, packed))
	})

	if d.Config.SearchEnabled && post.HasText() {
		g.Go(func() error {
			return track("search", d.Search.Upsert(ctx, post.ID, *post.Text))
		})
	}

	if author.IsLocal() {
		g.Go(func() error {
			return track("delivery", d.deliver(ctx, author, post, refs))
		})
	}

	return g.Wait()
}

func (d *Distributor) references(ctx context.Context, post *core.PostModel) (federation.Refs, error) {
	var refs federation.Refs
	var err error

	if post.ReplyID != nil {
		if refs.Reply, err = d.Store.Posts().Find(ctx, *post.ReplyID); err != nil {
			return refs, fmt.Errorf("load reply target: %w", err)
		}
	}
	if post.RepostID != nil {
		if refs.Repost, err = d.Store.Posts().Find(ctx, *post.RepostID); err != nil {
			return refs, fmt.Errorf("load repost target: %w", err)
		}
	}

	for _, id := range post.MentionedActorIDs {
		actor, err := d.Store.Actors().Find(ctx, id)
		if err != nil {
			if errors.Is(err, core.ErrRecordNotFound) {
				continue
			}
			return refs, fmt.Errorf("load mentioned actor: %w", err)
		}
		refs.Mentioned = append(refs.Mentioned, *actor)
	}

	return refs, nil
}

type notification struct {
	actorID string
	kind    core.EventKind
}

func (d *Distributor) notify(ctx context.Context, author *core.ActorModel, post *core.PostModel, refs federation.Refs, packed *PublicPost) error {
	var targets []notification

	for _, a := range refs.Mentioned {
		targets = append(targets, notification{a.ID, core.EventMention})
	}
	if refs.Reply != nil {
		targets = append(targets, notification{refs.Reply.AuthorID, core.EventReply})
	}
	if refs.Repost != nil {
		kind := core.EventRepost
		if post.IsQuote() {
			kind = core.EventQuote
		}
		targets = append(targets, notification{refs.Repost.AuthorID, kind})
	}

	targets = lo.UniqBy(lo.Reject(targets, func(n notification, _ int) bool {
		return n.actorID == author.ID
	}), func(n notification) string { return n.actorID + "/" + string(n.kind) })

	var errs []error
	for _, n := range targets {
		actor, err := d.Store.Actors().Find(ctx, n.actorID)
		if err != nil {
			if !errors.Is(err, core.ErrRecordNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		if !actor.IsLocal() {
			continue
		}
		if err := d.Stream.Publish(ctx, actor.ID, n.kind, packed); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *Distributor) deliver(ctx context.Context, author *core.ActorModel, post *core.PostModel, refs federation.Refs) error {
	var inboxes []string

	if post.Visibility != core.VisibilityDirect {
		followers, err := d.Store.Follows().RemoteFollowers(ctx, author.ID)
		if err != nil {
			return fmt.Errorf("load remote followers: %w", err)
		}
		inboxes = lo.Map(followers, func(a core.ActorModel, _ int) string { return a.DeliveryInbox() })
	}

	for _, a := range refs.Mentioned {
		if !a.IsLocal() {
			inboxes = append(inboxes, a.DeliveryInbox())
		}
	}

	if refs.Reply != nil {
		replyAuthor, err := d.Store.Actors().Find(ctx, refs.Reply.AuthorID)
		if err == nil && !replyAuthor.IsLocal() {
			inboxes = append(inboxes, replyAuthor.DeliveryInbox())
		}
	}

	inboxes = lo.Filter(lo.Uniq(inboxes), func(s string, _ int) bool { return s != "" })
	if len(inboxes) == 0 {
		return nil
	}

	activity := federation.RenderCreate(d.Config.BaseURL(), author, post, refs)

	var errs []error
	for _, inbox := range inboxes {
		if err := d.Deliveries.Enqueue(ctx, inbox, activity); err != nil {
			errs = append(errs, fmt.Errorf("enqueue delivery to %s: %w", inbox, err))
		}
	}

	return errors.Join(errs...)
}

func track(effect string, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
	}
	effectsProcessed.WithLabelValues(effect, status).Inc()
	return err
}
