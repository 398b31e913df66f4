package publishing

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"skyfed/internal/core"
)

const maxMedia = 4

// Resolver looks up the entities a draft references. It never writes.
type Resolver struct {
	Store core.Store
}

func (r *Resolver) Resolve(ctx context.Context, draft Draft) (*Resolved, error) {
	author, err := r.Store.Actors().Find(ctx, draft.AuthorID)
	if err != nil {
		return nil, notFound(err, core.ErrAuthorNotFound, "resolve author")
	}
	if author.DeletedAt != nil {
		return nil, core.ErrAuthorNotFound
	}

	res := &Resolved{Author: author}

	if draft.MediaIDs != nil {
		ids := lo.Uniq(draft.MediaIDs)
		if len(ids) == 0 || len(ids) > maxMedia {
			return nil, core.ErrMediaCount
		}

		media, err := r.Store.Media().FindOwned(ctx, author.ID, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve media: %w", err)
		}
		if len(media) != len(ids) {
			return nil, core.ErrMediaNotFound
		}
		res.Media = media
	}

	if draft.RepostID != nil {
		res.Repost, err = r.findPost(ctx, *draft.RepostID, core.ErrRepostNotFound)
		if err != nil {
			return nil, err
		}
	}

	if draft.ReplyID != nil {
		res.Reply, err = r.findPost(ctx, *draft.ReplyID, core.ErrReplyNotFound)
		if err != nil {
			return nil, err
		}
	}

	if draft.ChannelID != nil {
		res.Channel, err = r.Store.Channels().Find(ctx, *draft.ChannelID)
		if err != nil {
			return nil, notFound(err, core.ErrChannelNotFound, "resolve channel")
		}
	}

	res.Latest, err = r.Store.Posts().FindMostRecent(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve latest post: %w", err)
	}

	return res, nil
}

// ResolveMentions maps handles to known actors. Unknown handles are skipped.
// A handle without host, written by a remote author, refers to the author's instance.
func (r *Resolver) ResolveMentions(ctx context.Context, author *core.ActorModel, accts []string) ([]core.ActorModel, error) {
	actors := make([]core.ActorModel, 0, len(accts))

	for _, acct := range accts {
		username, host := SplitAcct(acct)
		if host == "" {
			host = author.Host
		}

		actor, err := r.Store.Actors().FindByAcct(ctx, username, host)
		if err != nil {
			if errors.Is(err, core.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve mention %s: %w", acct, err)
		}
		if actor.DeletedAt != nil {
			continue
		}
		actors = append(actors, *actor)
	}

	return lo.UniqBy(actors, func(a core.ActorModel) string { return a.ID }), nil
}

func (r *Resolver) findPost(ctx context.Context, id string, rejection error) (*core.PostModel, error) {
	post, err := r.Store.Posts().Find(ctx, id)
	if err != nil {
		return nil, notFound(err, rejection, "resolve post")
	}
	if post.DeletedAt != nil {
		return nil, rejection
	}
	return post, nil
}

func notFound(err error, rejection error, op string) error {
	if errors.Is(err, core.ErrRecordNotFound) {
		return rejection
	}
	return fmt.Errorf("%s: %w", op, err)
}
