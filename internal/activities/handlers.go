package activities

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"skyfed/internal/core"
	"skyfed/internal/distribution"
	"skyfed/internal/federation"
	"skyfed/internal/publishing"
)

const maxAttachments = 4

func (d *Dispatcher) create(ctx context.Context, actor *core.ActorModel, a Create) error {
	note := a.Object

	if note.ID == "" {
		return core.ErrMalformedActivity
	}
	if note.AttributedTo != "" && note.AttributedTo != actor.URI {
		return core.ErrMalformedActivity
	}

	_, err := d.Store.Posts().FindByURI(ctx, note.ID)
	if err == nil {
		d.Logger.Debug("note already stored", "uri", note.ID)
		return nil
	}
	if !errors.Is(err, core.ErrRecordNotFound) {
		return fmt.Errorf("find note: %w", err)
	}

	draft := publishing.Draft{
		AuthorID:   actor.ID,
		URI:        &note.ID,
		Visibility: visibility(actor, note),
		CW:         note.Summary,
		Tags:       note.Hashtags,
	}

	if note.Content != nil {
		text := PlainText(*note.Content)
		draft.Text = &text
	}

	if len(note.Choices) > 0 {
		draft.PollChoices = note.Choices
	}

	if len(note.Attachments) > 0 {
		ids, err := d.registerAttachments(ctx, actor, note.Attachments)
		if err != nil {
			return err
		}
		draft.MediaIDs = ids
	}

	if note.InReplyTo != nil {
		post, err := d.findPost(ctx, *note.InReplyTo, core.ErrReplyNotFound)
		if err != nil {
			return err
		}
		draft.ReplyID = &post.ID
	}

	if note.QuoteURL != nil {
		post, err := d.findPost(ctx, *note.QuoteURL, core.ErrRepostNotFound)
		if err != nil {
			return err
		}
		draft.RepostID = &post.ID
	}

	_, err = d.Publisher.Publish(ctx, draft)
	if errors.Is(err, core.ErrUniqueViolation) {
		d.Logger.Debug("note already stored", "uri", note.ID)
		return nil
	}
	return err
}

// registerAttachments records the first maxAttachments files of a note as media owned by its author.
func (d *Dispatcher) registerAttachments(ctx context.Context, actor *core.ActorModel, attachments []Attachment) ([]string, error) {
	if len(attachments) > maxAttachments {
		d.Logger.Debug("dropping extra attachments", "actor", actor.URI, "count", len(attachments))
		attachments = attachments[:maxAttachments]
	}

	now := d.Clock.Now()
	media := lo.Map(attachments, func(a Attachment, _ int) core.MediaModel {
		return core.MediaModel{
			ID:        core.NewID(),
			OwnerID:   actor.ID,
			URL:       a.URL,
			Type:      a.MediaType,
			CreatedAt: now,
		}
	})

	if err := d.Store.Media().Register(ctx, media); err != nil {
		return nil, fmt.Errorf("register attachments: %w", err)
	}

	return lo.Map(media, func(m core.MediaModel, _ int) string { return m.ID }), nil
}

func (d *Dispatcher) delete(ctx context.Context, actor *core.ActorModel, a Delete) error {
	if a.ObjectID == actor.URI {
		deleted, err := d.Store.Actors().MarkDeleted(ctx, actor.ID, d.Clock.Now())
		if err != nil {
			return fmt.Errorf("delete actor: %w", err)
		}
		d.Logger.Info("actor deleted", "actor", actor.URI, "changed", deleted)
		return nil
	}

	post, err := d.findPost(ctx, a.ObjectID, core.ErrPostNotFound)
	if errors.Is(err, core.ErrPostNotFound) {
		d.Logger.Debug("delete target not found", "object", a.ObjectID)
		return nil
	}
	if err != nil {
		return err
	}

	if post.AuthorID != actor.ID {
		return core.ErrNotOwner
	}

	if _, err := d.Store.Posts().MarkDeleted(ctx, post.ID, d.Clock.Now()); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (d *Dispatcher) follow(ctx context.Context, actor *core.ActorModel, a Follow) error {
	followee, err := d.localActor(ctx, a.ObjectID)
	if err != nil {
		return err
	}

	if d.Policy.RequiresApproval(ctx, followee) {
		_, err := d.Store.Follows().Request(ctx, core.FollowRequestModel{
			FollowerID:  actor.ID,
			FolloweeID:  followee.ID,
			ActivityURI: a.ID,
			CreatedAt:   d.Clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("store follow request: %w", err)
		}
		return nil
	}

	created, err := d.Store.Follows().Follow(ctx, actor.ID, followee.ID)
	if err != nil {
		return fmt.Errorf("store following: %w", err)
	}

	if created {
		if err := d.Stream.Publish(ctx, followee.ID, core.EventFollowed, distribution.PackActor(actor)); err != nil {
			d.Logger.Warn("failed to publish follow notification", "followee", followee.ID, "error", err)
		}
	}

	// Accept is sent again for a repeated Follow; the remote may have missed the first one.
	accept := federation.RenderAccept(followee, actor, a.ID)
	if err := d.Deliveries.Enqueue(ctx, actor.DeliveryInbox(), accept); err != nil {
		return fmt.Errorf("enqueue accept: %w", err)
	}
	return nil
}

func (d *Dispatcher) undo(ctx context.Context, actor *core.ActorModel, a Undo) error {
	f, ok := a.Object.(Follow)
	if !ok {
		d.Logger.Debug("ignoring undo", "object", TypeOf(a.Object), "actor", actor.URI)
		return nil
	}

	followee, err := d.localActor(ctx, f.ObjectID)
	if errors.Is(err, core.ErrNotLocalActor) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := d.Store.Follows().Unfollow(ctx, actor.ID, followee.ID); err != nil {
		return fmt.Errorf("remove following: %w", err)
	}
	if _, err := d.Store.Follows().CancelRequest(ctx, actor.ID, followee.ID); err != nil {
		return fmt.Errorf("remove follow request: %w", err)
	}
	return nil
}

// findPost resolves a post URI. Local URIs carry the post ID; remote ones are looked up by URI.
func (d *Dispatcher) findPost(ctx context.Context, uri string, rejection error) (*core.PostModel, error) {
	var (
		post *core.PostModel
		err  error
	)

	if id, ok := strings.CutPrefix(uri, d.Config.BaseURL()+"/posts/"); ok {
		post, err = d.Store.Posts().Find(ctx, id)
	} else {
		post, err = d.Store.Posts().FindByURI(ctx, uri)
	}

	if errors.Is(err, core.ErrRecordNotFound) {
		return nil, rejection
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return post, nil
}

func (d *Dispatcher) localActor(ctx context.Context, uri string) (*core.ActorModel, error) {
	actor, err := d.Store.Actors().FindByURI(ctx, uri)
	if errors.Is(err, core.ErrRecordNotFound) {
		return nil, core.ErrNotLocalActor
	}
	if err != nil {
		return nil, fmt.Errorf("find actor: %w", err)
	}
	if !actor.IsLocal() || actor.DeletedAt != nil {
		return nil, core.ErrNotLocalActor
	}
	return actor, nil
}

func visibility(actor *core.ActorModel, note Note) core.Visibility {
	switch {
	case slices.ContainsFunc(note.To, isPublic):
		return core.VisibilityPublic
	case slices.ContainsFunc(note.CC, isPublic):
		return core.VisibilityUnlisted
	case slices.Contains(note.To, federation.FollowersURI(actor)):
		return core.VisibilityPrivate
	default:
		return core.VisibilityDirect
	}
}

func isPublic(addr string) bool {
	return addr == federation.PublicURI || addr == "as:Public" || addr == "Public"
}
