package activities_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyfed/internal/activities"
	"skyfed/internal/config"
	"skyfed/internal/core"
	"skyfed/internal/distribution"
	"skyfed/internal/federation"
	"skyfed/internal/memory"
	"skyfed/internal/publishing"
)

type fixture struct {
	store       *memory.Store
	stream      *memory.Stream
	deliveries  *memory.Deliveries
	distributor *distribution.Distributor
	dispatcher  *activities.Dispatcher

	alice *core.ActorModel
	carol *core.ActorModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	cfg := &config.Config{Domain: "local.example"}

	f := &fixture{
		store:      memory.NewStore(),
		stream:     &memory.Stream{},
		deliveries: &memory.Deliveries{},
	}

	f.distributor = &distribution.Distributor{
		Logger:     slog.Default(),
		Config:     cfg,
		Store:      f.store,
		Stream:     f.stream,
		Deliveries: f.deliveries,
		Search:     &memory.SearchIndex{},
		Ledger:     &memory.Ledger{},
	}
	require.NoError(t, f.distributor.Init(ctx))

	publisher := &publishing.Publisher{
		Logger:      slog.Default(),
		Store:       f.store,
		Distributor: f.distributor,
		Clock:       core.SystemClock{},
	}
	require.NoError(t, publisher.Init(ctx))

	f.dispatcher = &activities.Dispatcher{
		Logger:     slog.Default(),
		Config:     cfg,
		Store:      f.store,
		Publisher:  publisher,
		Stream:     f.stream,
		Deliveries: f.deliveries,
		Policy:     core.LockedPolicy{},
		Clock:      core.SystemClock{},
	}
	require.NoError(t, f.dispatcher.Init(ctx))

	f.alice = f.store.AddActor(core.ActorModel{Username: "alice", URI: "https://local.example/users/alice"})
	f.carol = f.store.AddActor(core.ActorModel{
		Username: "carol",
		Host:     "remote.example",
		URI:      "https://remote.example/users/carol",
		Inbox:    "https://remote.example/users/carol/inbox",
	})

	return f
}

func (f *fixture) dispatch(t *testing.T, actor *core.ActorModel, activity activities.Activity) error {
	t.Helper()

	err := f.dispatcher.Dispatch(context.Background(), actor, activity)
	f.distributor.Wait()
	return err
}

func note(id, text string) activities.Note {
	return activities.Note{
		ID:           id,
		AttributedTo: "https://remote.example/users/carol",
		Content:      lo.ToPtr("<p>" + text + "</p>"),
		To:           []string{federation.PublicURI},
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown and accept are no-ops", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		require.NoError(t, f.dispatch(t, f.carol, activities.Unknown{ID: "x", Type: "Like"}))
		require.NoError(t, f.dispatch(t, f.carol, activities.Accept{ID: "a"}))

		assert.Empty(t, f.deliveries.All())
		assert.Empty(t, f.stream.Events(f.alice.ID))
	})

	t.Run("create stores the note once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		create := activities.Create{ID: "c", Object: note("https://remote.example/notes/1", "hello")}

		require.NoError(t, f.dispatch(t, f.carol, create))
		require.NoError(t, f.dispatch(t, f.carol, create))

		post, err := f.store.Posts().FindByURI(ctx, "https://remote.example/notes/1")
		require.NoError(t, err)
		assert.Equal(t, f.carol.ID, post.AuthorID)
		assert.Equal(t, "hello", *post.Text)
		assert.Equal(t, core.VisibilityPublic, post.Visibility)
	})

	t.Run("create attributed to someone else", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		n := note("https://remote.example/notes/1", "hello")
		n.AttributedTo = "https://remote.example/users/mallory"

		err := f.dispatch(t, f.carol, activities.Create{ID: "c", Object: n})
		require.ErrorIs(t, err, core.ErrMalformedActivity)
	})

	t.Run("create without content", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		n := note("https://remote.example/notes/1", "")
		n.Content = nil

		err := f.dispatch(t, f.carol, activities.Create{ID: "c", Object: n})
		require.ErrorIs(t, err, core.ErrEmptyContent)
	})

	t.Run("create with attachments only", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		n := note("https://remote.example/notes/1", "")
		n.Content = nil
		n.Attachments = []activities.Attachment{{URL: "https://remote.example/files/1.png", MediaType: "image/png"}}

		require.NoError(t, f.dispatch(t, f.carol, activities.Create{ID: "c", Object: n}))

		post, err := f.store.Posts().FindByURI(ctx, "https://remote.example/notes/1")
		require.NoError(t, err)
		assert.Nil(t, post.Text)
		require.Len(t, post.MediaIDs, 1)

		media, err := f.store.Media().FindOwned(ctx, f.carol.ID, post.MediaIDs)
		require.NoError(t, err)
		require.Len(t, media, 1)
		assert.Equal(t, "https://remote.example/files/1.png", media[0].URL)
		assert.Equal(t, "image/png", media[0].Type)
	})

	t.Run("create keeps at most four attachments", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		n := note("https://remote.example/notes/1", "gallery")
		n.Attachments = lo.Times(6, func(i int) activities.Attachment {
			return activities.Attachment{URL: fmt.Sprintf("https://remote.example/files/%d.png", i)}
		})

		require.NoError(t, f.dispatch(t, f.carol, activities.Create{ID: "c", Object: n}))

		post, err := f.store.Posts().FindByURI(ctx, "https://remote.example/notes/1")
		require.NoError(t, err)
		assert.Len(t, post.MediaIDs, 4)
	})

	t.Run("reply to unknown post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		n := note("https://remote.example/notes/1", "reply")
		n.InReplyTo = lo.ToPtr("https://elsewhere.example/notes/9")

		err := f.dispatch(t, f.carol, activities.Create{ID: "c", Object: n})
		require.ErrorIs(t, err, core.ErrReplyNotFound)
	})

	t.Run("reply to local post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		original, err := f.dispatcher.Publisher.Publish(ctx, publishing.Draft{AuthorID: f.alice.ID, Text: lo.ToPtr("original")})
		require.NoError(t, err)
		f.distributor.Wait()

		n := note("https://remote.example/notes/1", "reply")
		n.InReplyTo = lo.ToPtr("https://local.example/posts/" + original.ID)
		require.NoError(t, f.dispatch(t, f.carol, activities.Create{ID: "c", Object: n}))

		post, err := f.store.Posts().FindByURI(ctx, "https://remote.example/notes/1")
		require.NoError(t, err)
		require.NotNil(t, post.ReplyID)
		assert.Equal(t, original.ID, *post.ReplyID)

		assert.Equal(t, []core.EventKind{core.EventPost, core.EventReply},
			lo.Map(f.stream.Events(f.alice.ID), func(e core.StreamEvent, _ int) core.EventKind { return e.Kind }))
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.dispatch(t, f.carol, activities.Create{ID: "c", Object: note("https://remote.example/notes/1", "bye")}))

		del := activities.Delete{ID: "d", ObjectID: "https://remote.example/notes/1"}
		require.NoError(t, f.dispatch(t, f.carol, del))
		require.NoError(t, f.dispatch(t, f.carol, del))

		post, err := f.store.Posts().FindByURI(ctx, "https://remote.example/notes/1")
		require.NoError(t, err)
		assert.NotNil(t, post.DeletedAt)
	})

	t.Run("delete of someone else's post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.dispatch(t, f.carol, activities.Create{ID: "c", Object: note("https://remote.example/notes/1", "mine")}))

		dave := f.store.AddActor(core.ActorModel{Username: "dave", Host: "remote.example", URI: "https://remote.example/users/dave"})
		err := f.dispatch(t, dave, activities.Delete{ID: "d", ObjectID: "https://remote.example/notes/1"})
		require.ErrorIs(t, err, core.ErrNotOwner)
	})

	t.Run("delete of unknown post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.dispatch(t, f.carol, activities.Delete{ID: "d", ObjectID: "https://remote.example/notes/404"}))
	})

	t.Run("delete of the actor", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.dispatch(t, f.carol, activities.Delete{ID: "d", ObjectID: f.carol.URI}))

		carol, err := f.store.Actors().Find(ctx, f.carol.ID)
		require.NoError(t, err)
		assert.NotNil(t, carol.DeletedAt)
	})

	t.Run("follow unlocked actor", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.dispatch(t, f.carol, activities.Follow{ID: "f", ObjectID: f.alice.URI}))

		assert.True(t, f.store.IsFollowing(f.carol.ID, f.alice.ID))

		deliveries := f.deliveries.All()
		require.Len(t, deliveries, 1)
		assert.Equal(t, f.carol.Inbox, deliveries[0].Inbox)
		assert.Equal(t, "Accept", deliveries[0].Activity["type"])

		events := f.stream.Events(f.alice.ID)
		require.Len(t, events, 1)
		assert.Equal(t, core.EventFollowed, events[0].Kind)
	})

	t.Run("follow locked actor", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		locked := f.store.AddActor(core.ActorModel{Username: "locked", URI: "https://local.example/users/locked", Locked: true})

		require.NoError(t, f.dispatch(t, f.carol, activities.Follow{ID: "f", ObjectID: locked.URI}))

		assert.False(t, f.store.IsFollowing(f.carol.ID, locked.ID))
		assert.True(t, f.store.HasRequest(f.carol.ID, locked.ID))
		assert.Empty(t, f.deliveries.All())
	})

	t.Run("follow of non-local actor", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		err := f.dispatch(t, f.carol, activities.Follow{ID: "f", ObjectID: f.carol.URI})
		require.ErrorIs(t, err, core.ErrNotLocalActor)

		err = f.dispatch(t, f.carol, activities.Follow{ID: "f", ObjectID: "https://local.example/users/nobody"})
		require.ErrorIs(t, err, core.ErrNotLocalActor)
	})

	t.Run("undo follow", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		follow := activities.Follow{ID: "f", ObjectID: f.alice.URI}
		require.NoError(t, f.dispatch(t, f.carol, follow))

		require.NoError(t, f.dispatch(t, f.carol, activities.Undo{ID: "u", Object: follow}))
		assert.False(t, f.store.IsFollowing(f.carol.ID, f.alice.ID))

		require.NoError(t, f.dispatch(t, f.carol, activities.Undo{ID: "u", Object: activities.Unknown{ID: "f"}}))
	})

	t.Run("nil actor", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		err := f.dispatch(t, nil, activities.Create{ID: "c", Object: note("https://remote.example/notes/1", "hi")})
		require.ErrorIs(t, err, core.ErrMalformedActivity)

		_, err = f.store.Posts().FindByURI(ctx, "https://remote.example/notes/1")
		require.ErrorIs(t, err, core.ErrRecordNotFound)
	})

	t.Run("panicking handler", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.dispatcher.Store = nil

		err := f.dispatch(t, f.carol, activities.Create{ID: "c", Object: note("https://remote.example/notes/1", "boom")})
		require.ErrorIs(t, err, core.ErrHandlerPanicked)
	})
}

func TestDispatcher_DispatchRaw(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.dispatcher.DispatchRaw(context.Background(), f.carol, []byte(`{"type": `))
	require.ErrorIs(t, err, core.ErrMalformedActivity)

	err = f.dispatcher.DispatchRaw(context.Background(), f.carol, []byte(`{"id": "f", "type": "Follow", "object": "https://local.example/users/alice"}`))
	require.NoError(t, err)
	assert.True(t, f.store.IsFollowing(f.carol.ID, f.alice.ID))
}
