package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyfed/internal/activities"
	"skyfed/internal/api"
	"skyfed/internal/config"
	"skyfed/internal/core"
	"skyfed/internal/distribution"
	"skyfed/internal/memory"
	"skyfed/internal/publishing"
	"skyfed/internal/reactions"
)

type apiEnv struct {
	store       *memory.Store
	distributor *distribution.Distributor
	router      http.Handler

	alice *core.ActorModel
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	ctx := context.Background()
	cfg := &config.Config{Domain: "local.example"}
	store := memory.NewStore()
	stream := &memory.Stream{}
	deliveries := &memory.Deliveries{}

	distributor := &distribution.Distributor{
		Logger:     slog.Default(),
		Config:     cfg,
		Store:      store,
		Stream:     stream,
		Deliveries: deliveries,
		Search:     &memory.SearchIndex{},
		Ledger:     &memory.Ledger{},
	}
	publisher := &publishing.Publisher{Logger: slog.Default(), Store: store, Distributor: distributor, Clock: core.SystemClock{}}
	machine := &reactions.Machine{
		Logger:   slog.Default(),
		Store:    store,
		Counters: &memory.CounterQueue{Store: store},
		Stream:   stream,
		Clock:    core.SystemClock{},
	}
	dispatcher := &activities.Dispatcher{
		Logger:     slog.Default(),
		Config:     cfg,
		Store:      store,
		Publisher:  publisher,
		Stream:     stream,
		Deliveries: deliveries,
		Policy:     core.LockedPolicy{},
		Clock:      core.SystemClock{},
	}
	backend := &api.Backend{
		Logger:     slog.Default(),
		Store:      store,
		Publisher:  publisher,
		Reactions:  machine,
		Dispatcher: dispatcher,
	}

	require.NoError(t, distributor.Init(ctx))
	require.NoError(t, publisher.Init(ctx))
	require.NoError(t, machine.Init(ctx))
	require.NoError(t, dispatcher.Init(ctx))
	require.NoError(t, backend.Init(ctx))

	t.Cleanup(distributor.Wait)

	return &apiEnv{
		store:       store,
		distributor: distributor,
		router:      api.NewRouter(slog.Default(), backend, nil),
		alice:       store.AddActor(core.ActorModel{Username: "alice", URI: "https://local.example/users/alice"}),
	}
}

func (e *apiEnv) do(method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) as(actor *core.ActorModel) map[string]string {
	return map[string]string{"X-Actor-Id": actor.ID}
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Kind
}

func TestBackend_CreatePost(t *testing.T) {
	t.Parallel()

	t.Run("publishes", func(t *testing.T) {
		t.Parallel()

		e := newAPI(t)

		rec := e.do(http.MethodPost, "/api/posts", e.as(e.alice), `{"text": "hello #api"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var post distribution.PublicPost
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
		assert.Equal(t, []string{"api"}, post.Tags)
		assert.Equal(t, "alice", post.Author.Username)
		assert.Equal(t, core.VisibilityPublic, post.Visibility)
	})

	cases := map[string]struct {
		headers func(e *apiEnv) map[string]string
		body    string
		status  int
		kind    string
	}{
		"no actor": {
			headers: func(*apiEnv) map[string]string { return nil },
			body:    `{"text": "hi"}`,
			status:  http.StatusUnauthorized,
		},
		"empty draft": {
			headers: func(e *apiEnv) map[string]string { return e.as(e.alice) },
			body:    `{}`,
			status:  http.StatusBadRequest,
			kind:    "invalid_structure",
		},
		"invalid visibility": {
			headers: func(e *apiEnv) map[string]string { return e.as(e.alice) },
			body:    `{"text": "hi", "visibility": "everyone"}`,
			status:  http.StatusBadRequest,
			kind:    "invalid_structure",
		},
		"malformed json": {
			headers: func(e *apiEnv) map[string]string { return e.as(e.alice) },
			body:    `{"text": `,
			status:  http.StatusBadRequest,
			kind:    "invalid_structure",
		},
		"unknown reply": {
			headers: func(e *apiEnv) map[string]string { return e.as(e.alice) },
			body:    `{"text": "hi", "replyId": "missing"}`,
			status:  http.StatusNotFound,
			kind:    "not_found",
		},
		"unknown author": {
			headers: func(*apiEnv) map[string]string { return map[string]string{"X-Actor-Id": "nobody"} },
			body:    `{"text": "hi"}`,
			status:  http.StatusNotFound,
			kind:    "not_found",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := newAPI(t)

			rec := e.do(http.MethodPost, "/api/posts", tc.headers(e), tc.body)
			require.Equal(t, tc.status, rec.Code)
			if tc.kind != "" {
				assert.Equal(t, tc.kind, errorKind(t, rec))
			}
		})
	}
}

func TestBackend_Reactions(t *testing.T) {
	t.Parallel()

	e := newAPI(t)
	bob := e.store.AddActor(core.ActorModel{Username: "bob"})

	rec := e.do(http.MethodPost, "/api/posts", e.as(e.alice), `{"text": "react"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var post distribution.PublicPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	path := "/api/posts/" + post.ID + "/reactions"

	rec = e.do(http.MethodPost, path, e.as(bob), `{"reaction": "👍"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(http.MethodPost, path, e.as(bob), `{"reaction": "👍"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorKind(t, rec))

	rec = e.do(http.MethodGet, path, e.as(bob), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"👍": 1}`, rec.Body.String())

	rec = e.do(http.MethodDelete, path, e.as(bob), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(http.MethodDelete, path, e.as(bob), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, path, e.as(bob), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/posts/missing/reactions", e.as(bob), `{"reaction": "👍"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodPost, path, map[string]string{"X-Actor-Id": "nobody"}, `{"reaction": "🎉"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorKind(t, rec))
}

func TestBackend_PostInbox(t *testing.T) {
	t.Parallel()

	carol := map[string]string{"X-Actor-Uri": "https://remote.example/users/carol"}

	t.Run("accepts and registers the sender", func(t *testing.T) {
		t.Parallel()

		e := newAPI(t)

		rec := e.do(http.MethodPost, "/inbox", carol, `{
			"id": "https://remote.example/notes/1/activity",
			"type": "Create",
			"object": {
				"id": "https://remote.example/notes/1",
				"type": "Note",
				"content": "<p>hi from afar</p>",
				"to": ["https://www.w3.org/ns/activitystreams#Public"]
			}
		}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		e.distributor.Wait()

		sender, err := e.store.Actors().FindByURI(context.Background(), "https://remote.example/users/carol")
		require.NoError(t, err)
		assert.Equal(t, "carol", sender.Username)
		assert.Equal(t, "remote.example", sender.Host)

		post, err := e.store.Posts().FindByURI(context.Background(), "https://remote.example/notes/1")
		require.NoError(t, err)
		assert.Equal(t, "hi from afar", *post.Text)
	})

	t.Run("rejections are acknowledged", func(t *testing.T) {
		t.Parallel()

		e := newAPI(t)

		rec := e.do(http.MethodPost, "/inbox", carol, `{"id": "f", "type": "Follow", "object": "https://local.example/users/nobody"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("unknown types are acknowledged", func(t *testing.T) {
		t.Parallel()

		e := newAPI(t)

		rec := e.do(http.MethodPost, "/inbox", carol, `{"id": "l", "type": "Like", "object": "x"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		e := newAPI(t)

		rec := e.do(http.MethodPost, "/inbox", carol, `{"type": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("local sender", func(t *testing.T) {
		t.Parallel()

		e := newAPI(t)

		rec := e.do(http.MethodPost, "/inbox", map[string]string{"X-Actor-Uri": e.alice.URI}, `{"id": "x", "type": "Like"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		e := newAPI(t)

		rec := e.do(http.MethodPost, "/inbox", nil, `{"id": "x", "type": "Like"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
