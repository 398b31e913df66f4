package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/go-chi/chi/v5"

	"skyfed/internal/activities"
	"skyfed/internal/core"
	"skyfed/internal/publishing"
	"skyfed/internal/reactions"
)

const (
	actorIDHeader  = "X-Actor-Id"
	actorURIHeader = "X-Actor-Uri"

	maxActivitySize = 1 << 20
)

type actorContextKey struct{}

// Backend implements the HTTP handlers. Authentication of local actors and signature
// verification of remote ones happen upstream; the headers carry the verified identity.
type Backend struct {
	Logger *slog.Logger

	Store      core.Store
	Publisher  *publishing.Publisher
	Reactions  *reactions.Machine
	Dispatcher *activities.Dispatcher
}

func (b *Backend) Init(context.Context) error {
	b.Logger = b.Logger.With("component", "api.Backend")
	return nil
}

func (b *Backend) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := b.Publisher.Publish(r.Context(), req.draft(actorID(r.Context())))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (b *Backend) GetReactions(w http.ResponseWriter, r *http.Request) {
	counts, err := b.Store.Posts().ReactionCounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

func (b *Backend) CreateReaction(w http.ResponseWriter, r *http.Request) {
	var req createReactionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := b.Reactions.React(r.Context(), actorID(r.Context()), chi.URLParam(r, "id"), req.Reaction); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) DeleteReaction(w http.ResponseWriter, r *http.Request) {
	if err := b.Reactions.Unreact(r.Context(), actorID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PostInbox accepts an activity from a remote actor. Peers get protocol-level acknowledgement
// only: anything that parses is answered with 202, and rejections are logged.
func (b *Backend) PostInbox(w http.ResponseWriter, r *http.Request) {
	actorURI := r.Header.Get(actorURIHeader)
	if actorURI == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + actorURIHeader})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxActivitySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	actor, err := b.remoteActor(r.Context(), actorURI)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = b.Dispatcher.DispatchRaw(r.Context(), actor, raw)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrMalformedActivity):
		writeError(w, r, err)
		return
	default:
		if _, ok := core.KindOf(err); !ok {
			writeError(w, r, err)
			return
		}
		logger(r.Context()).Info("activity rejected", "actor", actorURI, "reason", core.ReasonOf(err))
	}

	w.WriteHeader(http.StatusAccepted)
}

// remoteActor returns the stored sender, registering it on first contact.
func (b *Backend) remoteActor(ctx context.Context, uri string) (*core.ActorModel, error) {
	actor, err := b.Store.Actors().FindByURI(ctx, uri)
	if err == nil {
		if actor.IsLocal() {
			return nil, core.ErrMalformedActivity
		}
		return actor, nil
	}
	if !errors.Is(err, core.ErrRecordNotFound) {
		return nil, err
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return nil, core.ErrMalformedActivity
	}
	username := path.Base(parsed.Path)
	if username == "/" || username == "." {
		return nil, core.ErrMalformedActivity
	}

	return b.Store.Actors().EnsureRemote(ctx, &core.ActorModel{
		ID:       core.NewID(),
		Username: username,
		Host:     parsed.Host,
		URI:      uri,
		Inbox:    uri + "/inbox",
	})
}

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(actorIDHeader)
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + actorIDHeader})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey{}, id)))
	})
}

func actorID(ctx context.Context) string {
	id, _ := ctx.Value(actorContextKey{}).(string)
	return id
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxActivitySize)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
