package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"skyfed/internal/core"
)

type followKey struct {
	follower string
	followee string
}

type counterKey struct {
	postID string
	label  string
}

// Store keeps every repository in process memory. It offers the same conditional-write
// guarantees as the database: insert-if-predecessor and one active reaction per pair.
type Store struct {
	mu sync.RWMutex

	actors    map[string]core.ActorModel
	posts     map[string]core.PostModel
	channels  map[string]core.ChannelModel
	media     map[string]core.MediaModel
	reactions []core.ReactionModel
	counters  map[counterKey]int64
	follows   map[followKey]time.Time
	requests  map[followKey]core.FollowRequestModel
}

func NewStore() *Store {
	return &Store{
		actors:   map[string]core.ActorModel{},
		posts:    map[string]core.PostModel{},
		channels: map[string]core.ChannelModel{},
		media:    map[string]core.MediaModel{},
		counters: map[counterKey]int64{},
		follows:  map[followKey]time.Time{},
		requests: map[followKey]core.FollowRequestModel{},
	}
}

func (s *Store) Posts() core.PostRepository         { return posts{s} }
func (s *Store) Actors() core.ActorRepository       { return actors{s} }
func (s *Store) Channels() core.ChannelRepository   { return channels{s} }
func (s *Store) Media() core.MediaRepository        { return media{s} }
func (s *Store) Follows() core.FollowRepository     { return follows{s} }
func (s *Store) Reactions() core.ReactionRepository { return reactions{s} }

// AddActor registers an actor, as account registration would.
func (s *Store) AddActor(a core.ActorModel) *core.ActorModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = core.NewID()
	}
	s.actors[a.ID] = a
	return &a
}

func (s *Store) AddChannel(c core.ChannelModel) *core.ChannelModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = core.NewID()
	}
	s.channels[c.ID] = c
	return &c
}

func (s *Store) AddMedia(m core.MediaModel) *core.MediaModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = core.NewID()
	}
	s.media[m.ID] = m
	return &m
}

// IsFollowing reports whether an edge exists.
func (s *Store) IsFollowing(followerID, followeeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[followKey{followerID, followeeID}]
	return ok
}

// HasRequest reports whether a pending follow request exists.
func (s *Store) HasRequest(followerID, followeeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.requests[followKey{followerID, followeeID}]
	return ok
}

// ActiveReactions returns the non-tombstoned reactions on a post.
func (s *Store) ActiveReactions(postID string) []core.ReactionModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.ReactionModel
	for _, r := range s.reactions {
		if r.PostID == postID && r.DeletedAt == nil {
			out = append(out, r)
		}
	}
	return out
}

type posts struct{ s *Store }

func (r posts) Find(_ context.Context, id string) (*core.PostModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, core.ErrRecordNotFound)
	}
	return &p, nil
}

func (r posts) FindByURI(_ context.Context, uri string) (*core.PostModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.posts {
		if p.URI != nil && *p.URI == uri {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("post %s: %w", uri, core.ErrRecordNotFound)
}

func (r posts) FindMostRecent(_ context.Context, authorID string) (*core.PostModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.actors[authorID]
	if !ok || a.LatestPostID == nil {
		return nil, nil
	}
	p := r.s.posts[*a.LatestPostID]
	return &p, nil
}

func (r posts) Insert(_ context.Context, post *core.PostModel, predecessorID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.actors[post.AuthorID]
	if !ok {
		return fmt.Errorf("actor %s: %w", post.AuthorID, core.ErrRecordNotFound)
	}

	current := ""
	if a.LatestPostID != nil {
		current = *a.LatestPostID
	}
	if current != predecessorID {
		return core.ErrPredecessorChanged
	}

	if post.URI != nil {
		for _, p := range r.s.posts {
			if p.URI != nil && *p.URI == *post.URI {
				return core.ErrUniqueViolation
			}
		}
	}

	id := post.ID
	a.LatestPostID = &id
	r.s.actors[a.ID] = a
	r.s.posts[post.ID] = *post
	return nil
}

func (r posts) MarkDeleted(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return false, fmt.Errorf("post %s: %w", id, core.ErrRecordNotFound)
	}
	if p.DeletedAt != nil {
		return false, nil
	}
	p.DeletedAt = &at
	r.s.posts[id] = p
	return true, nil
}

func (r posts) AdjustReactionCounter(_ context.Context, id, label string, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.counters[counterKey{id, label}] += delta
	return nil
}

func (r posts) ReactionCounts(_ context.Context, id string) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int64{}
	for k, v := range r.s.counters {
		if k.postID == id {
			counts[k.label] = v
		}
	}
	return counts, nil
}

type actors struct{ s *Store }

func (r actors) Find(_ context.Context, id string) (*core.ActorModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.actors[id]
	if !ok {
		return nil, fmt.Errorf("actor %s: %w", id, core.ErrRecordNotFound)
	}
	return &a, nil
}

func (r actors) FindByURI(_ context.Context, uri string) (*core.ActorModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.actors {
		if a.URI == uri {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("actor %s: %w", uri, core.ErrRecordNotFound)
}

func (r actors) FindByAcct(_ context.Context, username, host string) (*core.ActorModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.actors {
		if a.Username == username && a.Host == host {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("actor %s: %w", core.Acct(username, host), core.ErrRecordNotFound)
}

func (r actors) EnsureRemote(_ context.Context, actor *core.ActorModel) (*core.ActorModel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.actors {
		if a.URI == actor.URI {
			return &a, nil
		}
	}

	a := *actor
	if a.ID == "" {
		a.ID = core.NewID()
	}
	r.s.actors[a.ID] = a
	return &a, nil
}

func (r actors) MarkDeleted(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.actors[id]
	if !ok {
		return false, fmt.Errorf("actor %s: %w", id, core.ErrRecordNotFound)
	}
	if a.DeletedAt != nil {
		return false, nil
	}
	a.DeletedAt = &at
	r.s.actors[id] = a
	return true, nil
}

type channels struct{ s *Store }

func (r channels) Find(_ context.Context, id string) (*core.ChannelModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", id, core.ErrRecordNotFound)
	}
	return &c, nil
}

type media struct{ s *Store }

func (r media) FindOwned(_ context.Context, ownerID string, ids []string) ([]core.MediaModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []core.MediaModel
	for _, id := range ids {
		if m, ok := r.s.media[id]; ok && m.OwnerID == ownerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r media) Register(_ context.Context, files []core.MediaModel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, m := range files {
		if _, ok := r.s.media[m.ID]; ok {
			return core.ErrUniqueViolation
		}
	}
	for _, m := range files {
		r.s.media[m.ID] = m
	}
	return nil
}

type follows struct{ s *Store }

func (r follows) Follow(_ context.Context, followerID, followeeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := followKey{followerID, followeeID}
	if _, ok := r.s.follows[key]; ok {
		return false, nil
	}
	r.s.follows[key] = time.Now()
	return true, nil
}

func (r follows) Unfollow(_ context.Context, followerID, followeeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := followKey{followerID, followeeID}
	if _, ok := r.s.follows[key]; !ok {
		return false, nil
	}
	delete(r.s.follows, key)
	return true, nil
}

func (r follows) Request(_ context.Context, req core.FollowRequestModel) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := followKey{req.FollowerID, req.FolloweeID}
	if _, ok := r.s.requests[key]; ok {
		return false, nil
	}
	r.s.requests[key] = req
	return true, nil
}

func (r follows) CancelRequest(_ context.Context, followerID, followeeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := followKey{followerID, followeeID}
	if _, ok := r.s.requests[key]; !ok {
		return false, nil
	}
	delete(r.s.requests, key)
	return true, nil
}

func (r follows) RemoteFollowers(_ context.Context, followeeID string) ([]core.ActorModel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []core.ActorModel
	for key := range r.s.follows {
		if key.followee != followeeID {
			continue
		}
		if a, ok := r.s.actors[key.follower]; ok && !a.IsLocal() && a.DeletedAt == nil {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b core.ActorModel) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

type reactions struct{ s *Store }

func (r reactions) Insert(_ context.Context, reaction *core.ReactionModel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.reactions {
		if existing.PostID == reaction.PostID && existing.ActorID == reaction.ActorID && existing.DeletedAt == nil {
			return core.ErrUniqueViolation
		}
	}

	r.s.reactions = append(r.s.reactions, *reaction)
	r.s.counters[counterKey{reaction.PostID, reaction.Label}]++
	return nil
}

func (r reactions) Tombstone(_ context.Context, postID, actorID string, at time.Time) (*core.ReactionModel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, existing := range r.s.reactions {
		if existing.PostID == postID && existing.ActorID == actorID && existing.DeletedAt == nil {
			r.s.reactions[i].DeletedAt = &at
			tombstoned := r.s.reactions[i]
			return &tombstoned, nil
		}
	}
	return nil, fmt.Errorf("reaction on %s by %s: %w", postID, actorID, core.ErrRecordNotFound)
}
