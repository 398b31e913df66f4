package distribution

import (
	"time"

	"skyfed/internal/core"
	"skyfed/internal/federation"
)

type PublicActor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Host     string `json:"host,omitempty"`
	Acct     string `json:"acct"`
}

// PublicPost is the client-facing representation of a post.
type PublicPost struct {
	ID         string          `json:"id"`
	URI        string          `json:"uri"`
	CreatedAt  time.Time       `json:"createdAt"`
	Visibility core.Visibility `json:"visibility"`
	Text       *string         `json:"text"`
	CW         *string         `json:"cw"`
	Tags       []string        `json:"tags"`
	MediaIDs   []string        `json:"mediaIds"`
	Mentions   []string        `json:"mentions"`
	Poll       *core.Poll      `json:"poll,omitempty"`
	ReplyID    *string         `json:"replyId,omitempty"`
	RepostID   *string         `json:"repostId,omitempty"`
	ChannelID  *string         `json:"channelId,omitempty"`
	Author     PublicActor     `json:"author"`
}

func PackActor(a *core.ActorModel) PublicActor {
	return PublicActor{ID: a.ID, Username: a.Username, Host: a.Host, Acct: a.Acct()}
}

func Pack(baseURL string, author *core.ActorModel, post *core.PostModel) *PublicPost {
	return &PublicPost{
		ID:         post.ID,
		URI:        federation.PostURI(baseURL, post),
		CreatedAt:  post.CreatedAt,
		Visibility: post.Visibility,
		Text:       post.Text,
		CW:         post.CW,
		Tags:       nonNil(post.Tags),
		MediaIDs:   nonNil(post.MediaIDs),
		Mentions:   nonNil(post.Mentions),
		Poll:       post.Poll,
		ReplyID:    post.ReplyID,
		RepostID:   post.RepostID,
		ChannelID:  post.ChannelID,
		Author:     PackActor(author),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
