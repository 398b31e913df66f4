package publishing

import (
	"skyfed/internal/core"
)

// Draft is a post as submitted, after shape validation. Nil pointers and nil slices mean "absent".
type Draft struct {
	AuthorID   string
	URI        *string
	Visibility core.Visibility
	Text       *string
	CW         *string
	Tags       []string

	MediaIDs    []string
	PollChoices []string

	ReplyID   *string
	RepostID  *string
	ChannelID *string
}

// Resolved holds every entity a draft references.
type Resolved struct {
	Author  *core.ActorModel
	Reply   *core.PostModel
	Repost  *core.PostModel
	Channel *core.ChannelModel
	Media   []core.MediaModel

	// Latest is the author's immediately preceding post, nil if none.
	Latest *core.PostModel
}

func (r *Resolved) predecessorID() string {
	if r.Latest == nil {
		return ""
	}
	return r.Latest.ID
}

// NormalizedContent is an evaluated draft ready for storage. ID and CreatedAt are left unset.
type NormalizedContent struct {
	Post    core.PostModel
	IsQuote bool
}
