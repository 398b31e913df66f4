package api

import (
	"github.com/go-playground/validator/v10"

	"skyfed/internal/core"
	"skyfed/internal/publishing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type pollRequest struct {
	Choices []string `json:"choices" validate:"required"`
}

type createPostRequest struct {
	Visibility string   `json:"visibility" validate:"omitempty,oneof=public unlisted private direct"`
	Text       *string  `json:"text" validate:"omitempty,max=3000"`
	CW         *string  `json:"cw" validate:"omitempty,max=100"`
	Tags       []string `json:"tags" validate:"omitempty,max=32,dive,min=1,max=128"`
	MediaIDs   []string `json:"mediaIds" validate:"omitempty,dive,required"`

	Poll *pollRequest `json:"poll"`

	ReplyID   *string `json:"replyId" validate:"omitempty,min=1"`
	RepostID  *string `json:"repostId" validate:"omitempty,min=1"`
	ChannelID *string `json:"channelId" validate:"omitempty,min=1"`
}

func (r createPostRequest) draft(authorID string) publishing.Draft {
	draft := publishing.Draft{
		AuthorID:   authorID,
		Visibility: core.Visibility(r.Visibility),
		Text:       r.Text,
		CW:         r.CW,
		Tags:       r.Tags,
		MediaIDs:   r.MediaIDs,
		ReplyID:    r.ReplyID,
		RepostID:   r.RepostID,
		ChannelID:  r.ChannelID,
	}

	if r.Poll != nil {
		draft.PollChoices = append([]string{}, r.Poll.Choices...)
	}

	return draft
}

type createReactionRequest struct {
	Reaction string `json:"reaction" validate:"required"`
}
