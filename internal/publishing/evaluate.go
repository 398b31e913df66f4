package publishing

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"skyfed/internal/core"
)

const (
	minPollChoices   = 2
	maxPollChoices   = 10
	maxPollChoiceLen = 49
)

// Evaluate applies the publication rules to a resolved draft. It has no side effects:
// the same inputs always yield the same content or the same rejection.
func Evaluate(draft Draft, res *Resolved) (*NormalizedContent, error) {
	text := normalizeText(draft.Text)
	hasMedia := len(res.Media) > 0

	if text == nil && !hasMedia && res.Repost == nil && draft.PollChoices == nil {
		return nil, core.ErrEmptyContent
	}

	if res.Repost != nil && res.Repost.IsPlainRepost() {
		return nil, core.ErrRepostOfRepost
	}
	if res.Reply != nil && res.Reply.IsPlainRepost() {
		return nil, core.ErrReplyToRepost
	}

	isQuote := res.Repost != nil && (text != nil || hasMedia)

	if res.Repost != nil && !isQuote && res.Latest != nil {
		if res.Latest.RepostID != nil && *res.Latest.RepostID == res.Repost.ID {
			return nil, core.ErrRepostSameAsLatest
		}
		if res.Latest.ID == res.Repost.ID {
			return nil, core.ErrRepostLatest
		}
	}

	if err := checkChannel(res, isQuote); err != nil {
		return nil, err
	}

	var poll *core.Poll
	if draft.PollChoices != nil {
		var err error
		if poll, err = normalizePoll(draft.PollChoices); err != nil {
			return nil, err
		}
	}

	mediaIDs := lo.Map(res.Media, func(m core.MediaModel, _ int) string { return m.ID })

	if isDuplicate(res, text, mediaIDs) {
		return nil, core.ErrDuplicatePost
	}

	tags := lo.Uniq(draft.Tags)
	var mentions []string
	if text != nil {
		tags = lo.Uniq(append(tags, Hashtags(*text)...))
		mentions = Mentions(*text)
	}

	visibility := draft.Visibility
	if visibility == "" {
		visibility = core.VisibilityPublic
	}

	post := core.PostModel{
		URI:        draft.URI,
		AuthorID:   res.Author.ID,
		Visibility: visibility,
		Text:       text,
		CW:         normalizeText(draft.CW),
		Tags:       tags,
		MediaIDs:   mediaIDs,
		Mentions:   mentions,
		Poll:       poll,
		ReplyID:    idOf(res.Reply),
		RepostID:   idOf(res.Repost),
	}
	if res.Channel != nil {
		post.ChannelID = lo.ToPtr(res.Channel.ID)
	}

	return &NormalizedContent{Post: post, IsQuote: isQuote}, nil
}

func checkChannel(res *Resolved, isQuote bool) error {
	if res.Channel != nil {
		if res.Reply != nil && !inChannel(res.Reply, res.Channel.ID) {
			return core.ErrReplyOutsideChannel
		}
		if res.Repost != nil && !inChannel(res.Repost, res.Channel.ID) {
			return core.ErrRepostOutsideChannel
		}
		if res.Repost != nil && !isQuote {
			return core.ErrPlainRepostInChannel
		}
		return nil
	}

	if res.Reply != nil && res.Reply.ChannelID != nil {
		return core.ErrReplyIntoChannel
	}
	if res.Repost != nil && res.Repost.ChannelID != nil {
		return core.ErrRepostIntoChannel
	}
	return nil
}

func inChannel(post *core.PostModel, channelID string) bool {
	return post.ChannelID != nil && *post.ChannelID == channelID
}

// normalizePoll trims choices and assigns ordinals. Uniqueness is checked on trimmed text.
func normalizePoll(choices []string) (*core.Poll, error) {
	if len(choices) < minPollChoices || len(choices) > maxPollChoices {
		return nil, core.ErrPollChoiceCount
	}

	trimmed := lo.Map(choices, func(c string, _ int) string { return strings.TrimSpace(c) })

	for _, c := range trimmed {
		if n := utf8.RuneCountInString(c); n < 1 || n > maxPollChoiceLen {
			return nil, core.ErrPollChoiceLength
		}
	}

	if len(lo.Uniq(trimmed)) != len(trimmed) {
		return nil, core.ErrPollChoiceNotUnique
	}

	return &core.Poll{
		Choices: lo.Map(trimmed, func(c string, i int) core.PollChoice {
			return core.PollChoice{ID: i, Text: c, Votes: 0}
		}),
	}, nil
}

// isDuplicate compares against the single most recent post only.
func isDuplicate(res *Resolved, text *string, mediaIDs []string) bool {
	latest := res.Latest
	if latest == nil {
		return false
	}

	return equalPtr(normalizeText(latest.Text), text) &&
		equalPtr(latest.ReplyID, idOf(res.Reply)) &&
		equalPtr(latest.RepostID, idOf(res.Repost)) &&
		sameSet(latest.MediaIDs, mediaIDs)
}

func sameSet(a, b []string) bool {
	a, b = lo.Uniq(a), lo.Uniq(b)
	if len(a) != len(b) {
		return false
	}
	return lo.Every(a, b)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func idOf(post *core.PostModel) *string {
	if post == nil {
		return nil
	}
	return lo.ToPtr(post.ID)
}

func normalizeText(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
