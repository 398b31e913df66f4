package federation

import (
	"time"

	"github.com/samber/lo"

	"skyfed/internal/core"
)

const (
	ContextURI = "https://www.w3.org/ns/activitystreams"
	PublicURI  = "https://www.w3.org/ns/activitystreams#Public"
)

// PostURI is the canonical URI of a post: its origin URI for remote posts, a local URL otherwise.
func PostURI(baseURL string, post *core.PostModel) string {
	if post.URI != nil {
		return *post.URI
	}
	return baseURL + "/posts/" + post.ID
}

func FollowersURI(actor *core.ActorModel) string {
	return actor.URI + "/followers"
}

// Refs carries the posts and actors a note points to.
type Refs struct {
	Reply     *core.PostModel
	Repost    *core.PostModel
	Mentioned []core.ActorModel
}

func RenderNote(baseURL string, author *core.ActorModel, post *core.PostModel, refs Refs) map[string]any {
	to, cc := audience(author, post, refs.Mentioned)

	note := map[string]any{
		"id":           PostURI(baseURL, post),
		"type":         "Note",
		"attributedTo": author.URI,
		"published":    post.CreatedAt.UTC().Format(time.RFC3339),
		"to":           to,
		"cc":           cc,
		"tag":          renderTags(post, refs.Mentioned),
	}

	if post.Text != nil {
		note["content"] = *post.Text
	}
	if post.CW != nil {
		note["summary"] = *post.CW
		note["sensitive"] = true
	}
	if refs.Reply != nil {
		note["inReplyTo"] = PostURI(baseURL, refs.Reply)
	}
	if refs.Repost != nil {
		note["quoteUrl"] = PostURI(baseURL, refs.Repost)
	}
	if post.Poll != nil {
		note["type"] = "Question"
		note["oneOf"] = lo.Map(post.Poll.Choices, func(c core.PollChoice, _ int) map[string]any {
			return map[string]any{
				"type":    "Note",
				"name":    c.Text,
				"replies": map[string]any{"type": "Collection", "totalItems": c.Votes},
			}
		})
	}

	return note
}

// RenderCreate wraps a note. A plain repost is rendered as an Announce.
func RenderCreate(baseURL string, author *core.ActorModel, post *core.PostModel, refs Refs) map[string]any {
	if post.IsPlainRepost() && refs.Repost != nil {
		to, cc := audience(author, post, refs.Mentioned)
		return map[string]any{
			"@context":  ContextURI,
			"id":        PostURI(baseURL, post) + "/activity",
			"type":      "Announce",
			"actor":     author.URI,
			"published": post.CreatedAt.UTC().Format(time.RFC3339),
			"to":        to,
			"cc":        cc,
			"object":    PostURI(baseURL, refs.Repost),
		}
	}

	note := RenderNote(baseURL, author, post, refs)

	return map[string]any{
		"@context":  ContextURI,
		"id":        PostURI(baseURL, post) + "/activity",
		"type":      "Create",
		"actor":     author.URI,
		"published": note["published"],
		"to":        note["to"],
		"cc":        note["cc"],
		"object":    note,
	}
}

// RenderAccept acknowledges a remote Follow.
func RenderAccept(followee *core.ActorModel, follower *core.ActorModel, followID string) map[string]any {
	return map[string]any{
		"@context": ContextURI,
		"id":       followee.URI + "/accepts/" + core.NewID(),
		"type":     "Accept",
		"actor":    followee.URI,
		"object": map[string]any{
			"id":     followID,
			"type":   "Follow",
			"actor":  follower.URI,
			"object": followee.URI,
		},
	}
}

func audience(author *core.ActorModel, post *core.PostModel, mentioned []core.ActorModel) ([]string, []string) {
	mentionURIs := lo.Map(mentioned, func(a core.ActorModel, _ int) string { return a.URI })

	switch post.Visibility {
	case core.VisibilityUnlisted:
		return []string{FollowersURI(author)}, append([]string{PublicURI}, mentionURIs...)
	case core.VisibilityPrivate:
		return []string{FollowersURI(author)}, mentionURIs
	case core.VisibilityDirect:
		return mentionURIs, []string{}
	default:
		return []string{PublicURI}, append([]string{FollowersURI(author)}, mentionURIs...)
	}
}

func renderTags(post *core.PostModel, mentioned []core.ActorModel) []map[string]any {
	tags := lo.Map(post.Tags, func(t string, _ int) map[string]any {
		return map[string]any{"type": "Hashtag", "name": "#" + t}
	})

	for _, a := range mentioned {
		tags = append(tags, map[string]any{"type": "Mention", "name": "@" + a.Acct(), "href": a.URI})
	}

	return tags
}
