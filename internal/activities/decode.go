package activities

import (
	"fmt"
	"strings"

	"github.com/Jeffail/gabs"

	"skyfed/internal/core"
)

// Decode parses an ActivityStreams document. Unrecognised types decode to Unknown;
// only documents that are not JSON objects, or lack a type, are malformed.
func Decode(raw []byte) (Activity, error) {
	container, err := gabs.ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedActivity, err)
	}

	if _, ok := container.Data().(map[string]any); !ok {
		return nil, core.ErrMalformedActivity
	}

	return decode(container)
}

func decode(c *gabs.Container) (Activity, error) {
	id := str(c, "id")
	typ := str(c, "type")
	if typ == "" {
		return nil, core.ErrMalformedActivity
	}

	switch typ {
	case "Create":
		object := c.Path("object")
		if _, ok := object.Data().(map[string]any); !ok {
			return nil, core.ErrMissingObject
		}
		return Create{ID: id, Object: decodeNote(object)}, nil

	case "Delete":
		objectID := objectRef(c)
		if objectID == "" {
			return nil, core.ErrMissingObject
		}
		return Delete{ID: id, ObjectID: objectID}, nil

	case "Follow":
		objectID := objectRef(c)
		if objectID == "" {
			return nil, core.ErrMissingObject
		}
		return Follow{ID: id, ObjectID: objectID}, nil

	case "Accept":
		return Accept{ID: id}, nil

	case "Undo":
		object := c.Path("object")
		if _, ok := object.Data().(map[string]any); !ok {
			// A bare reference cannot tell what is being undone.
			return Undo{ID: id, Object: Unknown{ID: objectRef(c)}}, nil
		}
		if str(object, "type") != "Follow" {
			// Only an undone Follow is acted upon.
			return Undo{ID: id, Object: Unknown{ID: str(object, "id"), Type: str(object, "type")}}, nil
		}
		inner, err := decode(object)
		if err != nil {
			return nil, err
		}
		return Undo{ID: id, Object: inner}, nil

	default:
		return Unknown{ID: id, Type: typ}, nil
	}
}

func decodeNote(c *gabs.Container) Note {
	note := Note{
		ID:           str(c, "id"),
		AttributedTo: str(c, "attributedTo"),
		Content:      optional(c, "content"),
		Summary:      optional(c, "summary"),
		InReplyTo:    optional(c, "inReplyTo"),
		QuoteURL:     optional(c, "quoteUrl"),
		To:           strs(c, "to"),
		CC:           strs(c, "cc"),
	}

	if note.QuoteURL == nil {
		note.QuoteURL = optional(c, "_misskey_quote")
	}

	for _, tag := range children(c, "tag") {
		if str(tag, "type") == "Hashtag" {
			if name := strings.TrimPrefix(str(tag, "name"), "#"); name != "" {
				note.Hashtags = append(note.Hashtags, name)
			}
		}
	}

	for _, choice := range children(c, "oneOf") {
		note.Choices = append(note.Choices, str(choice, "name"))
	}

	for _, attachment := range children(c, "attachment") {
		url := str(attachment, "url")
		if url == "" {
			url = str(attachment, "url.href")
		}
		if url != "" {
			note.Attachments = append(note.Attachments, Attachment{URL: url, MediaType: str(attachment, "mediaType")})
		}
	}

	return note
}

// objectRef returns the object's id whether it is embedded or referenced by URI.
func objectRef(c *gabs.Container) string {
	if s, ok := c.Path("object").Data().(string); ok {
		return s
	}
	return str(c, "object.id")
}

func str(c *gabs.Container, path string) string {
	s, _ := c.Path(path).Data().(string)
	return s
}

func optional(c *gabs.Container, path string) *string {
	s, ok := c.Path(path).Data().(string)
	if !ok {
		return nil
	}
	return &s
}

// strs accepts both a single string and an array of strings.
func strs(c *gabs.Container, path string) []string {
	switch v := c.Path(path).Data().(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func children(c *gabs.Container, path string) []*gabs.Container {
	node := c.Path(path)
	if _, ok := node.Data().([]any); !ok {
		if _, ok := node.Data().(map[string]any); ok {
			return []*gabs.Container{node}
		}
		return nil
	}

	items, err := node.Children()
	if err != nil {
		return nil
	}
	return items
}
