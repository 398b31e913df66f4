package publishing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skyfed/internal/publishing"
)

func TestHashtags(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"#go at the start":        {"go"},
		"hello #test and #test":   {"test"},
		"one #a two #b":           {"a", "b"},
		"not a tag: foo#bar":      nil,
		"https://example.com/#id": nil,
		"unicode #тест":           {"тест"},
	}

	for text, expected := range cases {
		t.Run(text, func(t *testing.T) {
			t.Parallel()

			tags := publishing.Hashtags(text)
			if expected == nil {
				assert.Empty(t, tags)
				return
			}
			assert.Equal(t, expected, tags)
		})
	}
}

func TestMentions(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"hello @bob":                  {"bob"},
		"@bob @bob":                   {"bob"},
		"cc @carol@Remote.Example":    {"carol@remote.example"},
		"mail me at someone@bob.com":  nil,
		"@alice and @dave@other.site": {"alice", "dave@other.site"},
	}

	for text, expected := range cases {
		t.Run(text, func(t *testing.T) {
			t.Parallel()

			mentions := publishing.Mentions(text)
			if expected == nil {
				assert.Empty(t, mentions)
				return
			}
			assert.Equal(t, expected, mentions)
		})
	}
}

func TestSplitAcct(t *testing.T) {
	t.Parallel()

	username, host := publishing.SplitAcct("@bob@example.com")
	assert.Equal(t, "bob", username)
	assert.Equal(t, "example.com", host)

	username, host = publishing.SplitAcct("alice")
	assert.Equal(t, "alice", username)
	assert.Empty(t, host)
}
