package publishing

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"skyfed/internal/core"
)

var (
	hashtagPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_&/#])#([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_@/.])@([A-Za-z0-9_]+)(?:@([A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+))?`)
)

// Hashtags returns the distinct hashtags in text, in order of appearance.
func Hashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)

	return lo.Uniq(lo.Map(matches, func(m []string, _ int) string {
		return m[1]
	}))
}

// Mentions returns the distinct mentioned handles in text, rendered as "user" or "user@host".
func Mentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)

	return lo.Uniq(lo.Map(matches, func(m []string, _ int) string {
		return core.Acct(m[1], strings.ToLower(m[2]))
	}))
}

func SplitAcct(acct string) (string, string) {
	acct = strings.TrimPrefix(acct, "@")
	username, host, _ := strings.Cut(acct, "@")
	return username, host
}
