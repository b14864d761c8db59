package textnorm

import (
	"regexp"
	"strings"
)

// Placeholders substituted for content that must not be read aloud.
const (
	PlaceholderCodeBlock  = "[code-block]"
	PlaceholderInlineCode = "[inline-code]"
	PlaceholderLink       = "[link]"
	PlaceholderMention    = "[mention]"
	PlaceholderEmoji      = "[emoji]"
)

type maskRule struct {
	re          *regexp.Regexp
	placeholder string
}

// maskRules run in order. No placeholder contains characters a later rule
// could match, so a later pass never re-matches inside an earlier one.
var maskRules = []maskRule{
	{regexp.MustCompile("(?s)```.*?```"), PlaceholderCodeBlock},
	{regexp.MustCompile("`[^`]+`"), PlaceholderInlineCode},
	{regexp.MustCompile(`(?i)https?://\S+`), PlaceholderLink},
	{regexp.MustCompile(`<(?:@[!&]?|#)\d+>`), PlaceholderMention},
	{regexp.MustCompile(`<a?:\w+:\d+>`), PlaceholderEmoji},
}

var placeholders = []string{
	PlaceholderCodeBlock, PlaceholderInlineCode, PlaceholderLink, PlaceholderMention, PlaceholderEmoji,
}

// hasPlaceholder reports whether tok contains a mask placeholder. Such
// tokens pass through every later stage unchanged.
func hasPlaceholder(tok string) bool {
	for _, p := range placeholders {
		if strings.Contains(tok, p) {
			return true
		}
	}
	return false
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Mask replaces code, links, mentions and custom emoji with placeholders and
// collapses runs of whitespace. It returns the masked text and the original
// matched spans in the order they were replaced.
func Mask(text string) (string, []string) {
	var spans []string
	for _, r := range maskRules {
		text = r.re.ReplaceAllStringFunc(text, func(m string) string {
			spans = append(spans, m)
			return r.placeholder
		})
	}
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), spans
}
