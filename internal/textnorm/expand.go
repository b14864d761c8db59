package textnorm

import (
	"slices"
	"strings"
	"unicode"

	"github.com/MrWong99/chatvoice/internal/lexicon"
)

// letterNames is how each letter is read when an all-caps token is spelled.
var letterNames = map[rune]string{
	'a': "a", 'b': "bê", 'c': "xê", 'd': "đê", 'đ': "đờ", 'e': "e",
	'f': "ép", 'g': "gờ", 'h': "hát", 'i': "i", 'j': "gi", 'k': "ca",
	'l': "el", 'm': "em", 'n': "en", 'o': "o", 'p': "pê", 'q': "quy",
	'r': "a", 's': "ét", 't': "tê", 'u': "u", 'v': "vê", 'w': "đắp liu",
	'x': "ích", 'y': "i dài", 'z': "dét",
}

// expandSlang rewrites abbreviations using a greedy longest match of up to
// [lexicon.MaxPhraseTokens] tokens. Tokens consumed by a match are never
// reconsidered. Unmatched all-caps tokens are spelled out.
func expandSlang(text string, dict Dictionary) string {
	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); {
		if hasPlaceholder(tokens[i]) {
			out = append(out, tokens[i])
			i++
			continue
		}
		matched := false
		for n := min(lexicon.MaxPhraseTokens, len(tokens)-i); n >= 1; n-- {
			if slices.ContainsFunc(tokens[i:i+n], hasPlaceholder) {
				continue
			}
			if pron, ok := dict.Lookup(strings.Join(tokens[i:i+n], " ")); ok {
				out = append(out, pron)
				i += n
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if spelled, ok := spell(tokens[i]); ok {
			out = append(out, spelled)
		} else {
			out = append(out, tokens[i])
		}
		i++
	}
	return strings.Join(out, " ")
}

// spell reads an all-uppercase token (A–Z and Đ) letter by letter.
func spell(tok string) (string, bool) {
	if tok == "" {
		return "", false
	}
	names := make([]string, 0, len(tok))
	for _, r := range tok {
		if !(r >= 'A' && r <= 'Z') && r != 'Đ' {
			return "", false
		}
		names = append(names, letterNames[unicode.ToLower(r)])
	}
	return strings.Join(names, " "), true
}
