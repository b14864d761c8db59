package textnorm

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	combiningMarks = runes.In(&unicode.RangeTable{
		R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
	})
	dStroke = strings.NewReplacer("đ", "d", "Đ", "D")
)

// StripAccents returns s with every diacritic removed: canonical
// decomposition, combining marks U+0300–U+036F dropped, đ/Đ mapped to d/D.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return dStroke.Replace(out)
}

// HasAccent reports whether s contains a diacritic.
func HasAccent(s string) bool {
	return StripAccents(s) != s
}

// lettersOnly drops every rune that is not a letter.
func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}

// learnAccents records every accented word of raw in the ledger.
func learnAccents(ctx context.Context, raw string, ledger Ledger, log *slog.Logger) {
	for _, tok := range strings.Fields(raw) {
		word := lettersOnly(strings.ToLower(tok))
		if word == "" {
			continue
		}
		base := StripAccents(word)
		if base == word {
			continue
		}
		if _, err := ledger.Observe(ctx, base, word); err != nil {
			log.Warn("textnorm: accent observation not persisted", "base", base, "form", word, "err", err)
		}
	}
}

// restoreAccents replaces diacritic-free words with their most frequently
// observed accented form. Words that already carry a diacritic are kept.
func restoreAccents(text string, ledger Ledger) string {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if hasPlaceholder(tok) {
			continue
		}
		core := lettersOnly(tok)
		if core == "" || HasAccent(core) {
			continue
		}
		best, ok := ledger.Best(strings.ToLower(core))
		if !ok {
			continue
		}
		tokens[i] = strings.Replace(tok, core, matchCase(core, best), 1)
	}
	return strings.Join(tokens, " ")
}

// matchCase gives form the capitalisation of core: all caps when core has
// more than one letter and all are uppercase, else a capital first letter
// when core starts uppercase.
func matchCase(core, form string) string {
	rc := []rune(core)
	if !unicode.IsUpper(rc[0]) {
		return form
	}
	if len(rc) > 1 && strings.ToUpper(core) == core {
		return strings.ToUpper(form)
	}
	r := []rune(form)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
