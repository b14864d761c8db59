// Package textnorm turns a raw chat message into text a Vietnamese speech
// engine can read aloud.
//
// [Normalizer.Normalize] runs five stages in a fixed order:
//
//  1. mask code, links, mentions and custom emoji
//  2. expand slang with a greedy longest match, spelling all-caps tokens
//  3. learn accented spellings from the raw, unmasked input
//  4. restore accents on diacritic-free words
//  5. spell out numbers
//
// The pipeline is total: every input yields a result.
package textnorm

import (
	"context"
	"log/slog"

	"golang.org/x/text/unicode/norm"
)

// Dictionary resolves slang phrases to their pronunciation.
type Dictionary interface {
	Lookup(phrase string) (string, bool)
}

// Ledger stores observed accented spellings.
type Ledger interface {
	Observe(ctx context.Context, base, form string) (int, error)
	Best(base string) (string, bool)
}

// Result is the outcome of normalizing one message.
type Result struct {
	// Text is the speakable text.
	Text string

	// Masked holds the original spans replaced by placeholders, in
	// replacement order. Intended for logging only.
	Masked []string
}

// Normalizer runs the normalization pipeline against a shared dictionary and
// ledger. It is safe for concurrent use if both collaborators are.
type Normalizer struct {
	dict   Dictionary
	ledger Ledger
	learn  bool
	log    *slog.Logger
}

// Option configures a [Normalizer].
type Option func(*Normalizer)

// WithoutLearning disables stage 3 so the ledger is only read.
func WithoutLearning() Option {
	return func(n *Normalizer) {
		n.learn = false
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		n.log = l
	}
}

// New creates a Normalizer.
func New(dict Dictionary, ledger Ledger, opts ...Option) *Normalizer {
	n := &Normalizer{
		dict:   dict,
		ledger: ledger,
		learn:  true,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize converts raw into speakable text.
func (n *Normalizer) Normalize(ctx context.Context, raw string) Result {
	raw = norm.NFC.String(raw)

	masked, spans := Mask(raw)
	text := expandSlang(masked, n.dict)
	if n.learn {
		learnAccents(ctx, raw, n.ledger, n.log)
	}
	text = restoreAccents(text, n.ledger)
	text = NormalizeNumerals(text)

	return Result{Text: text, Masked: spans}
}
