// Package lexicon holds the two process-wide stores the text normalizer reads
// from: the slang [Dictionary] and the accent [Ledger].
//
// Both load once at startup and write through on every mutation. Persistence
// failures never discard in-memory state; they are returned to the caller
// (and logged) so the host process keeps running.
package lexicon

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/MrWong99/chatvoice/internal/jsonfile"
)

// ErrInvalidPhrase is returned by [Dictionary.Add] when the phrase is empty
// or longer than [MaxPhraseTokens] tokens.
var ErrInvalidPhrase = errors.New("lexicon: invalid phrase")

// Dictionary merges the builtin abbreviation table with user overrides.
// Lookups are case-insensitive; overrides win on key collision.
//
// Dictionary is safe for concurrent use.
type Dictionary struct {
	// persistMu serializes edits with their file writes; taken before mu.
	persistMu sync.Mutex

	mu        sync.RWMutex
	builtin   map[string]string
	overrides map[string]string
	path      string
	log       *slog.Logger
}

// DictionaryOption configures a [Dictionary].
type DictionaryOption func(*Dictionary)

// WithBuiltin replaces the shipped [Builtin] table.
func WithBuiltin(m map[string]string) DictionaryOption {
	return func(d *Dictionary) {
		d.builtin = make(map[string]string, len(m))
		for k, v := range m {
			d.builtin[NormalizePhrase(k)] = v
		}
	}
}

// WithDictionaryLogger sets the logger used for load and save diagnostics.
func WithDictionaryLogger(l *slog.Logger) DictionaryOption {
	return func(d *Dictionary) {
		d.log = l
	}
}

// NewDictionary creates a Dictionary whose overrides are persisted at path.
// An empty path keeps overrides in memory only. A missing or unparsable file
// yields an empty override table.
func NewDictionary(path string, opts ...DictionaryOption) *Dictionary {
	d := &Dictionary{
		builtin:   Builtin,
		overrides: make(map[string]string),
		path:      path,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	if path == "" {
		return d
	}

	var stored map[string]string
	if err := jsonfile.Load(path, &stored); err != nil {
		if !jsonfile.IsNotExist(err) {
			d.log.Warn("lexicon: slang overrides unreadable, starting empty", "path", path, "err", err)
		}
		return d
	}
	for k, v := range stored {
		if k = NormalizePhrase(k); k != "" {
			d.overrides[k] = v
		}
	}
	d.log.Info("lexicon: slang overrides loaded", "path", path, "count", len(d.overrides))
	return d
}

// NormalizePhrase lowercases phrase and collapses its whitespace.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// Lookup returns the pronunciation of phrase, preferring overrides.
func (d *Dictionary) Lookup(phrase string) (string, bool) {
	key := NormalizePhrase(phrase)
	d.mu.RLock()
	defer d.mu.RUnlock()
	if v, ok := d.overrides[key]; ok {
		return v, true
	}
	v, ok := d.builtin[key]
	return v, ok
}

// Add stores an override and persists the table. The override stays in
// memory even when persisting fails.
func (d *Dictionary) Add(phrase, pronunciation string) error {
	key := NormalizePhrase(phrase)
	if key == "" || len(strings.Fields(key)) > MaxPhraseTokens {
		return fmt.Errorf("%w: %q", ErrInvalidPhrase, phrase)
	}
	pronunciation = strings.TrimSpace(pronunciation)
	if pronunciation == "" {
		return fmt.Errorf("%w: empty pronunciation for %q", ErrInvalidPhrase, phrase)
	}

	d.persistMu.Lock()
	defer d.persistMu.Unlock()

	d.mu.Lock()
	d.overrides[key] = pronunciation
	snapshot := maps.Clone(d.overrides)
	d.mu.Unlock()

	return d.persist(snapshot)
}

// Remove deletes an override. It reports whether the phrase was present.
// Builtin entries cannot be removed.
func (d *Dictionary) Remove(phrase string) (bool, error) {
	key := NormalizePhrase(phrase)

	d.persistMu.Lock()
	defer d.persistMu.Unlock()

	d.mu.Lock()
	if _, ok := d.overrides[key]; !ok {
		d.mu.Unlock()
		return false, nil
	}
	delete(d.overrides, key)
	snapshot := maps.Clone(d.overrides)
	d.mu.Unlock()

	return true, d.persist(snapshot)
}

// Overrides returns a copy of the user override table.
func (d *Dictionary) Overrides() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.overrides)
}

func (d *Dictionary) persist(snapshot map[string]string) error {
	if d.path == "" {
		return nil
	}
	if err := jsonfile.Save(d.path, snapshot); err != nil {
		d.log.Error("lexicon: failed to persist slang overrides", "path", d.path, "err", err)
		return fmt.Errorf("lexicon: persist slang: %w", err)
	}
	return nil
}
