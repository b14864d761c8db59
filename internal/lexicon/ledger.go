package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Observation is one (base form, accented form) pair with its count.
type Observation struct {
	Base  string
	Form  string
	Count int
}

// LedgerStore persists the accent ledger.
type LedgerStore interface {
	// Load returns every stored observation, grouped by base form in
	// first-seen order and, within a base, forms in first-seen order.
	Load(ctx context.Context) ([]Observation, error)

	// Record persists changed, which has just been incremented. all is the
	// complete ledger in first-seen order for stores that rewrite wholesale.
	Record(ctx context.Context, all []Observation, changed Observation) error
}

type formCounts = orderedmap.OrderedMap[string, int]

// Ledger counts how often each accented spelling of a diacritic-free base
// form has been seen. Counts only grow. The best guess for a base is the form
// with the strictly greatest count; ties go to the form seen first.
//
// Ledger is safe for concurrent use.
type Ledger struct {
	// persistMu orders increments with their writes so a stale snapshot
	// never lands after a newer one. It is taken before mu.
	persistMu sync.Mutex

	mu    sync.Mutex
	bases *orderedmap.OrderedMap[string, *formCounts]
	store LedgerStore
	log   *slog.Logger
}

// NewLedger loads the ledger from store. A nil store keeps the ledger in
// memory. Load failures are logged and produce an empty ledger.
func NewLedger(ctx context.Context, store LedgerStore, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	l := &Ledger{
		bases: orderedmap.New[string, *formCounts](),
		store: store,
		log:   log,
	}
	if store == nil {
		return l
	}

	obs, err := store.Load(ctx)
	if err != nil {
		log.Warn("lexicon: accent ledger unreadable, starting empty", "err", err)
		return l
	}
	for _, o := range obs {
		if o.Base == "" || o.Form == "" || o.Count <= 0 {
			continue
		}
		forms, ok := l.bases.Get(o.Base)
		if !ok {
			forms = orderedmap.New[string, int]()
			l.bases.Set(o.Base, forms)
		}
		prev, _ := forms.Get(o.Form)
		forms.Set(o.Form, prev+o.Count)
	}
	log.Info("lexicon: accent ledger loaded", "bases", l.bases.Len())
	return l
}

// Observe increments the count of form under base, persists the change and
// returns the new count. The increment survives a persistence failure.
func (l *Ledger) Observe(ctx context.Context, base, form string) (int, error) {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	forms, ok := l.bases.Get(base)
	if !ok {
		forms = orderedmap.New[string, int]()
		l.bases.Set(base, forms)
	}
	count, _ := forms.Get(form)
	count++
	forms.Set(form, count)

	changed := Observation{Base: base, Form: form, Count: count}
	var all []Observation
	if l.store != nil {
		all = l.snapshotLocked()
	}
	l.mu.Unlock()

	if l.store == nil {
		return count, nil
	}
	if err := l.store.Record(ctx, all, changed); err != nil {
		l.log.Error("lexicon: failed to persist accent ledger", "base", base, "form", form, "err", err)
		return count, fmt.Errorf("lexicon: persist ledger: %w", err)
	}
	return count, nil
}

// Best returns the most frequently observed form for base.
func (l *Ledger) Best(base string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	forms, ok := l.bases.Get(base)
	if !ok {
		return "", false
	}
	best, bestCount := "", 0
	for p := forms.Oldest(); p != nil; p = p.Next() {
		if p.Value > bestCount {
			best, bestCount = p.Key, p.Value
		}
	}
	return best, bestCount > 0
}

// Count returns how often form has been observed for base.
func (l *Ledger) Count(base, form string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	forms, ok := l.bases.Get(base)
	if !ok {
		return 0
	}
	n, _ := forms.Get(form)
	return n
}

// Snapshot returns every observation in first-seen order.
func (l *Ledger) Snapshot() []Observation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() []Observation {
	var out []Observation
	for b := l.bases.Oldest(); b != nil; b = b.Next() {
		for f := b.Value.Oldest(); f != nil; f = f.Next() {
			out = append(out, Observation{Base: b.Key, Form: f.Key, Count: f.Value})
		}
	}
	return out
}
