package lexicon

import (
	"context"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/MrWong99/chatvoice/internal/jsonfile"
)

// FileLedgerStore keeps the ledger in a JSON document of the shape
// {"base": {"form": count}}. Key order in the file is first-seen order.
type FileLedgerStore struct {
	path string
}

var _ LedgerStore = (*FileLedgerStore)(nil)

// NewFileLedgerStore returns a store backed by the JSON file at path.
func NewFileLedgerStore(path string) *FileLedgerStore {
	return &FileLedgerStore{path: path}
}

// Load implements [LedgerStore]. A missing file is an empty ledger.
func (s *FileLedgerStore) Load(_ context.Context) ([]Observation, error) {
	doc := orderedmap.New[string, *formCounts]()
	if err := jsonfile.Load(s.path, doc); err != nil {
		if jsonfile.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Observation
	for b := doc.Oldest(); b != nil; b = b.Next() {
		if b.Value == nil {
			continue
		}
		for f := b.Value.Oldest(); f != nil; f = f.Next() {
			out = append(out, Observation{Base: b.Key, Form: f.Key, Count: f.Value})
		}
	}
	return out, nil
}

// Record implements [LedgerStore] by rewriting the whole document.
func (s *FileLedgerStore) Record(_ context.Context, all []Observation, _ Observation) error {
	doc := orderedmap.New[string, *formCounts]()
	for _, o := range all {
		forms, ok := doc.Get(o.Base)
		if !ok {
			forms = orderedmap.New[string, int]()
			doc.Set(o.Base, forms)
		}
		forms.Set(o.Form, o.Count)
	}
	return jsonfile.Save(s.path, doc)
}
