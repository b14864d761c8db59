package lexicon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestDictionary_Lookup(t *testing.T) {
	t.Parallel()

	d := NewDictionary("", WithBuiltin(map[string]string{
		"vl":      "vãi lờ",
		"Bh":      "bây giờ",
		"ko biet": "không biết",
	}))

	tests := []struct {
		phrase string
		want   string
		found  bool
	}{
		{"vl", "vãi lờ", true},
		{"VL", "vãi lờ", true},
		{"bh", "bây giờ", true},
		{"ko   biet", "không biết", true},
		{"xyz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			t.Parallel()
			got, ok := d.Lookup(tt.phrase)
			if ok != tt.found || got != tt.want {
				t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.phrase, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestDictionary_OverrideWins(t *testing.T) {
	t.Parallel()

	d := NewDictionary("", WithBuiltin(map[string]string{"k": "không"}))
	if err := d.Add("K", "ca"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, _ := d.Lookup("k")
	if got != "ca" {
		t.Errorf("Lookup(k) = %q, want override %q", got, "ca")
	}

	removed, err := d.Remove("k")
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", removed, err)
	}
	got, _ = d.Lookup("k")
	if got != "không" {
		t.Errorf("after Remove, Lookup(k) = %q, want builtin %q", got, "không")
	}
}

func TestDictionary_RemoveBuiltinIsNoop(t *testing.T) {
	t.Parallel()

	d := NewDictionary("", WithBuiltin(map[string]string{"r": "rồi"}))
	removed, err := d.Remove("r")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed {
		t.Error("Remove reported a builtin entry as removed")
	}
	if _, ok := d.Lookup("r"); !ok {
		t.Error("builtin entry disappeared")
	}
}

func TestDictionary_AddRejectsInvalid(t *testing.T) {
	t.Parallel()

	d := NewDictionary("")
	tests := []struct {
		name, phrase, pron string
	}{
		{"empty phrase", "   ", "x"},
		{"too many tokens", "a b c d e f", "x"},
		{"empty pronunciation", "abc", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := d.Add(tt.phrase, tt.pron)
			if !errors.Is(err, ErrInvalidPhrase) {
				t.Errorf("Add(%q, %q) error = %v, want ErrInvalidPhrase", tt.phrase, tt.pron, err)
			}
		})
	}
}

func TestDictionary_PersistsAndReloads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom_slang.json")
	d := NewDictionary(path)
	if err := d.Add("Hnay", "hôm nay"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reloaded := NewDictionary(path)
	got, ok := reloaded.Lookup("hnay")
	if !ok || got != "hôm nay" {
		t.Errorf("reloaded Lookup(hnay) = (%q, %v), want (%q, true)", got, ok, "hôm nay")
	}
	if n := len(reloaded.Overrides()); n != 1 {
		t.Errorf("Overrides() has %d entries, want 1", n)
	}
}

func TestDictionary_CorruptFileFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom_slang.json")
	if err := os.WriteFile(path, []byte(`["not", "an", "object"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDictionary(path, WithBuiltin(map[string]string{"dc": "được"}))
	if n := len(d.Overrides()); n != 0 {
		t.Errorf("Overrides() has %d entries, want 0", n)
	}
	if got, _ := d.Lookup("dc"); got != "được" {
		t.Errorf("builtin lookup = %q, want %q", got, "được")
	}
}

func TestDictionary_PersistFailureKeepsMemory(t *testing.T) {
	t.Parallel()

	// A regular file where a directory is expected makes every save fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	d := NewDictionary(filepath.Join(blocker, "custom_slang.json"))

	if err := d.Add("ok", "ổn"); err == nil {
		t.Fatal("expected persist error")
	}
	if got, ok := d.Lookup("ok"); !ok || got != "ổn" {
		t.Errorf("in-memory override lost: Lookup = (%q, %v)", got, ok)
	}
}

func TestDictionary_ConcurrentAddsAllPersisted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom_slang.json")
	d := NewDictionary(path)

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Add(fmt.Sprintf("tu%d", i), "doc"); err != nil {
				t.Errorf("Add: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(NewDictionary(path).Overrides()); got != n {
		t.Errorf("reloaded %d overrides, want %d", got, n)
	}
}
