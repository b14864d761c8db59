// Package cache stores synthesized speech on disk, addressed by speaker
// identity and the SHA-256 of the spoken text.
//
// Layout: <dir>/<speaker>/<sha256hex>.mp3. Entries are written once and never
// invalidated or evicted; an operator may delete the directory at any time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Extension is the file extension of cached audio.
const Extension = ".mp3"

// Cache is a content-addressed audio store. It is safe for concurrent use;
// concurrent writers of the same key race benignly, the last rename wins.
type Cache struct {
	dir string
}

// New creates the cache directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create %q: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// Key returns the hex SHA-256 of text.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Path returns where the entry for (speaker, text) lives.
func (c *Cache) Path(speaker, text string) string {
	return filepath.Join(c.dir, safeName(speaker), Key(text)+Extension)
}

// Open returns the cached audio for (speaker, text). The boolean is false on
// a miss, in which case the file is nil and err is nil.
func (c *Cache) Open(speaker, text string) (*os.File, bool, error) {
	f, err := os.Open(c.Path(speaker, text))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: open: %w", err)
	}
	return f, true, nil
}

// Create starts writing the entry for (speaker, text). Nothing is visible
// under the final name until [Entry.Commit].
func (c *Cache) Create(speaker, text string) (*Entry, error) {
	final := c.Path(speaker, text)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".pending-*"+Extension)
	if err != nil {
		return nil, fmt.Errorf("cache: create temp: %w", err)
	}
	return &Entry{tmp: tmp, final: final}, nil
}

// Entry is an in-progress cache write.
type Entry struct {
	tmp   *os.File
	final string

	once sync.Once
	err  error
}

// Write implements io.Writer.
func (e *Entry) Write(p []byte) (int, error) {
	return e.tmp.Write(p)
}

// Commit makes the entry visible under its final name. Calling Commit or
// Abort again has no effect.
func (e *Entry) Commit() error {
	e.once.Do(func() {
		if err := e.tmp.Sync(); err != nil {
			e.discard()
			e.err = fmt.Errorf("cache: sync: %w", err)
			return
		}
		if err := e.tmp.Close(); err != nil {
			os.Remove(e.tmp.Name())
			e.err = fmt.Errorf("cache: close: %w", err)
			return
		}
		if err := os.Rename(e.tmp.Name(), e.final); err != nil {
			os.Remove(e.tmp.Name())
			e.err = fmt.Errorf("cache: commit: %w", err)
		}
	})
	return e.err
}

// Abort discards the partial entry.
func (e *Entry) Abort() {
	e.once.Do(e.discard)
}

func (e *Entry) discard() {
	e.tmp.Close()
	os.Remove(e.tmp.Name())
}

// Tee returns a reader that yields src while copying it into entry. The entry
// is committed when src reaches io.EOF and aborted on any other read error,
// a failed cache write, or Close before EOF. onCommit, if set, receives the
// commit result.
func Tee(src io.ReadCloser, entry *Entry, onCommit func(error)) io.ReadCloser {
	return &tee{src: src, entry: entry, onCommit: onCommit}
}

type tee struct {
	src      io.ReadCloser
	entry    *Entry
	onCommit func(error)
	broken   bool
}

func (t *tee) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 && !t.broken {
		if _, werr := t.entry.Write(p[:n]); werr != nil {
			t.broken = true
			t.entry.Abort()
			t.report(fmt.Errorf("cache: write: %w", werr))
		}
	}
	switch {
	case errors.Is(err, io.EOF):
		if !t.broken {
			t.report(t.entry.Commit())
		}
	case err != nil:
		t.entry.Abort()
	}
	return n, err
}

func (t *tee) Close() error {
	t.entry.Abort()
	return t.src.Close()
}

func (t *tee) report(err error) {
	if t.onCommit != nil {
		t.onCommit(err)
	}
}

// safeName maps a speaker identity onto a single path element.
func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "_"
	}
	return s
}
