// Package mock provides a test double for the transcode.Transcoder
// interface. It passes the encoded input through unchanged as "PCM".
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/MrWong99/chatvoice/pkg/audio/transcode"
)

// Transcoder is a mock implementation of transcode.Transcoder.
type Transcoder struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by Transcode.
	Err error

	// Format of returned resources. Zero means audio.DiscordFormat.
	Format audio.Format

	// Calls records the options of every Transcode call in order.
	Calls []transcode.Options
}

var _ transcode.Transcoder = (*Transcoder)(nil)

// Transcode records the call and returns a resource that reads src.
func (t *Transcoder) Transcode(_ context.Context, src io.Reader, opts transcode.Options) (*audio.Resource, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, opts)
	if t.Err != nil {
		return nil, t.Err
	}
	format := t.Format
	if format == (audio.Format{}) {
		format = audio.DiscordFormat
	}
	return audio.NewResource(io.NopCloser(src), format), nil
}

// CallCount returns the number of Transcode calls so far.
func (t *Transcoder) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
