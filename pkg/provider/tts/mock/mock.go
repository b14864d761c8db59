// Package mock provides test doubles for the tts.Provider and tts.Source
// interfaces.
//
// Example:
//
//	src := &mock.Source{Audio: []byte("ID3...")}
//	rc, _ := src.Fetch(ctx, tts.Utterance{Text: "xin chào"})
package mock

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// Source is a mock implementation of tts.Source.
type Source struct {
	mu sync.Mutex

	// NameResult is returned by Name. Empty means "mock".
	NameResult string

	// Audio is the stream content returned by Fetch.
	Audio []byte

	// StreamErr, if non-nil, is returned by the stream's Read after Audio has
	// been delivered, simulating an upstream that breaks off.
	StreamErr error

	// FetchErr, if non-nil, is returned by Fetch.
	FetchErr error

	// FetchCalls records every call to Fetch in order.
	FetchCalls []tts.Utterance
}

var _ tts.Source = (*Source)(nil)

// Name implements tts.Source.
func (s *Source) Name() string {
	if s.NameResult == "" {
		return "mock"
	}
	return s.NameResult
}

// Fetch records the call and returns a stream over Audio.
func (s *Source) Fetch(_ context.Context, u tts.Utterance) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FetchCalls = append(s.FetchCalls, u)
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	var r io.Reader = bytes.NewReader(bytes.Clone(s.Audio))
	if s.StreamErr != nil {
		r = io.MultiReader(r, errReader{s.StreamErr})
	}
	return io.NopCloser(r), nil
}

// CallCount returns the number of Fetch calls so far.
func (s *Source) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.FetchCalls)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// PCM is the content of each resource returned by Speak.
	PCM []byte

	// Format of returned resources. Zero means audio.DiscordFormat.
	Format audio.Format

	// Errs maps request text to the error Speak returns for it.
	Errs map[string]error

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []tts.Request
}

var _ tts.Provider = (*Provider)(nil)

// Speak records the call and returns a resource over PCM, or the error
// configured for req.Text.
func (p *Provider) Speak(_ context.Context, req tts.Request) (*audio.Resource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SpeakCalls = append(p.SpeakCalls, req)
	if err := p.Errs[req.Text]; err != nil {
		return nil, err
	}
	format := p.Format
	if format == (audio.Format{}) {
		format = audio.DiscordFormat
	}
	return audio.NewResource(io.NopCloser(bytes.NewReader(bytes.Clone(p.PCM))), format), nil
}

// Calls returns a copy of the recorded requests.
func (p *Provider) Calls() []tts.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tts.Request, len(p.SpeakCalls))
	copy(out, p.SpeakCalls)
	return out
}
