// Package tts defines the speech synthesis abstractions shared by every
// backend.
//
// A [Source] is a raw upstream service: it turns text into an encoded (MP3)
// byte stream. A [Provider] is what the playback queue talks to: it returns a
// playable PCM [audio.Resource] with tempo and volume already applied, or an
// error meaning the item cannot be played. Providers are assembled from
// sources, a transcoder and optionally a cache in internal/speech.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"io"

	"github.com/MrWong99/chatvoice/pkg/audio"
)

var (
	// ErrMissingCredential is returned by a credentialed backend that has no
	// API key configured. Callers may substitute a free backend.
	ErrMissingCredential = errors.New("tts: missing credential")

	// ErrMalformedResponse is returned when a backend answers with a body it
	// cannot interpret (undecodable JSON, missing job descriptor).
	ErrMalformedResponse = errors.New("tts: malformed provider response")
)

// Request is one utterance to be spoken.
type Request struct {
	// Text is the normalized, speakable text.
	Text string

	// SpeakerID identifies the chat user the text came from. Backends with
	// per-user voices resolve it to a voice.
	SpeakerID string

	// Speed is the tempo factor in [0.5, 2.0]. Zero means 1.
	Speed float64

	// Volume is the gain factor in [0.1, 2.0]. Zero means 1.
	Volume float64
}

// Provider synthesizes a request into playable audio.
type Provider interface {
	// Speak returns a PCM resource for req. The resource may still be
	// streaming from upstream when Speak returns; ctx bounds that stream too,
	// so it must outlive playback. The caller must Close the resource.
	Speak(ctx context.Context, req Request) (*audio.Resource, error)
}

// Utterance is a request to a [Source], with the speaker already resolved.
type Utterance struct {
	Text string

	// Voice is the backend-specific voice identifier. Empty means the
	// backend default.
	Voice string

	// Speed is forwarded to backends that have a native rate control.
	Speed float64
}

// Source fetches encoded speech from an upstream service.
type Source interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Fetch returns the MP3 stream for u. A non-nil error means nothing was
	// produced; a read error on the returned stream means the upstream broke
	// off part way. The caller must Close the stream.
	Fetch(ctx context.Context, u Utterance) (io.ReadCloser, error)
}

// Voice describes one voice offered by a backend.
type Voice struct {
	ID       string
	Name     string
	Category string
	Labels   map[string]string
}

// VoiceLister is implemented by backends that can enumerate their voices.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}
