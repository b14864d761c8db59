// Package speech assembles tts.Source backends, the content cache and a
// transcoder into tts.Provider implementations, and dispatches requests to
// the engine a voice session has selected.
//
// [Direct] serves the free backend: fetch, transcode, play, nothing stored.
// [Cached] serves the credentialed backends: audio is looked up by resolved
// voice and text, and a miss is streamed to the transcoder while being
// written to the cache.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MrWong99/chatvoice/internal/cache"
	"github.com/MrWong99/chatvoice/internal/observe"
	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/MrWong99/chatvoice/pkg/audio/transcode"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// VoiceResolver maps a speaker to a backend voice ID. An empty result means
// the backend default.
type VoiceResolver interface {
	Resolve(userID string) string
}

// FixedVoice resolves every speaker to the same voice.
type FixedVoice string

// Resolve implements [VoiceResolver].
func (f FixedVoice) Resolve(string) string { return string(f) }

// credentialed is implemented by sources that need an API key.
type credentialed interface {
	HasCredential() bool
}

// Option configures [Direct] and [Cached].
type Option func(*options)

type options struct {
	log     *slog.Logger
	metrics *observe.Metrics
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records cache lookups on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func transcodeOptions(req tts.Request) transcode.Options {
	return transcode.Options{Tempo: req.Speed, Volume: req.Volume}
}

// Direct fetches and transcodes without caching.
type Direct struct {
	src tts.Source
	tc  transcode.Transcoder
	options
}

var _ tts.Provider = (*Direct)(nil)

// NewDirect returns a provider that speaks through src.
func NewDirect(src tts.Source, tc transcode.Transcoder, opts ...Option) *Direct {
	return &Direct{src: src, tc: tc, options: buildOptions(opts)}
}

// Speak implements tts.Provider.
func (d *Direct) Speak(ctx context.Context, req tts.Request) (*audio.Resource, error) {
	body, err := d.src.Fetch(ctx, tts.Utterance{Text: req.Text, Speed: req.Speed})
	if err != nil {
		return nil, fmt.Errorf("speech: %s: %w", d.src.Name(), err)
	}
	res, err := d.tc.Transcode(ctx, body, transcodeOptions(req))
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("speech: %s: %w", d.src.Name(), err)
	}
	return withUpstream(res, body), nil
}

// Cached speaks through src, storing every cleanly received response in c.
type Cached struct {
	src    tts.Source
	cache  *cache.Cache
	tc     transcode.Transcoder
	voices VoiceResolver
	options
}

var _ tts.Provider = (*Cached)(nil)

// NewCached returns a caching provider. voices may be nil, meaning the
// source's default voice for everyone.
func NewCached(src tts.Source, c *cache.Cache, tc transcode.Transcoder, voices VoiceResolver, opts ...Option) *Cached {
	if voices == nil {
		voices = FixedVoice("")
	}
	return &Cached{src: src, cache: c, tc: tc, voices: voices, options: buildOptions(opts)}
}

// HasCredential reports whether the underlying source can be used.
func (c *Cached) HasCredential() bool {
	if cr, ok := c.src.(credentialed); ok {
		return cr.HasCredential()
	}
	return true
}

// Speak implements tts.Provider. A source without a credential fails with
// tts.ErrMissingCredential before the cache is consulted.
func (c *Cached) Speak(ctx context.Context, req tts.Request) (*audio.Resource, error) {
	if !c.HasCredential() {
		return nil, fmt.Errorf("speech: %s: %w", c.src.Name(), tts.ErrMissingCredential)
	}

	voice := c.voices.Resolve(req.SpeakerID)
	identity := voice
	if identity == "" {
		identity = c.src.Name()
	}

	f, hit, err := c.cache.Open(identity, req.Text)
	if err != nil {
		c.log.WarnContext(ctx, "speech: cache lookup failed, fetching", "voice", identity, "err", err)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(ctx, hit)
	}
	if hit {
		res, err := c.tc.Transcode(ctx, f, transcodeOptions(req))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("speech: cached %s: %w", identity, err)
		}
		return withUpstream(res, f), nil
	}

	body, err := c.src.Fetch(ctx, tts.Utterance{Text: req.Text, Voice: voice, Speed: req.Speed})
	if err != nil {
		return nil, fmt.Errorf("speech: %s: %w", c.src.Name(), err)
	}

	stream := body
	if entry, err := c.cache.Create(identity, req.Text); err != nil {
		c.log.WarnContext(ctx, "speech: cache unavailable, playing uncached", "voice", identity, "err", err)
	} else {
		stream = cache.Tee(body, entry, func(err error) {
			if err != nil {
				c.log.WarnContext(ctx, "speech: cache commit failed", "voice", identity, "err", err)
				return
			}
			c.log.DebugContext(ctx, "speech: cached", "voice", identity, "path", c.cache.Path(identity, req.Text))
		})
	}

	res, err := c.tc.Transcode(ctx, stream, transcodeOptions(req))
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("speech: %s: %w", c.src.Name(), err)
	}
	return withUpstream(res, stream), nil
}

// withUpstream ties the lifetime of upstream to res. Upstream is closed
// first so a transcoder blocked on reading it is released before it is
// stopped.
func withUpstream(res *audio.Resource, upstream io.Closer) *audio.Resource {
	return audio.NewResource(&upstreamCloser{res: res, upstream: upstream}, res.Format())
}

type upstreamCloser struct {
	res      *audio.Resource
	upstream io.Closer
}

func (u *upstreamCloser) Read(p []byte) (int, error) { return u.res.Read(p) }

func (u *upstreamCloser) Close() error {
	return errors.Join(u.upstream.Close(), u.res.Close())
}
