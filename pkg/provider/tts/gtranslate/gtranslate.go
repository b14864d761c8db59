// Package gtranslate implements a free tts.Source on top of the Google
// Translate speech endpoint.
//
// The endpoint only accepts short inputs, so text is split into chunks of at
// most [DefaultChunkChars] characters on word boundaries. Chunks are fetched
// one after another and their MP3 bodies concatenated. Requests are paced by
// a token-bucket limiter to avoid being throttled.
package gtranslate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

const (
	// DefaultBaseURL is the public Google Translate TTS endpoint.
	DefaultBaseURL = "https://translate.google.com/translate_tts"

	// DefaultChunkChars is the longest chunk the endpoint reliably accepts.
	DefaultChunkChars = 190

	defaultLanguage          = "vi"
	defaultTimeout           = 10 * time.Second
	defaultRequestsPerMinute = 120

	// slowSpeed and normalSpeed are the ttsspeed values the endpoint knows.
	slowSpeed   = "0.24"
	normalSpeed = "1"
)

// Option is a functional option for configuring the Source.
type Option func(*Source)

// WithBaseURL overrides the endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(s *Source) { s.baseURL = u }
}

// WithLanguage sets the tl parameter. Default "vi".
func WithLanguage(lang string) Option {
	return func(s *Source) { s.language = lang }
}

// WithChunkChars sets the chunk budget in characters.
func WithChunkChars(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.chunkChars = n
		}
	}
}

// WithTimeout bounds each chunk request.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRequestsPerMinute sets the request pacing. Zero or less disables it.
func WithRequestsPerMinute(n int) Option {
	return func(s *Source) {
		if n <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.httpClient = c }
}

// Source fetches speech from Google Translate. It needs no credential.
type Source struct {
	baseURL    string
	language   string
	chunkChars int
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
}

var _ tts.Source = (*Source)(nil)

// New returns a Source with defaults applied.
func New(opts ...Option) *Source {
	s := &Source{
		baseURL:    DefaultBaseURL,
		language:   defaultLanguage,
		chunkChars: DefaultChunkChars,
		timeout:    defaultTimeout,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMinute), 1),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements tts.Source.
func (s *Source) Name() string { return "gtts" }

// Fetch implements tts.Source. The whole text is downloaded before Fetch
// returns; a failure of any chunk fails the call.
func (s *Source) Fetch(ctx context.Context, u tts.Utterance) (io.ReadCloser, error) {
	chunks := Chunk(u.Text, s.chunkChars)
	if len(chunks) == 0 {
		return nil, errors.New("gtranslate: empty text")
	}
	speed := normalSpeed
	if u.Speed > 0 && u.Speed < 1 {
		speed = slowSpeed
	}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("gtranslate: rate limit wait: %w", err)
		}
		if err := s.fetchChunk(ctx, &buf, chunk, i, len(chunks), speed); err != nil {
			return nil, fmt.Errorf("gtranslate: chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return io.NopCloser(&buf), nil
}

func (s *Source) fetchChunk(ctx context.Context, dst *bytes.Buffer, chunk string, idx, total int, speed string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", s.language)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))
	q.Set("client", "tw-ob")
	q.Set("prev", "input")
	q.Set("ttsspeed", speed)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return nil
}

// Chunk splits text into pieces of at most limit characters, breaking only
// between words. A single word longer than limit becomes its own chunk and is
// never split.
func Chunk(text string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
