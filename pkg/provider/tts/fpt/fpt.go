// Package fpt implements a tts.Source backed by the FPT.AI text-to-speech
// API. Synthesis is asynchronous: the first request returns a job descriptor
// whose async URL serves the MP3 once it is ready.
package fpt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

const (
	// DefaultURL is the v5 synthesis endpoint.
	DefaultURL = "https://api.fpt.ai/hmi/tts/v5"

	// DefaultVoice is a northern female voice.
	DefaultVoice = "banmai"

	// MaxChars is the longest text sent in one request; longer input is
	// truncated.
	MaxChars = 4900

	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring the Source.
type Option func(*Source)

// WithURL overrides the synthesis endpoint.
func WithURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.url = u
		}
	}
}

// WithVoice sets the voice used when an utterance names none.
func WithVoice(v string) Option {
	return func(s *Source) {
		if v != "" {
			s.voice = v
		}
	}
}

// WithTimeout bounds each request including the audio download.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// Source implements tts.Source backed by FPT.AI.
type Source struct {
	apiKey     string
	url        string
	voice      string
	httpClient *http.Client
}

var _ tts.Source = (*Source)(nil)

// New creates a Source. An empty apiKey makes every call fail with
// tts.ErrMissingCredential.
func New(apiKey string, opts ...Option) *Source {
	s := &Source{
		apiKey:     apiKey,
		url:        DefaultURL,
		voice:      DefaultVoice,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements tts.Source.
func (s *Source) Name() string { return "fpt" }

// HasCredential reports whether an API key is configured.
func (s *Source) HasCredential() bool { return s.apiKey != "" }

// job is the synthesis response.
type job struct {
	Error   int    `json:"error"`
	Async   string `json:"async"`
	Message string `json:"message"`
}

// Fetch implements tts.Source. Speed is left to the transcoder; the request
// always asks for the normal rate.
func (s *Source) Fetch(ctx context.Context, u tts.Utterance) (io.ReadCloser, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("fpt: %w", tts.ErrMissingCredential)
	}
	text := Truncate(strings.TrimSpace(u.Text), MaxChars)
	if text == "" {
		return nil, fmt.Errorf("fpt: empty text")
	}
	voice := u.Voice
	if voice == "" {
		voice = s.voice
	}

	j, err := s.submit(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	return s.download(ctx, j.Async)
}

func (s *Source) submit(ctx context.Context, text, voice string) (job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(text))
	if err != nil {
		return job{}, fmt.Errorf("fpt: build request: %w", err)
	}
	req.Header.Set("api_key", s.apiKey)
	req.Header.Set("voice", voice)
	req.Header.Set("speed", "0")
	req.Header.Set("format", "mp3")
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return job{}, fmt.Errorf("fpt: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return job{}, fmt.Errorf("fpt: unexpected status %d", resp.StatusCode)
	}
	var j job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return job{}, fmt.Errorf("fpt: %w: %v", tts.ErrMalformedResponse, err)
	}
	if j.Error != 0 || j.Async == "" {
		return job{}, fmt.Errorf("fpt: %w: error=%d async=%q message=%q", tts.ErrMalformedResponse, j.Error, j.Async, j.Message)
	}
	return j, nil
}

func (s *Source) download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fpt: %w: async url: %v", tts.ErrMalformedResponse, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fpt: download: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("fpt: download: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
