// Package elevenlabs provides an ElevenLabs-backed tts.Source. Audio is
// requested as MP3 either over the HTTP streaming endpoint (default) or the
// stream-input WebSocket API.
package elevenlabs

import (
	"bytes"
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
	// DefaultBaseURL is the public ElevenLabs API.
	DefaultBaseURL = "https://api.elevenlabs.io"

	defaultModel     = "eleven_turbo_v2_5"
	defaultLanguage  = "vi"
	defaultOutputFmt = "mp3_44100_128"
	defaultTimeout   = 30 * time.Second
)

// Transport selects how audio is requested.
type Transport string

const (
	// TransportHTTP POSTs to /v1/text-to-speech/{voice}/stream.
	TransportHTTP Transport = "http"

	// TransportWebSocket uses /v1/text-to-speech/{voice}/stream-input.
	TransportWebSocket Transport = "websocket"
)

// VoiceSettings mirrors the ElevenLabs voice_settings object.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings are tuned for Vietnamese chat read-out.
var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.4,
	SimilarityBoost: 0.8,
	Style:           0.3,
	UseSpeakerBoost: true,
}

// Option is a functional option for configuring the Source.
type Option func(*Source)

// WithModel sets the ElevenLabs model ID.
func WithModel(model string) Option {
	return func(s *Source) {
		if model != "" {
			s.model = model
		}
	}
}

// WithBaseURL overrides the API root (scheme and host, no trailing path).
func WithBaseURL(u string) Option {
	return func(s *Source) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTransport selects HTTP or WebSocket delivery.
func WithTransport(t Transport) Option {
	return func(s *Source) {
		if t != "" {
			s.transport = t
		}
	}
}

// WithDefaultVoice sets the voice used when an utterance names none.
func WithDefaultVoice(id string) Option {
	return func(s *Source) { s.defaultVoice = id }
}

// WithVoiceSettings replaces [DefaultVoiceSettings].
func WithVoiceSettings(vs VoiceSettings) Option {
	return func(s *Source) { s.settings = vs }
}

// WithTimeout bounds each request including the body transfer.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.httpClient.Timeout = d
			s.timeout = d
		}
	}
}

// Source implements tts.Source backed by ElevenLabs.
type Source struct {
	apiKey       string
	baseURL      string
	model        string
	transport    Transport
	defaultVoice string
	settings     VoiceSettings
	timeout      time.Duration
	httpClient   *http.Client
}

var (
	_ tts.Source      = (*Source)(nil)
	_ tts.VoiceLister = (*Source)(nil)
)

// New creates a Source. An empty apiKey is accepted: every call then fails
// with tts.ErrMissingCredential so callers can fall back.
func New(apiKey string, opts ...Option) *Source {
	s := &Source{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      defaultModel,
		transport:  TransportHTTP,
		settings:   DefaultVoiceSettings,
		timeout:    defaultTimeout,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements tts.Source.
func (s *Source) Name() string { return "elevenlabs" }

// HasCredential reports whether an API key is configured.
func (s *Source) HasCredential() bool { return s.apiKey != "" }

// Fetch implements tts.Source.
func (s *Source) Fetch(ctx context.Context, u tts.Utterance) (io.ReadCloser, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: %w", tts.ErrMissingCredential)
	}
	voice := u.Voice
	if voice == "" {
		voice = s.defaultVoice
	}
	if voice == "" {
		return nil, fmt.Errorf("elevenlabs: no voice configured")
	}
	if s.transport == TransportWebSocket {
		return s.fetchWebSocket(ctx, voice, u.Text)
	}
	return s.fetchHTTP(ctx, voice, u.Text)
}

// speechRequest is the body of POST /v1/text-to-speech/{voice}/stream.
type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	LanguageCode  string        `json:"language_code"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

func (s *Source) fetchHTTP(ctx context.Context, voice, text string) (io.ReadCloser, error) {
	body, err := json.Marshal(speechRequest{
		Text:          text,
		ModelID:       s.model,
		LanguageCode:  defaultLanguage,
		VoiceSettings: s.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?output_format=%s", s.baseURL, voice, defaultOutputFmt)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("elevenlabs: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp.Body, nil
}

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available for the configured API key.
func (s *Source) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: %w", tts.ErrMissingCredential)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices read: %w", err)
	}
	voices, err := parseVoicesResponse(data)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w: %v", tts.ErrMalformedResponse, err)
	}
	return voices, nil
}

// parseVoicesResponse parses the /v1/voices body.
func parseVoicesResponse(data []byte) ([]tts.Voice, error) {
	var vr voicesResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, err
	}
	voices := make([]tts.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		voices = append(voices, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Category: v.Category,
			Labels:   v.Labels,
		})
	}
	return voices, nil
}
