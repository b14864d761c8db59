package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Preset keys of the ElevenLabs voice table, mirrored from the voices
// package so the config layer stays free of domain imports.
var presetEnv = map[string]string{
	"vi_female_1": "ELEVEN_VOICE_VI_F1",
	"vi_female_2": "ELEVEN_VOICE_VI_F2",
	"vi_female_3": "ELEVEN_VOICE_VI_F3",
	"vi_male_1":   "ELEVEN_VOICE_VI_M1",
	"vi_male_2":   "ELEVEN_VOICE_VI_M2",
}

var (
	validEngines     = []string{EngineFree, EngineElevenLabs, EngineFPT}
	validTranscoders = []string{TranscoderFFmpeg, TranscoderNative}
	validTransports  = []string{"http", "websocket"}
	validLedgers     = []string{LedgerJSON, LedgerPostgres}
)

// LoadOption configures [Load] and [LoadFromReader].
type LoadOption func(*loadOptions)

type loadOptions struct {
	environ map[string]string
}

// WithEnvironment overlays secrets from environ instead of the process
// environment.
func WithEnvironment(environ map[string]string) LoadOption {
	return func(o *loadOptions) { o.environ = environ }
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied and secrets overlaid from the environment.
func Load(path string, opts ...LoadOption) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, overlays
// the environment and validates the result. An empty document is valid and
// yields the defaults.
func LoadFromReader(r io.Reader, opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := overlayEnv(cfg, o.environ); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadBytes(data []byte, opts ...LoadOption) (*Config, error) {
	return LoadFromReader(bytes.NewReader(data), opts...)
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	setDefault(&cfg.Server.LogLevel, LogInfo)
	setDefault(&cfg.Server.LogFormat, LogFormatText)

	setDefault(&cfg.TTS.Engine, EngineFree)
	setDefault(&cfg.TTS.Free.Language, "vi")
	setDefault(&cfg.TTS.Free.ChunkChars, 200)
	setDefault(&cfg.TTS.Free.Timeout, 15*time.Second)
	setDefault(&cfg.TTS.Premium.Transport, "http")
	setDefault(&cfg.TTS.Premium.Timeout, 30*time.Second)
	setDefault(&cfg.TTS.FPT.Voice, "banmai")
	setDefault(&cfg.TTS.FPT.Timeout, 30*time.Second)
	setDefault(&cfg.TTS.CircuitBreaker.MaxFailures, 5)
	setDefault(&cfg.TTS.CircuitBreaker.ResetTimeout, 30*time.Second)

	setDefault(&cfg.Playback.Speed, 1.0)
	setDefault(&cfg.Playback.Volume, 1.0)
	setDefault(&cfg.Playback.Transcoder, TranscoderFFmpeg)
	setDefault(&cfg.Playback.FFmpegPath, "ffmpeg")
	setDefault(&cfg.Playback.ItemTimeout, 2*time.Minute)

	setDefault(&cfg.Storage.DataDir, "data")
	setDefault(&cfg.Storage.LedgerBackend, LedgerJSON)
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = cfg.Storage.DataDir + "/cache"
	}
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// overlayEnv replaces secrets with their environment values. Variables that
// are unset leave the YAML value in place.
func overlayEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Environment: environ}
	if environ == nil {
		opts.Environment = env.ToMap(os.Environ())
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	for key, name := range presetEnv {
		id := opts.Environment[name]
		if id == "" {
			continue
		}
		if cfg.TTS.Premium.Voices == nil {
			cfg.TTS.Premium.Voices = make(map[string]string, len(presetEnv))
		}
		cfg.TTS.Premium.Voices[key] = id
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json, pretty", cfg.Server.LogFormat))
	}

	errs = appendChoice(errs, "tts.engine", cfg.TTS.Engine, validEngines)
	errs = appendChoice(errs, "tts.premium.transport", cfg.TTS.Premium.Transport, validTransports)
	if cfg.TTS.Free.ChunkChars < 0 {
		errs = append(errs, fmt.Errorf("tts.free.chunk_chars %d must not be negative", cfg.TTS.Free.ChunkChars))
	}
	if cfg.TTS.Free.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("tts.free.requests_per_minute %d must not be negative", cfg.TTS.Free.RequestsPerMinute))
	}
	if cfg.TTS.CircuitBreaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("tts.circuit_breaker.max_failures %d must not be negative", cfg.TTS.CircuitBreaker.MaxFailures))
	}
	for key := range cfg.TTS.Premium.Voices {
		if _, ok := presetEnv[key]; !ok {
			errs = append(errs, fmt.Errorf("tts.premium.voices: unknown preset %q", key))
		}
	}

	if s := cfg.Playback.Speed; s < 0.5 || s > 2.0 {
		errs = append(errs, fmt.Errorf("playback.speed %.2f is out of range [0.5, 2.0]", s))
	}
	if v := cfg.Playback.Volume; v < 0.1 || v > 2.0 {
		errs = append(errs, fmt.Errorf("playback.volume %.2f is out of range [0.1, 2.0]", v))
	}
	errs = appendChoice(errs, "playback.transcoder", cfg.Playback.Transcoder, validTranscoders)
	if cfg.Playback.ItemTimeout < 0 {
		errs = append(errs, fmt.Errorf("playback.item_timeout %s must not be negative", cfg.Playback.ItemTimeout))
	}

	errs = appendChoice(errs, "storage.ledger_backend", cfg.Storage.LedgerBackend, validLedgers)
	if cfg.Storage.LedgerBackend == LedgerPostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required when ledger_backend is postgres"))
	}

	if cfg.TTS.Engine == EngineElevenLabs && cfg.TTS.Premium.APIKey == "" {
		slog.Warn("tts.engine is elevenlabs but no API key is set; sessions will use the free voice")
	}
	if cfg.TTS.Engine == EngineFPT && cfg.TTS.FPT.APIKey == "" {
		slog.Warn("tts.engine is fpt but no API key is set; sessions will use the free voice")
	}

	return errors.Join(errs...)
}

func appendChoice(errs []error, field, value string, valid []string) []error {
	if slices.Contains(valid, value) {
		return errs
	}
	return append(errs, fmt.Errorf("%s %q is invalid; valid values: %v", field, value, valid))
}
