package config_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/chatvoice/internal/config"
	"github.com/MrWong99/chatvoice/pkg/audio/transcode"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info
  log_format: json

discord:
  token: yaml-token
  guild_id: "123"
  admin_role_id: "456"
  owner_id: "789"

tts:
  engine: elevenlabs
  free:
    language: vi
    chunk_chars: 180
    requests_per_minute: 120
    timeout: 10s
  premium:
    api_key: el-test
    model: eleven_flash_v2_5
    transport: websocket
    default_voice: voice-default
    voices:
      vi_female_1: voice-f1
      vi_male_1: voice-m1
  fpt:
    voice: leminh
  circuit_breaker:
    max_failures: 3
    reset_timeout: 1m

playback:
  speed: 1.25
  volume: 0.8
  transcoder: native
  item_timeout: 90s

storage:
  data_dir: /var/lib/chatvoice
  ledger_backend: json
`

func load(t *testing.T, yaml string, environ map[string]string) *config.Config {
	t.Helper()
	if environ == nil {
		environ = map[string]string{}
	}
	cfg, err := config.LoadFromReader(strings.NewReader(yaml), config.WithEnvironment(environ))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestLoadFromReader_Sample(t *testing.T) {
	t.Parallel()
	cfg := load(t, sampleYAML, nil)

	if cfg.Server.LogFormat != config.LogFormatJSON {
		t.Errorf("log_format = %q", cfg.Server.LogFormat)
	}
	if cfg.Discord.Token != "yaml-token" || cfg.Discord.OwnerID != "789" {
		t.Errorf("discord = %+v", cfg.Discord)
	}
	if cfg.TTS.Engine != config.EngineElevenLabs {
		t.Errorf("tts.engine = %q", cfg.TTS.Engine)
	}
	if cfg.TTS.Free.Timeout != 10*time.Second || cfg.TTS.Free.ChunkChars != 180 {
		t.Errorf("tts.free = %+v", cfg.TTS.Free)
	}
	if cfg.TTS.Premium.Voices["vi_male_1"] != "voice-m1" {
		t.Errorf("premium voices = %v", cfg.TTS.Premium.Voices)
	}
	if cfg.TTS.CircuitBreaker.ResetTimeout != time.Minute {
		t.Errorf("reset_timeout = %s", cfg.TTS.CircuitBreaker.ResetTimeout)
	}
	if cfg.Playback.Speed != 1.25 || cfg.Playback.Transcoder != config.TranscoderNative {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.Storage.CacheDir != "/var/lib/chatvoice/cache" {
		t.Errorf("cache_dir = %q", cfg.Storage.CacheDir)
	}
}

func TestLoadFromReader_EmptyYieldsDefaults(t *testing.T) {
	t.Parallel()
	cfg := load(t, "", nil)

	tests := []struct {
		name      string
		got, want any
	}{
		{"log_level", cfg.Server.LogLevel, config.LogInfo},
		{"log_format", cfg.Server.LogFormat, config.LogFormatText},
		{"engine", cfg.TTS.Engine, config.EngineFree},
		{"language", cfg.TTS.Free.Language, "vi"},
		{"chunk_chars", cfg.TTS.Free.ChunkChars, 200},
		{"transport", cfg.TTS.Premium.Transport, "http"},
		{"fpt voice", cfg.TTS.FPT.Voice, "banmai"},
		{"max_failures", cfg.TTS.CircuitBreaker.MaxFailures, 5},
		{"speed", cfg.Playback.Speed, 1.0},
		{"volume", cfg.Playback.Volume, 1.0},
		{"transcoder", cfg.Playback.Transcoder, config.TranscoderFFmpeg},
		{"ffmpeg_path", cfg.Playback.FFmpegPath, "ffmpeg"},
		{"item_timeout", cfg.Playback.ItemTimeout, 2 * time.Minute},
		{"data_dir", cfg.Storage.DataDir, "data"},
		{"cache_dir", cfg.Storage.CacheDir, "data/cache"},
		{"ledger_backend", cfg.Storage.LedgerBackend, config.LedgerJSON},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadFromReader_EnvironmentOverlay(t *testing.T) {
	t.Parallel()
	cfg := load(t, sampleYAML, map[string]string{
		"DISCORD_TOKEN":           "env-token",
		"ELEVEN_API_KEY":          "env-eleven",
		"ELEVEN_DEFAULT_VOICE_ID": "env-default",
		"ELEVEN_VOICE_VI_F2":      "env-f2",
		"ELEVEN_VOICE_VI_M1":      "env-m1",
		"FPT_API_KEY":             "env-fpt",
		"DATABASE_URL":            "postgres://env/db",
	})

	if cfg.Discord.Token != "env-token" {
		t.Errorf("token = %q, want env value", cfg.Discord.Token)
	}
	if cfg.Discord.GuildID != "123" {
		t.Errorf("guild_id = %q, unset variable must keep the YAML value", cfg.Discord.GuildID)
	}
	if cfg.TTS.Premium.APIKey != "env-eleven" || cfg.TTS.Premium.DefaultVoice != "env-default" {
		t.Errorf("premium = %+v", cfg.TTS.Premium)
	}
	want := map[string]string{"vi_female_1": "voice-f1", "vi_female_2": "env-f2", "vi_male_1": "env-m1"}
	for k, v := range want {
		if got := cfg.TTS.Premium.Voices[k]; got != v {
			t.Errorf("voices[%s] = %q, want %q", k, got, v)
		}
	}
	if cfg.TTS.FPT.APIKey != "env-fpt" || cfg.TTS.FPT.Voice != "leminh" {
		t.Errorf("fpt = %+v", cfg.TTS.FPT)
	}
	if cfg.Storage.PostgresDSN != "postgres://env/db" {
		t.Errorf("postgres_dsn = %q", cfg.Storage.PostgresDSN)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("tts:\n  engnie: gtts\n"), config.WithEnvironment(map[string]string{}))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{
			name:    "bad log level and format",
			yaml:    "server:\n  log_level: loud\n  log_format: xml\n",
			wantErr: []string{"server.log_level", "server.log_format"},
		},
		{
			name:    "unknown engine",
			yaml:    "tts:\n  engine: polly\n",
			wantErr: []string{"tts.engine"},
		},
		{
			name:    "speed and volume out of range",
			yaml:    "playback:\n  speed: 3\n  volume: 0.05\n",
			wantErr: []string{"playback.speed", "playback.volume"},
		},
		{
			name:    "postgres without dsn",
			yaml:    "storage:\n  ledger_backend: postgres\n",
			wantErr: []string{"storage.postgres_dsn"},
		},
		{
			name:    "unknown preset",
			yaml:    "tts:\n  premium:\n    voices:\n      vi_robot: x\n",
			wantErr: []string{"vi_robot"},
		},
		{
			name:    "bad transport and transcoder",
			yaml:    "tts:\n  premium:\n    transport: grpc\nplayback:\n  transcoder: sox\n",
			wantErr: []string{"tts.premium.transport", "playback.transcoder"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml), config.WithEnvironment(map[string]string{}))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()

	var got config.TTSConfig
	r.RegisterSource(config.EngineFree, func(c config.TTSConfig) (tts.Source, error) {
		got = c
		return fakeSource{}, nil
	})
	r.RegisterTranscoder(config.TranscoderNative, func(config.PlaybackConfig) (transcode.Transcoder, error) {
		return nil, errors.New("no decoder")
	})

	if _, err := r.CreateSource(config.EngineFree, config.TTSConfig{Engine: "x"}); err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	if got.Engine != "x" {
		t.Error("factory did not receive the config")
	}
	if _, err := r.CreateSource(config.EngineFPT, config.TTSConfig{}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSource(fpt) err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := r.CreateTranscoder(config.PlaybackConfig{Transcoder: config.TranscoderNative}); err == nil || errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTranscoder(native) err = %v, want factory error", err)
	}
	if _, err := r.CreateTranscoder(config.PlaybackConfig{Transcoder: "sox"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTranscoder(sox) err = %v", err)
	}
	if names := r.Sources(); len(names) != 1 || names[0] != config.EngineFree {
		t.Errorf("Sources() = %v", names)
	}
}

type fakeSource struct{}

func (fakeSource) Name() string { return "fake" }

func (fakeSource) Fetch(context.Context, tts.Utterance) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
