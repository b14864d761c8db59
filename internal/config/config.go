// Package config provides the configuration schema, loader, watcher and
// backend registry for the chatvoice bot.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LogFormat selects the root log handler.
type LogFormat string

const (
	LogFormatText   LogFormat = "text"
	LogFormatJSON   LogFormat = "json"
	LogFormatPretty LogFormat = "pretty"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatPretty:
		return true
	}
	return false
}

// Engine names accepted by tts.engine. They match the speech package's
// engine names.
const (
	EngineFree       = "gtts"
	EngineElevenLabs = "elevenlabs"
	EngineFPT        = "fpt"
)

// Transcoder names accepted by playback.transcoder.
const (
	TranscoderFFmpeg = "ffmpeg"
	TranscoderNative = "native"
)

// Ledger backends accepted by storage.ledger_backend.
const (
	LedgerJSON     = "json"
	LedgerPostgres = "postgres"
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	TTS      TTSConfig      `yaml:"tts"`
	Playback PlaybackConfig `yaml:"playback"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig holds logging and probe endpoint settings.
type ServerConfig struct {
	// ListenAddr serves /healthz, /readyz and /metrics. Empty disables the
	// HTTP listener.
	ListenAddr string `yaml:"listen_addr"`

	LogLevel  LogLevel  `yaml:"log_level"`
	LogFormat LogFormat `yaml:"log_format"`
}

// DiscordConfig holds the bot identity and the permission model.
type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN"`

	// GuildID registers slash commands for one guild only. Empty registers
	// them globally.
	GuildID string `yaml:"guild_id" env:"GUILD_ID"`

	// AdminRoleID may use /setvoice. When both AdminRoleID and OwnerID are
	// empty every member counts as admin.
	AdminRoleID string `yaml:"admin_role_id" env:"ADMIN_ROLE_ID"`

	// OwnerID may use /shutdown.
	OwnerID string `yaml:"owner_id" env:"OWNER_ID"`
}

// TTSConfig configures every synthesis backend.
type TTSConfig struct {
	// Engine is the default engine of new voice sessions.
	Engine string `yaml:"engine"`

	Free           FreeTTSConfig        `yaml:"free"`
	Premium        PremiumTTSConfig     `yaml:"premium"`
	FPT            FPTConfig            `yaml:"fpt"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// FreeTTSConfig configures the chunked Google Translate backend.
type FreeTTSConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Language          string        `yaml:"language"`
	ChunkChars        int           `yaml:"chunk_chars"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// PremiumTTSConfig configures the ElevenLabs backend.
type PremiumTTSConfig struct {
	APIKey  string `yaml:"api_key" env:"ELEVEN_API_KEY"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Transport is "http" or "websocket".
	Transport string `yaml:"transport"`

	DefaultVoice string `yaml:"default_voice" env:"ELEVEN_DEFAULT_VOICE_ID"`

	// Voices maps preset keys (vi_female_1 ...) to voice IDs.
	Voices map[string]string `yaml:"voices"`

	Timeout time.Duration `yaml:"timeout"`
}

// FPTConfig configures the FPT.AI backend.
type FPTConfig struct {
	APIKey  string        `yaml:"api_key" env:"FPT_API_KEY"`
	BaseURL string        `yaml:"base_url"`
	Voice   string        `yaml:"voice" env:"FPT_VOICE"`
	Timeout time.Duration `yaml:"timeout"`
}

// CircuitBreakerConfig tunes the breaker around each paid backend.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// PlaybackConfig holds playback defaults and the transcoder choice.
type PlaybackConfig struct {
	// Speed and Volume are the defaults of new sessions. They are hot
	// reloaded into sessions that did not override them.
	Speed  float64 `yaml:"speed"`
	Volume float64 `yaml:"volume"`

	// Transcoder is "ffmpeg" or "native".
	Transcoder string `yaml:"transcoder"`
	FFmpegPath string `yaml:"ffmpeg_path"`

	// ItemTimeout bounds synthesis plus playback of one queue item. Zero
	// disables the bound.
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

// StorageConfig locates persistent state.
type StorageConfig struct {
	// DataDir holds custom_slang.json, accent_learn.json and
	// user_voices.json.
	DataDir string `yaml:"data_dir"`

	// CacheDir holds cached premium audio.
	CacheDir string `yaml:"cache_dir"`

	// LedgerBackend is "json" or "postgres".
	LedgerBackend string `yaml:"ledger_backend"`

	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`
}
