package config

import "maps"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked individually;
// everything else is reported in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PlaybackChanged is true if the default engine, speed or volume of new
	// sessions changed.
	PlaybackChanged bool

	// VoicesChanged is true if the preset table or default voice changed.
	VoicesChanged bool

	// RestartRequired names changed settings that only take effect after a
	// restart.
	RestartRequired []string
}

// Empty reports whether d carries no change at all.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.PlaybackChanged && !d.VoicesChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.TTS.Engine != new.TTS.Engine ||
		old.Playback.Speed != new.Playback.Speed ||
		old.Playback.Volume != new.Playback.Volume {
		d.PlaybackChanged = true
	}

	if old.TTS.Premium.DefaultVoice != new.TTS.Premium.DefaultVoice ||
		!maps.Equal(old.TTS.Premium.Voices, new.TTS.Premium.Voices) {
		d.VoicesChanged = true
	}

	restart := func(name string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, name)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("server.log_format", old.Server.LogFormat != new.Server.LogFormat)
	restart("discord", old.Discord != new.Discord)
	restart("tts.free", old.TTS.Free != new.TTS.Free)
	restart("tts.premium", premiumChanged(old.TTS.Premium, new.TTS.Premium))
	restart("tts.fpt", old.TTS.FPT != new.TTS.FPT)
	restart("tts.circuit_breaker", old.TTS.CircuitBreaker != new.TTS.CircuitBreaker)
	restart("playback.transcoder", old.Playback.Transcoder != new.Playback.Transcoder ||
		old.Playback.FFmpegPath != new.Playback.FFmpegPath)
	restart("playback.item_timeout", old.Playback.ItemTimeout != new.Playback.ItemTimeout)
	restart("storage", old.Storage != new.Storage)

	return d
}

// premiumChanged compares the connection settings of the premium backend.
// Voice IDs are hot-reloadable and ignored here.
func premiumChanged(old, new PremiumTTSConfig) bool {
	return old.APIKey != new.APIKey ||
		old.BaseURL != new.BaseURL ||
		old.Model != new.Model ||
		old.Transport != new.Transport ||
		old.Timeout != new.Timeout
}
