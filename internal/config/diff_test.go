package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/chatvoice/internal/config"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	base := func() *config.Config { return load(t, sampleYAML, nil) }

	tests := []struct {
		name        string
		mutate      func(*config.Config)
		wantLog     bool
		wantPlay    bool
		wantVoices  bool
		wantRestart []string
	}{
		{
			name:   "identical",
			mutate: func(*config.Config) {},
		},
		{
			name:    "log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = config.LogDebug },
			wantLog: true,
		},
		{
			name:     "playback defaults",
			mutate:   func(c *config.Config) { c.Playback.Speed = 1.5; c.TTS.Engine = config.EngineFree },
			wantPlay: true,
		},
		{
			name:       "preset voice",
			mutate:     func(c *config.Config) { c.TTS.Premium.Voices["vi_female_2"] = "voice-f2" },
			wantVoices: true,
		},
		{
			name:        "token and transcoder",
			mutate:      func(c *config.Config) { c.Discord.Token = "other"; c.Playback.Transcoder = config.TranscoderFFmpeg },
			wantRestart: []string{"discord", "playback.transcoder"},
		},
		{
			name:        "premium api key",
			mutate:      func(c *config.Config) { c.TTS.Premium.APIKey = "rotated" },
			wantRestart: []string{"tts.premium"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old, updated := base(), base()
			tt.mutate(updated)

			d := config.Diff(old, updated)
			if d.LogLevelChanged != tt.wantLog {
				t.Errorf("LogLevelChanged = %v, want %v", d.LogLevelChanged, tt.wantLog)
			}
			if tt.wantLog && d.NewLogLevel != updated.Server.LogLevel {
				t.Errorf("NewLogLevel = %q", d.NewLogLevel)
			}
			if d.PlaybackChanged != tt.wantPlay {
				t.Errorf("PlaybackChanged = %v, want %v", d.PlaybackChanged, tt.wantPlay)
			}
			if d.VoicesChanged != tt.wantVoices {
				t.Errorf("VoicesChanged = %v, want %v", d.VoicesChanged, tt.wantVoices)
			}
			if !slices.Equal(d.RestartRequired, tt.wantRestart) {
				t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, tt.wantRestart)
			}
			wantEmpty := !tt.wantLog && !tt.wantPlay && !tt.wantVoices && len(tt.wantRestart) == 0
			if d.Empty() != wantEmpty {
				t.Errorf("Empty() = %v, want %v", d.Empty(), wantEmpty)
			}
		})
	}
}
