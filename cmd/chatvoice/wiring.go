package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/chatvoice/internal/cache"
	"github.com/MrWong99/chatvoice/internal/config"
	"github.com/MrWong99/chatvoice/internal/lexicon"
	"github.com/MrWong99/chatvoice/internal/observe"
	"github.com/MrWong99/chatvoice/internal/resilience"
	"github.com/MrWong99/chatvoice/internal/speech"
	"github.com/MrWong99/chatvoice/internal/textnorm"
	"github.com/MrWong99/chatvoice/internal/voices"
	"github.com/MrWong99/chatvoice/pkg/audio/transcode"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
	"github.com/MrWong99/chatvoice/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/chatvoice/pkg/provider/tts/fpt"
	"github.com/MrWong99/chatvoice/pkg/provider/tts/gtranslate"
)

// Files under storage.data_dir.
const (
	slangFile  = "custom_slang.json"
	ledgerFile = "accent_learn.json"
	voicesFile = "user_voices.json"
)

// premiumEngines are cached, guarded and fall back to the free voice.
var premiumEngines = []string{config.EngineElevenLabs, config.EngineFPT}

// registerBuiltins wires the shipped backends and transcoders into reg.
func registerBuiltins(reg *config.Registry) {
	reg.RegisterSource(config.EngineFree, func(c config.TTSConfig) (tts.Source, error) {
		opts := []gtranslate.Option{
			gtranslate.WithLanguage(c.Free.Language),
			gtranslate.WithChunkChars(c.Free.ChunkChars),
			gtranslate.WithTimeout(c.Free.Timeout),
			gtranslate.WithRequestsPerMinute(c.Free.RequestsPerMinute),
		}
		if c.Free.BaseURL != "" {
			opts = append(opts, gtranslate.WithBaseURL(c.Free.BaseURL))
		}
		return gtranslate.New(opts...), nil
	})

	reg.RegisterSource(config.EngineElevenLabs, func(c config.TTSConfig) (tts.Source, error) {
		opts := []elevenlabs.Option{
			elevenlabs.WithModel(c.Premium.Model),
			elevenlabs.WithTransport(elevenlabs.Transport(c.Premium.Transport)),
			elevenlabs.WithDefaultVoice(c.Premium.DefaultVoice),
			elevenlabs.WithTimeout(c.Premium.Timeout),
		}
		if c.Premium.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(c.Premium.BaseURL))
		}
		return elevenlabs.New(c.Premium.APIKey, opts...), nil
	})

	reg.RegisterSource(config.EngineFPT, func(c config.TTSConfig) (tts.Source, error) {
		return fpt.New(c.FPT.APIKey,
			fpt.WithURL(c.FPT.BaseURL),
			fpt.WithVoice(c.FPT.Voice),
			fpt.WithTimeout(c.FPT.Timeout),
		), nil
	})

	reg.RegisterTranscoder(config.TranscoderFFmpeg, func(c config.PlaybackConfig) (transcode.Transcoder, error) {
		return transcode.NewFFmpeg(c.FFmpegPath), nil
	})
	reg.RegisterTranscoder(config.TranscoderNative, func(config.PlaybackConfig) (transcode.Transcoder, error) {
		return &transcode.Native{}, nil
	})
}

// buildDispatcher assembles one provider per engine: the free voice
// directly, every premium engine as cache over circuit breaker with a
// fallback to the free voice when its credential is missing.
func buildDispatcher(cfg *config.Config, reg *config.Registry, tc transcode.Transcoder, presets *voices.Registry, metrics *observe.Metrics, log *slog.Logger) (*speech.Dispatcher, error) {
	speechOpts := []speech.Option{speech.WithLogger(log), speech.WithMetrics(metrics)}

	freeSrc, err := reg.CreateSource(config.EngineFree, cfg.TTS)
	if err != nil {
		return nil, fmt.Errorf("create free voice: %w", err)
	}
	free := speech.NewDirect(freeSrc, tc, speechOpts...)
	engines := map[string]tts.Provider{config.EngineFree: free}

	store, err := cache.New(cfg.Storage.CacheDir)
	if err != nil {
		return nil, err
	}

	for _, name := range premiumEngines {
		src, err := reg.CreateSource(name, cfg.TTS)
		if err != nil {
			return nil, fmt.Errorf("create %s voice: %w", name, err)
		}
		guarded := resilience.Guard(src, resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.TTS.CircuitBreaker.MaxFailures,
			ResetTimeout: cfg.TTS.CircuitBreaker.ResetTimeout,
			Logger:       log,
		})

		cached := speech.NewCached(guarded, store, tc, voiceResolver(name, cfg, presets), speechOpts...)

		engines[name] = resilience.NewCredentialFallback(name, cached, free,
			resilience.WithFallbackLogger(log),
			resilience.OnFallback(func(ctx context.Context, from string) {
				metrics.RecordFallback(ctx, from)
			}),
		)
		log.Info("synthesis engine ready", "engine", name, "credentialed", guarded.HasCredential())
	}
	return speech.NewDispatcher(engines, metrics), nil
}

// voiceResolver picks the cache identity of each premium engine. ElevenLabs
// has per-user presets; FPT speaks every message in its configured voice.
func voiceResolver(engine string, cfg *config.Config, presets *voices.Registry) speech.VoiceResolver {
	if engine == config.EngineElevenLabs {
		return presets
	}
	if cfg.TTS.FPT.Voice == "" {
		return speech.FixedVoice(fpt.DefaultVoice)
	}
	return speech.FixedVoice(cfg.TTS.FPT.Voice)
}

// openLedger opens the accent ledger on the configured backend. The
// returned func releases the backend.
func openLedger(ctx context.Context, cfg *config.Config, log *slog.Logger) (*lexicon.Ledger, func(), error) {
	if cfg.Storage.LedgerBackend != config.LedgerPostgres {
		store := lexicon.NewFileLedgerStore(filepath.Join(cfg.Storage.DataDir, ledgerFile))
		return lexicon.NewLedger(ctx, store, log), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger database: %w", err)
	}
	store := lexicon.NewPostgresLedgerStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate ledger database: %w", err)
	}
	log.Info("accent ledger on postgres")
	return lexicon.NewLedger(ctx, store, log), pool.Close, nil
}

// openNormalizer builds the text pipeline over the on-disk dictionary and
// ledger.
func openNormalizer(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...textnorm.Option) (*textnorm.Normalizer, *lexicon.Dictionary, func(), error) {
	dict := lexicon.NewDictionary(filepath.Join(cfg.Storage.DataDir, slangFile), lexicon.WithDictionaryLogger(log))
	ledger, closeLedger, err := openLedger(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append([]textnorm.Option{textnorm.WithLogger(log)}, opts...)
	return textnorm.New(dict, ledger, opts...), dict, closeLedger, nil
}

// openVoices loads the preset table and per-user assignments.
func openVoices(cfg *config.Config, log *slog.Logger) *voices.Registry {
	return voices.New(filepath.Join(cfg.Storage.DataDir, voicesFile),
		cfg.TTS.Premium.Voices, cfg.TTS.Premium.DefaultVoice, log)
}
