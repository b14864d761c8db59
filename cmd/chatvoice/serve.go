package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/chatvoice/internal/config"
	"github.com/MrWong99/chatvoice/internal/discord"
	"github.com/MrWong99/chatvoice/internal/discord/commands"
	"github.com/MrWong99/chatvoice/internal/health"
	"github.com/MrWong99/chatvoice/internal/observe"
	"github.com/MrWong99/chatvoice/internal/voice"
	"github.com/MrWong99/chatvoice/internal/voices"
	"github.com/MrWong99/chatvoice/pkg/audio/transcode"
)

// shutdownTimeout bounds the graceful shutdown after a signal or /shutdown.
const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to Discord and read chat aloud (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	if cfg.Discord.Token == "" {
		return errors.New("discord token missing: set DISCORD_TOKEN or discord.token")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// /shutdown cancels the same context a signal does.
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	log := slog.Default()
	log.Info("chatvoice starting",
		"version", version,
		"config", configPath,
		"engine", cfg.TTS.Engine,
		"transcoder", cfg.Playback.Transcoder,
		"ledger", cfg.Storage.LedgerBackend,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "chatvoice",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	metrics := observe.DefaultMetrics()

	// ── Text pipeline, voices, synthesis ──────────────────────────────────────
	normalizer, dict, closeLedger, err := openNormalizer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLedger()
	presets := openVoices(cfg, log)

	reg := config.NewRegistry()
	registerBuiltins(reg)
	log.Debug("synthesis backends registered", "sources", reg.Sources())
	tc, err := reg.CreateTranscoder(cfg.Playback)
	if err != nil {
		return err
	}
	dispatcher, err := buildDispatcher(cfg, reg, tc, presets, metrics, log)
	if err != nil {
		return err
	}

	// ── Discord ───────────────────────────────────────────────────────────────
	// The relay needs the session manager, which needs the bot's voice
	// platform; messages arriving before the relay exists are dropped.
	var relay atomic.Pointer[discord.Relay]
	bot, err := discord.New(ctx, discord.Config{
		Token:       cfg.Discord.Token,
		GuildID:     cfg.Discord.GuildID,
		AdminRoleID: cfg.Discord.AdminRoleID,
		OwnerID:     cfg.Discord.OwnerID,
	}, func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if r := relay.Load(); r != nil {
			r.OnMessageCreate(s, m)
		}
	}, log)
	if err != nil {
		return err
	}

	sessions := voice.NewManager(voice.ManagerConfig{
		Platform:    bot.Platform(),
		Dispatcher:  dispatcher,
		Defaults:    playbackDefaults(cfg),
		ItemTimeout: cfg.Playback.ItemTimeout,
		Logger:      log,
		Metrics:     metrics,
	})
	relay.Store(discord.NewRelay(sessions, normalizer, log))

	commands.RegisterAll(bot.Router(), commands.Deps{
		Perms:      bot.Permissions(),
		Sessions:   sessions,
		Dictionary: dict,
		Voices:     presets,
		Dispatcher: dispatcher,
		Shutdown:   shutdown,
		Logger:     log,
	})

	// ── Config hot reload ─────────────────────────────────────────────────────
	if _, err := os.Stat(configPath); err == nil {
		w, err := config.NewWatcher(configPath, func(old, new *config.Config) {
			applyReload(config.Diff(old, new), new, sessions, presets, log)
		}, config.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.Server.ListenAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           probeHandler(bot, tc, metrics, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("probe server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("probe server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	log.Info("chatvoice ready, press Ctrl+C to shut down")
	runErr := g.Wait()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	sessions.CloseAll(sctx)
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := bot.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close discord: %w", err))
	}
	if err := otelShutdown(sctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}
	if len(errs) == 0 {
		log.Info("goodbye")
	}
	return errors.Join(errs...)
}

// probeHandler serves /healthz, /readyz and /metrics.
func probeHandler(bot *discord.Bot, tc transcode.Transcoder, metrics *observe.Metrics, log *slog.Logger) http.Handler {
	checks := []health.Checker{health.Discord(bot.Connected)}
	if ff, ok := tc.(*transcode.FFmpeg); ok {
		checks = append(checks, health.Transcoder(ff.Available))
	} else {
		checks = append(checks, health.Transcoder(nil))
	}

	mux := http.NewServeMux()
	health.New(checks...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(metrics, log)(mux)
}

func playbackDefaults(c *config.Config) voice.Settings {
	return voice.Settings{Engine: c.TTS.Engine, Speed: c.Playback.Speed, Volume: c.Playback.Volume}
}

// applyReload pushes the hot-reloadable parts of a config change into the
// running bot.
func applyReload(d config.ConfigDiff, c *config.Config, sessions *voice.Manager, presets *voices.Registry, log *slog.Logger) {
	if d.LogLevelChanged {
		logLevel.Set(slogLevel(d.NewLogLevel))
		log.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.PlaybackChanged {
		sessions.ApplyDefaults(playbackDefaults(c))
	}
	if d.VoicesChanged {
		presets.SetPresets(c.TTS.Premium.Voices, c.TTS.Premium.DefaultVoice)
		log.Info("voice presets reloaded", "available", presets.Available())
	}
	if len(d.RestartRequired) > 0 {
		log.Warn("config changes need a restart to take effect", "settings", d.RestartRequired)
	}
}
