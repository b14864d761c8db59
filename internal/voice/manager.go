package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/chatvoice/internal/observe"
	"github.com/MrWong99/chatvoice/internal/playback"
	"github.com/MrWong99/chatvoice/internal/speech"
	"github.com/MrWong99/chatvoice/pkg/audio"
)

// ErrNoSession is returned when a guild has no voice session.
var ErrNoSession = errors.New("voice: no active session")

// ManagerConfig holds the dependencies of a [Manager].
type ManagerConfig struct {
	Platform   audio.Platform
	Dispatcher *speech.Dispatcher
	Defaults   Settings

	// ItemTimeout bounds synthesis plus playback of one message. Zero
	// means unbounded.
	ItemTimeout time.Duration

	// NewPlayer builds the player for a fresh connection. Defaults to
	// [playback.NewStreamer].
	NewPlayer func(audio.Connection) playback.Player

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Manager manages the lifecycle of voice sessions, at most one per guild.
// All exported methods are safe for concurrent use.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
	defaults Settings
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewPlayer == nil {
		cfg.NewPlayer = func(c audio.Connection) playback.Player { return playback.NewStreamer(c) }
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		defaults: cfg.Defaults,
	}
}

// Join connects to channelID in guildID and starts a session. If the guild
// already has a session in the same channel it is returned unchanged; a
// session in another channel is closed first.
func (m *Manager) Join(ctx context.Context, guildID, channelID, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sessions[guildID]; ok {
		if old.info.ChannelID == channelID {
			return old, nil
		}
		m.closeLocked(ctx, old)
	}

	conn, err := m.cfg.Platform.Connect(ctx, guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("voice: connect to voice channel: %w", err)
	}

	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		info: Info{
			GuildID:   guildID,
			ChannelID: channelID,
			StartedBy: userID,
			StartedAt: time.Now().UTC(),
		},
		conn:       conn,
		dispatcher: m.cfg.Dispatcher,
		cancel:     cancel,
		settings:   m.defaults,
	}
	log := m.cfg.Logger.With("guild", guildID, "channel", channelID)
	opts := []playback.Option{playback.WithLogger(log), playback.WithItemTimeout(m.cfg.ItemTimeout)}
	if m.cfg.Metrics != nil {
		opts = append(opts, playback.WithMetrics(m.cfg.Metrics))
		m.cfg.Metrics.ActiveSessions.Add(ctx, 1)
	}
	s.queue = playback.New(sessCtx, s, m.cfg.NewPlayer(conn), opts...)
	m.sessions[guildID] = s

	log.InfoContext(ctx, "voice: session started", "user", userID, "engine", s.settings.Engine)
	return s, nil
}

// Leave closes the session of guildID.
func (m *Manager) Leave(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[guildID]
	if !ok {
		return ErrNoSession
	}
	m.closeLocked(ctx, s)
	return nil
}

// Get returns the session of guildID, if any.
func (m *Manager) Get(guildID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	return s, ok
}

// Active returns the guild IDs with a session, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.sessions))
}

// Defaults returns the settings new sessions start with.
func (m *Manager) Defaults() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults
}

// ApplyDefaults changes the settings new sessions start with and pushes them
// into live sessions, except for values a command has overridden there.
func (m *Manager) ApplyDefaults(d Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = d
	for _, s := range m.sessions {
		s.applyDefaults(d)
	}
	m.cfg.Logger.Info("voice: playback defaults updated",
		"engine", d.Engine, "speed", d.Speed, "volume", d.Volume, "sessions", len(m.sessions))
}

// CloseAll leaves every voice channel.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		m.closeLocked(ctx, s)
	}
}

func (m *Manager) closeLocked(ctx context.Context, s *Session) {
	dropped := s.queue.Len()
	if err := s.close(); err != nil {
		m.cfg.Logger.WarnContext(ctx, "voice: disconnect error", "guild", s.info.GuildID, "err", err)
	}
	delete(m.sessions, s.info.GuildID)
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSessions.Add(ctx, -1)
	}
	m.cfg.Logger.InfoContext(ctx, "voice: session stopped",
		"guild", s.info.GuildID, "channel", s.info.ChannelID, "dropped", dropped)
}
