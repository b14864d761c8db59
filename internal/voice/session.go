// Package voice owns the per-guild voice sessions.
//
// A [Session] ties one voice connection to one playback queue and carries
// the mutable playback settings for that guild: the selected engine, the
// speaking rate and the volume. The [Manager] creates and tears down
// sessions and applies configuration reloads to them.
package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/chatvoice/internal/playback"
	"github.com/MrWong99/chatvoice/internal/speech"
	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// Accepted ranges for user-set playback values.
const (
	MinSpeed  = 0.5
	MaxSpeed  = 2.0
	MinVolume = 0.1
	MaxVolume = 2.0
)

// ErrOutOfRange is returned by setters given a value outside its range.
var ErrOutOfRange = errors.New("voice: value out of range")

// Settings are the playback parameters of a session.
type Settings struct {
	Engine string
	Speed  float64
	Volume float64
}

type field uint8

const (
	fieldEngine field = 1 << iota
	fieldSpeed
	fieldVolume
)

// Info describes a running session.
type Info struct {
	GuildID   string
	ChannelID string
	StartedBy string
	StartedAt time.Time
}

// Session is the voice state of one guild. All methods are safe for
// concurrent use.
type Session struct {
	info       Info
	conn       audio.Connection
	queue      *playback.Queue
	dispatcher *speech.Dispatcher

	cancel context.CancelFunc

	mu       sync.RWMutex
	settings Settings
	// overridden marks settings changed by a command; reloads leave them alone.
	overridden field
}

var _ tts.Provider = (*Session)(nil)

// Info returns the session metadata.
func (s *Session) Info() Info { return s.info }

// Settings returns a snapshot of the playback settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Enqueue appends a normalized message to the playback queue.
func (s *Session) Enqueue(item playback.Item) {
	s.queue.Enqueue(item)
}

// Pending returns the number of queued items, excluding the one in progress.
func (s *Session) Pending() int { return s.queue.Len() }

// Skip drops all queued items and returns how many there were.
func (s *Session) Skip() int { return s.queue.Clear() }

// SetEngine selects the synthesis engine for subsequent items.
func (s *Session) SetEngine(engine string) error {
	if !s.dispatcher.Has(engine) {
		return fmt.Errorf("%w: %q", speech.ErrUnknownEngine, engine)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Engine = engine
	s.overridden |= fieldEngine
	return nil
}

// SetSpeed sets the speaking rate, 1.0 being normal.
func (s *Session) SetSpeed(v float64) error {
	if v < MinSpeed || v > MaxSpeed {
		return fmt.Errorf("%w: speed %.2f not in [%.1f, %.1f]", ErrOutOfRange, v, MinSpeed, MaxSpeed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Speed = v
	s.overridden |= fieldSpeed
	return nil
}

// SetVolume sets the gain, 1.0 being unchanged.
func (s *Session) SetVolume(v float64) error {
	if v < MinVolume || v > MaxVolume {
		return fmt.Errorf("%w: volume %.2f not in [%.1f, %.1f]", ErrOutOfRange, v, MinVolume, MaxVolume)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Volume = v
	s.overridden |= fieldVolume
	return nil
}

// Speak implements tts.Provider for the queue: the request is completed with
// the session's speed and volume and dispatched to its engine.
func (s *Session) Speak(ctx context.Context, req tts.Request) (*audio.Resource, error) {
	st := s.Settings()
	req.Speed = st.Speed
	req.Volume = st.Volume
	return s.dispatcher.Speak(ctx, st.Engine, req)
}

// applyDefaults replaces every setting not overridden by a command.
func (s *Session) applyDefaults(d Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overridden&fieldEngine == 0 {
		s.settings.Engine = d.Engine
	}
	if s.overridden&fieldSpeed == 0 {
		s.settings.Speed = d.Speed
	}
	if s.overridden&fieldVolume == 0 {
		s.settings.Volume = d.Volume
	}
}

// close cancels in-flight work and leaves the channel.
func (s *Session) close() error {
	s.cancel()
	s.queue.Clear()
	return s.conn.Disconnect()
}
