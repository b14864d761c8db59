package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/chatvoice/pkg/audio/transcode"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps engine and transcoder names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	sources     map[string]func(TTSConfig) (tts.Source, error)
	transcoders map[string]func(PlaybackConfig) (transcode.Transcoder, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		sources:     make(map[string]func(TTSConfig) (tts.Source, error)),
		transcoders: make(map[string]func(PlaybackConfig) (transcode.Transcoder, error)),
	}
}

// RegisterSource registers a synthesis backend factory under an engine name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSource(name string, factory func(TTSConfig) (tts.Source, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = factory
}

// RegisterTranscoder registers a transcoder factory under name.
func (r *Registry) RegisterTranscoder(name string, factory func(PlaybackConfig) (transcode.Transcoder, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcoders[name] = factory
}

// Sources returns the registered engine names in sorted order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CreateSource instantiates the backend registered under name.
// Returns [ErrProviderNotRegistered] if no factory has been registered.
func (r *Registry) CreateSource(name string, cfg TTSConfig) (tts.Source, error) {
	r.mu.RLock()
	factory, ok := r.sources[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}

// CreateTranscoder instantiates the transcoder selected by cfg.Transcoder.
func (r *Registry) CreateTranscoder(cfg PlaybackConfig) (transcode.Transcoder, error) {
	r.mu.RLock()
	factory, ok := r.transcoders[cfg.Transcoder]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcoder/%q", ErrProviderNotRegistered, cfg.Transcoder)
	}
	return factory(cfg)
}
