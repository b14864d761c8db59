// Package voices maps chat users to premium voice presets.
//
// A preset is a stable key such as "vi_female_1" that the operator binds to
// a backend voice ID in configuration. Users pick a preset, and the choice is
// persisted in a JSON file keyed by user ID.
package voices

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/chatvoice/internal/jsonfile"
)

// Preset keys offered to users.
const (
	Female1 = "vi_female_1"
	Female2 = "vi_female_2"
	Female3 = "vi_female_3"
	Male1   = "vi_male_1"
	Male2   = "vi_male_2"
)

// PresetKeys lists every preset in display order.
var PresetKeys = []string{Female1, Female2, Female3, Male1, Male2}

// ErrUnknownPreset is returned when assigning a preset that has no voice ID.
var ErrUnknownPreset = errors.New("voices: preset has no configured voice")

// Registry resolves users to voice IDs. It is safe for concurrent use.
type Registry struct {
	// persistMu serializes assignments with their file writes; taken
	// before mu.
	persistMu sync.Mutex

	mu           sync.RWMutex
	presets      map[string]string // preset key -> voice ID
	defaultVoice string
	assigned     map[string]string // user ID -> preset key
	path         string
	log          *slog.Logger
}

// New loads assignments from path. A missing or corrupt file yields an empty
// table; the corrupt case is logged. An empty path keeps assignments in
// memory only. Presets without a voice ID fall back to defaultVoice.
func New(path string, presets map[string]string, defaultVoice string, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		assigned: make(map[string]string),
		path:     path,
		log:      log,
	}
	r.SetPresets(presets, defaultVoice)

	if path != "" {
		if err := jsonfile.Load(path, &r.assigned); err != nil {
			if !jsonfile.IsNotExist(err) {
				log.Warn("voices: ignoring unreadable assignments", "path", path, "err", err)
			}
			r.assigned = make(map[string]string)
		}
	}
	return r
}

// SetPresets replaces the preset table, e.g. after a configuration reload.
func (r *Registry) SetPresets(presets map[string]string, defaultVoice string) {
	p := make(map[string]string, len(PresetKeys))
	for _, k := range PresetKeys {
		if id := presets[k]; id != "" {
			p[k] = id
		} else if defaultVoice != "" {
			p[k] = defaultVoice
		}
	}
	r.mu.Lock()
	r.presets = p
	r.defaultVoice = defaultVoice
	r.mu.Unlock()
}

// Resolve returns the voice ID for userID: the voice of the user's preset if
// one is assigned and configured, otherwise the default voice.
func (r *Registry) Resolve(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key, ok := r.assigned[userID]; ok {
		if id, ok := r.presets[key]; ok {
			return id
		}
	}
	return r.defaultVoice
}

// Assignment returns the preset key assigned to userID.
func (r *Registry) Assignment(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.assigned[userID]
	return key, ok
}

// Assign binds userID to preset and persists the table. On a persistence
// failure the assignment stays in effect and the error is returned.
func (r *Registry) Assign(userID, preset string) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if _, ok := r.presets[preset]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
	r.assigned[userID] = preset
	snapshot := maps.Clone(r.assigned)
	r.mu.Unlock()

	if r.path == "" {
		return nil
	}
	if err := jsonfile.Save(r.path, snapshot); err != nil {
		r.log.Error("voices: persist assignments", "path", r.path, "err", err)
		return fmt.Errorf("voices: persist: %w", err)
	}
	return nil
}

// Available returns the preset keys that resolve to a voice, in display
// order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.DeleteFunc(slices.Clone(PresetKeys), func(k string) bool {
		_, ok := r.presets[k]
		return !ok
	})
}
