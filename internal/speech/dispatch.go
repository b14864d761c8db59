package speech

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrWong99/chatvoice/internal/observe"
	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// Engine names accepted by [Dispatcher].
const (
	EngineFree       = "gtts"
	EngineElevenLabs = "elevenlabs"
	EngineFPT        = "fpt"
)

// ErrUnknownEngine is returned for an engine name no provider is registered
// under.
var ErrUnknownEngine = errors.New("speech: unknown engine")

// ParseEngine normalizes user input such as "11labs" or "GTTS" to an engine
// name.
func ParseEngine(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gtts", "google", "free":
		return EngineFree, nil
	case "elevenlabs", "11labs", "eleven":
		return EngineElevenLabs, nil
	case "fpt", "fptai", "fpt.ai":
		return EngineFPT, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

// Dispatcher routes requests to the provider of the selected engine and
// records synthesis metrics. It is immutable after construction.
type Dispatcher struct {
	engines map[string]tts.Provider
	metrics *observe.Metrics
}

// NewDispatcher returns a dispatcher over engines. metrics may be nil.
func NewDispatcher(engines map[string]tts.Provider, metrics *observe.Metrics) *Dispatcher {
	return &Dispatcher{engines: engines, metrics: metrics}
}

// Engines returns the registered engine names, sorted.
func (d *Dispatcher) Engines() []string {
	names := make([]string, 0, len(d.engines))
	for name := range d.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Has reports whether engine is registered.
func (d *Dispatcher) Has(engine string) bool {
	_, ok := d.engines[engine]
	return ok
}

// Credentialed reports whether engine can synthesize with its own backend
// rather than falling back to the free voice.
func (d *Dispatcher) Credentialed(engine string) bool {
	p, ok := d.engines[engine]
	if !ok {
		return false
	}
	if cr, ok := p.(credentialed); ok {
		return cr.HasCredential()
	}
	return true
}

// Speak synthesizes req with engine.
func (d *Dispatcher) Speak(ctx context.Context, engine string, req tts.Request) (*audio.Resource, error) {
	p, ok := d.engines[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
	ctx, span := observe.StartSpan(ctx, "speech.speak")
	defer span.End()

	start := time.Now()
	res, err := p.Speak(ctx, req)
	if d.metrics != nil {
		d.metrics.RecordSynthesis(ctx, engine, time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}
