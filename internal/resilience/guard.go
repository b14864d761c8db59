package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// GuardedSource wraps a tts.Source with a [CircuitBreaker]. Missing
// credentials and caller cancellation do not count as failures.
type GuardedSource struct {
	src tts.Source
	cb  *CircuitBreaker
}

var _ tts.Source = (*GuardedSource)(nil)

// Guard returns src protected by a breaker built from cfg. cfg.Name defaults
// to src.Name() and cfg.IsFailure is replaced.
func Guard(src tts.Source, cfg CircuitBreakerConfig) *GuardedSource {
	if cfg.Name == "" {
		cfg.Name = src.Name()
	}
	cfg.IsFailure = countsAgainstBackend
	return &GuardedSource{src: src, cb: NewCircuitBreaker(cfg)}
}

func countsAgainstBackend(err error) bool {
	return !errors.Is(err, tts.ErrMissingCredential) &&
		!errors.Is(err, context.Canceled)
}

// Name implements tts.Source.
func (g *GuardedSource) Name() string { return g.src.Name() }

// HasCredential forwards the wrapped source's credential state. Sources
// without one are assumed usable.
func (g *GuardedSource) HasCredential() bool {
	if cr, ok := g.src.(interface{ HasCredential() bool }); ok {
		return cr.HasCredential()
	}
	return true
}

// State reports the breaker state.
func (g *GuardedSource) State() State { return g.cb.State() }

// Fetch implements tts.Source. Only the request phase is guarded; errors
// while streaming the body are the reader's concern.
func (g *GuardedSource) Fetch(ctx context.Context, u tts.Utterance) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := g.cb.Execute(func() error {
		var err error
		rc, err = g.src.Fetch(ctx, u)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("%s: %w", g.src.Name(), err)
	}
	return rc, err
}
