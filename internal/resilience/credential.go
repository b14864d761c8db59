package resilience

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// CredentialFallback speaks through a premium provider and silently
// substitutes a free one whenever the premium provider reports
// tts.ErrMissingCredential. Other errors are returned unchanged.
type CredentialFallback struct {
	premium  tts.Provider
	free     tts.Provider
	name     string
	log      *slog.Logger
	onSwitch func(ctx context.Context, from string)
}

var _ tts.Provider = (*CredentialFallback)(nil)

// FallbackOption configures a [CredentialFallback].
type FallbackOption func(*CredentialFallback)

// WithFallbackLogger sets the logger for downgrade warnings.
func WithFallbackLogger(l *slog.Logger) FallbackOption {
	return func(f *CredentialFallback) { f.log = l }
}

// OnFallback registers a hook invoked on every downgrade, e.g. to count it.
func OnFallback(fn func(ctx context.Context, from string)) FallbackOption {
	return func(f *CredentialFallback) { f.onSwitch = fn }
}

// NewCredentialFallback wraps premium, identified as name in logs.
func NewCredentialFallback(name string, premium, free tts.Provider, opts ...FallbackOption) *CredentialFallback {
	f := &CredentialFallback{
		premium: premium,
		free:    free,
		name:    name,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Speak implements tts.Provider.
func (f *CredentialFallback) Speak(ctx context.Context, req tts.Request) (*audio.Resource, error) {
	res, err := f.premium.Speak(ctx, req)
	if !errors.Is(err, tts.ErrMissingCredential) {
		return res, err
	}
	f.log.WarnContext(ctx, "premium voice not configured, using free voice", "engine", f.name)
	if f.onSwitch != nil {
		f.onSwitch(ctx, f.name)
	}
	return f.free.Speak(ctx, req)
}

// HasCredential reports whether the premium provider can be used, when it
// exposes that.
func (f *CredentialFallback) HasCredential() bool {
	if cr, ok := f.premium.(interface{ HasCredential() bool }); ok {
		return cr.HasCredential()
	}
	return true
}
