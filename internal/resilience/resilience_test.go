package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/MrWong99/chatvoice/pkg/provider/tts"
	"github.com/MrWong99/chatvoice/pkg/provider/tts/mock"
)

func TestGuard_OpensOnBackendFailures(t *testing.T) {
	t.Parallel()

	src := &mock.Source{NameResult: "elevenlabs", FetchErr: errors.New("503")}
	g := Guard(src, CircuitBreakerConfig{MaxFailures: 2})

	for range 2 {
		g.Fetch(context.Background(), tts.Utterance{Text: "a"})
	}
	_, err := g.Fetch(context.Background(), tts.Utterance{Text: "a"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Fetch = %v, want ErrCircuitOpen", err)
	}
	if src.CallCount() != 2 {
		t.Errorf("upstream calls = %d, want 2", src.CallCount())
	}
	if g.Name() != "elevenlabs" {
		t.Errorf("Name() = %q", g.Name())
	}
}

func TestGuard_IgnoresMissingCredential(t *testing.T) {
	t.Parallel()

	src := &mock.Source{FetchErr: fmt.Errorf("x: %w", tts.ErrMissingCredential)}
	g := Guard(src, CircuitBreakerConfig{MaxFailures: 1})
	for range 3 {
		if _, err := g.Fetch(context.Background(), tts.Utterance{Text: "a"}); !errors.Is(err, tts.ErrMissingCredential) {
			t.Fatalf("Fetch = %v, want ErrMissingCredential", err)
		}
	}
	if g.State() != StateClosed {
		t.Errorf("state = %v, want closed", g.State())
	}
}

func TestGuard_PassesStream(t *testing.T) {
	t.Parallel()

	g := Guard(&mock.Source{Audio: []byte("mp3")}, CircuitBreakerConfig{})
	rc, err := g.Fetch(context.Background(), tts.Utterance{Text: "a"})
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	if data, _ := io.ReadAll(rc); string(data) != "mp3" {
		t.Errorf("stream = %q", data)
	}
}

type keyedSource struct {
	*mock.Source
	key bool
}

func (k keyedSource) HasCredential() bool { return k.key }

func TestGuard_ForwardsCredential(t *testing.T) {
	t.Parallel()

	if Guard(keyedSource{&mock.Source{}, false}, CircuitBreakerConfig{}).HasCredential() {
		t.Error("HasCredential() = true for a keyless source")
	}
	if !Guard(keyedSource{&mock.Source{}, true}, CircuitBreakerConfig{}).HasCredential() {
		t.Error("HasCredential() = false for a keyed source")
	}
	if !Guard(&mock.Source{}, CircuitBreakerConfig{}).HasCredential() {
		t.Error("HasCredential() = false for a source without credentials")
	}
}

func TestCredentialFallback(t *testing.T) {
	t.Parallel()

	boom := errors.New("network down")
	tests := []struct {
		name         string
		premiumErr   error
		wantErr      error
		wantFree     int
		wantSwitches int
	}{
		{"premium ok", nil, nil, 0, 0},
		{"missing credential", fmt.Errorf("elevenlabs: %w", tts.ErrMissingCredential), nil, 1, 1},
		{"other error surfaces", boom, boom, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			premium := &mock.Provider{PCM: []byte{1}}
			if tt.premiumErr != nil {
				premium.Errs = map[string]error{"xin chào": tt.premiumErr}
			}
			free := &mock.Provider{PCM: []byte{2}}
			switches := 0
			f := NewCredentialFallback("elevenlabs", premium, free, OnFallback(func(context.Context, string) { switches++ }))

			res, err := f.Speak(context.Background(), tts.Request{Text: "xin chào"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Speak error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				res.Close()
			}
			if got := len(free.Calls()); got != tt.wantFree {
				t.Errorf("free calls = %d, want %d", got, tt.wantFree)
			}
			if switches != tt.wantSwitches {
				t.Errorf("fallback hook calls = %d, want %d", switches, tt.wantSwitches)
			}
		})
	}
}
