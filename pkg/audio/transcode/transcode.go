// Package transcode decodes synthesized MP3 into playable PCM with tempo and
// volume applied.
//
// Two implementations are provided: [FFmpeg] shells out to an ffmpeg binary
// and keeps pitch constant when changing tempo; [Native] decodes in-process
// with gopxl/beep and needs no external tools.
package transcode

import (
	"context"
	"errors"
	"io"

	"github.com/MrWong99/chatvoice/pkg/audio"
)

// Tempo and volume bounds accepted by every transcoder.
const (
	MinTempo  = 0.5
	MaxTempo  = 2.0
	MinVolume = 0.1
	MaxVolume = 2.0
)

// ErrTranscode marks a decoder failure. It is wrapped by every error a
// transcoder returns, including errors surfaced while reading the resource.
var ErrTranscode = errors.New("transcode: decode failed")

// Options adjusts playback of a transcoded stream.
type Options struct {
	// Tempo is the speed factor, clamped to [MinTempo, MaxTempo]. Zero means 1.
	Tempo float64

	// Volume is the gain factor, clamped to [MinVolume, MaxVolume]. Zero means 1.
	Volume float64
}

// Clamped returns o with defaults applied and both values in range.
func (o Options) Clamped() Options {
	if o.Tempo == 0 {
		o.Tempo = 1
	}
	if o.Volume == 0 {
		o.Volume = 1
	}
	o.Tempo = min(max(o.Tempo, MinTempo), MaxTempo)
	o.Volume = min(max(o.Volume, MinVolume), MaxVolume)
	return o
}

// Transcoder turns an encoded audio stream into PCM.
//
// src is consumed while the returned resource is read; the caller must not
// touch src afterwards. ctx bounds the whole decode, so cancelling it stops
// playback. Implementations must be safe for concurrent use.
type Transcoder interface {
	Transcode(ctx context.Context, src io.Reader, opts Options) (*audio.Resource, error)
}
