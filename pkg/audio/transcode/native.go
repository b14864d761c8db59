package transcode

import (
	"context"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"

	"github.com/MrWong99/chatvoice/pkg/audio"
)

// resampleQuality is the beep resampler quality (1 = linear, 6 = best).
const resampleQuality = 3

// Native decodes MP3 in-process. Tempo is applied by resampling, so unlike
// [FFmpeg] it also shifts pitch. Output keeps the source sample rate in
// stereo; the voice connection converts it.
type Native struct {
	// BufferSamples is the number of stereo samples pulled per iteration.
	// Zero means 1024.
	BufferSamples int
}

var _ Transcoder = (*Native)(nil)

// Transcode implements [Transcoder].
func (n *Native) Transcode(ctx context.Context, src io.Reader, opts Options) (*audio.Resource, error) {
	opts = opts.Clamped()

	decoder, format, err := mp3.Decode(io.NopCloser(src))
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrTranscode, err)
	}

	var s beep.Streamer = decoder
	if opts.Tempo != 1 {
		s = beep.ResampleRatio(resampleQuality, opts.Tempo, s)
	}
	if opts.Volume != 1 {
		s = &effects.Gain{Streamer: s, Gain: opts.Volume - 1}
	}

	size := n.BufferSamples
	if size <= 0 {
		size = 1024
	}

	pr, pw := io.Pipe()
	go pump(ctx, s, decoder, pw, size)

	return audio.NewResource(pr, audio.Format{SampleRate: int(format.SampleRate), Channels: 2}), nil
}

// pump pulls samples from s, encodes them as s16le and writes them to pw
// until the stream ends, ctx is cancelled or the reader goes away.
func pump(ctx context.Context, s beep.Streamer, decoder beep.StreamSeekCloser, pw *io.PipeWriter, size int) {
	defer decoder.Close()

	samples := make([][2]float64, size)
	buf := make([]byte, size*4)
	for {
		if err := ctx.Err(); err != nil {
			pw.CloseWithError(err)
			return
		}
		n, ok := s.Stream(samples)
		for i := range n {
			putFloat(buf[i*4:], samples[i][0])
			putFloat(buf[i*4+2:], samples[i][1])
		}
		if n > 0 {
			if _, err := pw.Write(buf[:n*4]); err != nil {
				return
			}
		}
		if !ok {
			if err := s.Err(); err != nil {
				pw.CloseWithError(fmt.Errorf("%w: mp3 stream: %v", ErrTranscode, err))
				return
			}
			pw.Close()
			return
		}
	}
}

// putFloat writes v, clipped to [-1, 1], as a little-endian int16.
func putFloat(b []byte, v float64) {
	v = min(max(v, -1), 1)
	s := int16(v * 32767)
	b[0] = byte(s)
	b[1] = byte(s >> 8)
}
