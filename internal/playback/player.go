package playback

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/MrWong99/chatvoice/pkg/audio"
)

// FrameDuration is the amount of audio carried by one frame.
const FrameDuration = 20 * time.Millisecond

// Streamer is a [Player] that writes resources to a voice connection in
// fixed-size frames. The connection's buffered output channel paces it.
type Streamer struct {
	conn audio.Connection
}

var _ Player = (*Streamer)(nil)

// NewStreamer returns a player for conn.
func NewStreamer(conn audio.Connection) *Streamer {
	return &Streamer{conn: conn}
}

// Play starts streaming res in the background. res is closed before done is
// called. done receives nil at end of stream, the read error if decoding
// failed, or ctx.Err() if ctx ended first.
func (s *Streamer) Play(ctx context.Context, res *audio.Resource, done func(error)) {
	go func() {
		err := s.stream(ctx, res)
		res.Close()
		done(err)
	}()
}

func (s *Streamer) stream(ctx context.Context, res *audio.Resource) error {
	format := res.Format()
	size := format.FrameBytes(FrameDuration)
	out := s.conn.OutputStream()

	var ts time.Duration
	for {
		buf := make([]byte, size)
		n, err := io.ReadFull(res, buf)
		if n > 0 {
			frame := audio.AudioFrame{
				Data:       buf[:n],
				SampleRate: format.SampleRate,
				Channels:   format.Channels,
				Timestamp:  ts,
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
			ts += FrameDuration
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}
