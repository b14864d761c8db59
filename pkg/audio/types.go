package audio

import (
	"fmt"
	"io"
	"time"
)

// Format describes the sample rate and channel count of interleaved
// little-endian int16 PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DiscordFormat is the PCM layout Discord voice expects: 48 kHz stereo.
var DiscordFormat = Format{SampleRate: 48000, Channels: 2}

// FrameBytes returns the size in bytes of d of audio in this format.
func (f Format) FrameBytes(d time.Duration) int {
	return int(int64(f.SampleRate)*int64(d)/int64(time.Second)) * f.Channels * 2
}

// String returns e.g. "48000Hz stereo".
func (f Format) String() string {
	switch f.Channels {
	case 1:
		return fmt.Sprintf("%dHz mono", f.SampleRate)
	case 2:
		return fmt.Sprintf("%dHz stereo", f.SampleRate)
	default:
		return fmt.Sprintf("%dHz %dch", f.SampleRate, f.Channels)
	}
}

// AudioFrame is one chunk of PCM on its way to a [Connection].
type AudioFrame struct {
	// Data is interleaved little-endian int16 PCM.
	Data []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// Timestamp is the offset of this frame from the start of its resource.
	Timestamp time.Duration
}

// Resource is a playable PCM stream. Reading yields interleaved int16 PCM in
// [Resource.Format]; a read error other than io.EOF means decoding failed
// part way. Close releases the decoder and any upstream connection.
type Resource struct {
	rc     io.ReadCloser
	format Format
}

// NewResource wraps rc, which must yield PCM in format.
func NewResource(rc io.ReadCloser, format Format) *Resource {
	return &Resource{rc: rc, format: format}
}

// Format returns the PCM layout of the stream.
func (r *Resource) Format() Format { return r.format }

// Read implements io.Reader.
func (r *Resource) Read(p []byte) (int, error) { return r.rc.Read(p) }

// Close implements io.Closer.
func (r *Resource) Close() error { return r.rc.Close() }
