// Package audio defines the voice-channel transport used to play synthesized
// speech and the PCM types that flow into it.
//
// The two transport abstractions are:
//
//   - [Platform] joins a voice channel and returns a [Connection].
//   - [Connection] accepts PCM frames on a single output stream.
//
// Platform adapters live in sub-packages (audio/discord). Synthesized speech
// reaches a Connection as a [Resource] produced by audio/transcode.
package audio

import (
	"context"
)

// Connection is an active session on a voice channel.
//
// A Connection is obtained from [Platform.Connect] and stays valid until
// [Connection.Disconnect] is called. Implementations must be safe for
// concurrent use.
type Connection interface {
	// ChannelID returns the platform ID of the joined voice channel.
	ChannelID() string

	// OutputStream returns the write-only channel for outgoing PCM. The
	// channel is buffered and writes block while the buffer is full, which
	// paces the writer to real time.
	//
	// The platform never closes this channel. Writes after Disconnect are
	// dropped.
	OutputStream() chan<- AudioFrame

	// Disconnect leaves the channel. Calling it more than once is a no-op.
	Disconnect() error
}

// Platform is the entry point for a voice provider.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins channelID in guildID. ctx bounds the join handshake only.
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}
