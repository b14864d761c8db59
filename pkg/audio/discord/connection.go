package discord

import (
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/bwmarrin/discordgo"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

const (
	// outputChannelBuffer holds about 1.3 s of 20 ms frames.
	outputChannelBuffer = 64

	// idleFlush is how long the output may stay empty before the remainder
	// of a partial Opus frame is padded and sent and the speaking flag is
	// cleared.
	idleFlush = 100 * time.Millisecond
)

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. Outgoing PCM frames are converted to 48 kHz
// stereo, cut into exact 20 ms pieces and encoded to Opus.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc        *discordgo.VoiceConnection
	channelID string

	output chan audio.AudioFrame

	done      chan struct{}
	closeOnce sync.Once

	log *slog.Logger

	// disconnectVC is called during Disconnect to tear down the voice connection.
	// Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error

	// speaking is called when the speaking flag changes. Defaults to
	// vc.Speaking; overridden in tests.
	speaking func(bool) error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts its send loop.
func newConnection(vc *discordgo.VoiceConnection, channelID string, log *slog.Logger) *Connection {
	c := &Connection{
		vc:           vc,
		channelID:    channelID,
		output:       make(chan audio.AudioFrame, outputChannelBuffer),
		done:         make(chan struct{}),
		log:          log,
		disconnectVC: vc.Disconnect,
		speaking:     vc.Speaking,
	}
	go c.sendLoop()
	return c
}

// ChannelID returns the joined voice channel.
func (c *Connection) ChannelID() string { return c.channelID }

// OutputStream returns the write-only channel for synthesized speech.
// Frames written here are encoded to Opus and sent to Discord.
func (c *Connection) OutputStream() chan<- audio.AudioFrame {
	return c.output
}

// Disconnect cleanly tears down the voice connection and stops the send
// loop. It is safe to call more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// sendLoop reads PCM AudioFrames from the output channel, converts them to
// Discord's target format (48 kHz stereo), extracts exact Opus frame-sized
// chunks, encodes them and sends them on the voice connection. When the
// output stays empty for idleFlush, the partial tail is padded with silence
// and flushed so the end of an utterance is not held back.
func (c *Connection) sendLoop() {
	enc, err := newOpusEncoder()
	if err != nil {
		c.log.Error("discord: failed to create opus encoder", "err", err)
		return
	}

	conv := audio.FormatConverter{Target: audio.DiscordFormat}
	speakingSet := false

	idle := time.NewTimer(idleFlush)
	idle.Stop()
	defer idle.Stop()

	var buf []byte

	send := func(pcm []byte) bool {
		opus, err := enc.encode(pcm)
		if err != nil {
			c.log.Warn("discord: opus encode error", "err", err)
			return true
		}
		select {
		case c.vc.OpusSend <- opus:
			return true
		case <-c.done:
			return false
		}
	}

	for {
		select {
		case <-c.done:
			if speakingSet {
				c.setSpeaking(false)
			}
			return

		case <-idle.C:
			if len(buf) > 0 {
				pcm := make([]byte, opusFrameBytes)
				copy(pcm, buf)
				buf = buf[:0]
				if !send(pcm) {
					return
				}
			}
			if speakingSet {
				c.setSpeaking(false)
				speakingSet = false
			}

		case frame := <-c.output:
			if !speakingSet {
				c.setSpeaking(true)
				speakingSet = true
			}

			frame = conv.Convert(frame)
			buf = append(buf, frame.Data...)

			for len(buf) >= opusFrameBytes {
				ok := send(buf[:opusFrameBytes])
				buf = buf[opusFrameBytes:]
				if !ok {
					return
				}
			}
			idle.Reset(idleFlush)
		}
	}
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if c.speaking == nil {
		return
	}
	if err := c.speaking(b); err != nil {
		c.log.Warn("discord: speaking notification error", "speaking", b, "err", err)
	}
}
