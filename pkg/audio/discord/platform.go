// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library.
//
// The platform requires an active *discordgo.Session owned by the bot layer.
// Each call to [Platform.Connect] joins a voice channel and returns a
// [Connection] that encodes outgoing PCM to Opus. The bot only speaks, so
// the connection is joined deafened and nothing is received.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/bwmarrin/discordgo"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// Platform implements [audio.Platform] using discordgo voice connections.
//
// Platform is safe for concurrent use.
type Platform struct {
	session *discordgo.Session
	log     *slog.Logger
}

// New creates a Platform for session. log may be nil.
func New(session *discordgo.Session, log *slog.Logger) *Platform {
	if log == nil {
		log = slog.Default()
	}
	return &Platform{session: session, log: log}
}

// Connect joins channelID in guildID and returns an active
// [audio.Connection]. ctx is only checked before the join; discordgo bounds
// the handshake itself.
func (p *Platform) Connect(ctx context.Context, guildID, channelID string) (audio.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, err)
	}
	vc, err := p.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, err)
	}
	return newConnection(vc, channelID, p.log.With("guild", guildID, "channel", channelID)), nil
}
