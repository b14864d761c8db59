package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/chatvoice/internal/discord"
	"github.com/MrWong99/chatvoice/internal/voice"
)

// joinTimeout bounds the voice handshake of /joinbot.
const joinTimeout = 30 * time.Second

// ChannelCommands implements /joinbot and /leavebot.
type ChannelCommands struct {
	sessions *voice.Manager
	log      *slog.Logger
}

// NewChannelCommands creates the voice channel command group.
func NewChannelCommands(sessions *voice.Manager, log *slog.Logger) *ChannelCommands {
	return &ChannelCommands{sessions: sessions, log: log}
}

// Register registers the group with router.
func (c *ChannelCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("joinbot", &discordgo.ApplicationCommand{
		Name:        "joinbot",
		Description: "Bot vào kênh voice",
	}, c.handleJoin)
	router.RegisterCommand("leavebot", &discordgo.ApplicationCommand{
		Name:        "leavebot",
		Description: "Bot rời kênh voice",
	}, ephemeral(c.leave))
}

func (c *ChannelCommands) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channelID, reply := c.callerChannel(s.State, i)
	if channelID == "" {
		discord.RespondEphemeral(s, i, reply)
		return
	}
	discord.DeferReply(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	discord.FollowUp(s, i, c.join(ctx, i, channelID))
}

// callerChannel returns the voice channel of the interaction author, or an
// empty ID and the reply explaining why there is none.
func (c *ChannelCommands) callerChannel(state *discordgo.State, i *discordgo.InteractionCreate) (string, string) {
	if i.GuildID == "" {
		return "", "⚠️ Lệnh này chỉ dùng trong server."
	}
	vs, err := state.VoiceState(i.GuildID, discord.InteractionUserID(i))
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", "⚠️ Bạn phải vào kênh voice trước."
	}
	return vs.ChannelID, ""
}

func (c *ChannelCommands) join(ctx context.Context, i *discordgo.InteractionCreate, channelID string) string {
	if _, err := c.sessions.Join(ctx, i.GuildID, channelID, discord.InteractionUserID(i)); err != nil {
		c.log.ErrorContext(ctx, "commands: join voice", "guild", i.GuildID, "channel", channelID, "err", err)
		return fmt.Sprintf("❌ Không vào được: %v", err)
	}
	return fmt.Sprintf("✅ Đã vào <#%s>!", channelID)
}

func (c *ChannelCommands) leave(i *discordgo.InteractionCreate) string {
	err := c.sessions.Leave(context.Background(), i.GuildID)
	switch {
	case errors.Is(err, voice.ErrNoSession):
		return "⚠️ Bot không ở voice nào."
	case err != nil:
		return fmt.Sprintf("❌ Lỗi: %v", err)
	}
	return "👋 Bot đã rời voice."
}
